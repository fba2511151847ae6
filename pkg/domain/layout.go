package domain

// Region はページ上の矩形領域です。座標・寸法は [0,1] に正規化されています。
type Region struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Area は領域の正規化面積を返します。
func (r Region) Area() float64 {
	return r.W * r.H
}

// LayoutTemplate はページレイアウトのカタログエントリです。
// カタログは起動時に一度ロードされた後は読み取り専用として扱います。
type LayoutTemplate struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Regions     []Region `json:"regions" yaml:"regions"`
	AspectRatio string   `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// PanelCount はテンプレートが収容するパネル数（領域数）を返します。
func (t LayoutTemplate) PanelCount() int {
	return len(t.Regions)
}

// LargestRegionArea は最大領域の正規化面積を返します。領域がない場合は 0 です。
func (t LayoutTemplate) LargestRegionArea() float64 {
	largest := 0.0
	for _, r := range t.Regions {
		if a := r.Area(); a > largest {
			largest = a
		}
	}
	return largest
}
