package layout

import (
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ScoringWeights は採点ボーナスと面積閾値の設定です。経験的な定数であり、
// カタログ設定から上書きできます。
type ScoringWeights struct {
	DominantBonus   float64 `yaml:"dominant_bonus"`
	BalancedBonus   float64 `yaml:"balanced_bonus"`
	LargePanelBonus float64 `yaml:"large_panel_bonus"`
	DialogueBonus   float64 `yaml:"dialogue_bonus"`
	ActionBonus     float64 `yaml:"action_bonus"`

	DominantAreaThreshold  float64 `yaml:"dominant_area_threshold"`
	LargeAreaThreshold     float64 `yaml:"large_area_threshold"`
	SpreadThreshold        float64 `yaml:"spread_threshold"`
	DialogueRatioThreshold float64 `yaml:"dialogue_ratio_threshold"`
}

// DefaultScoringWeights は既定の採点定数を返します。
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		DominantBonus:   0.3,
		BalancedBonus:   0.2,
		LargePanelBonus: 0.25,
		DialogueBonus:   0.2,
		ActionBonus:     0.15,

		DominantAreaThreshold:  0.4,
		LargeAreaThreshold:     0.35,
		SpreadThreshold:        0.3,
		DialogueRatioThreshold: 0.5,
	}
}

// 領域面積のバケット境界。小 / 中 / 大 の3区分です。
const (
	mediumAreaFloor   = 0.15
	mediumAreaCeiling = 0.35
)

// Score はテンプレートを特徴量に対して採点します。領域数がパネル数と
// 一致しないテンプレートは 0 です。基礎点 1.0 に条件ボーナスを積みます。
func Score(t domain.LayoutTemplate, f Features, w ScoringWeights) float64 {
	if t.PanelCount() != f.PanelCount {
		return 0
	}

	score := 1.0
	areas := regionAreas(t)
	largest := maxArea(areas)

	if (f.SceneImportance == "climax" || f.SceneImportance == "cliffhanger") && largest > w.DominantAreaThreshold {
		score += w.DominantBonus
	}

	if f.SceneImportance == "setup" && areaSpread(areas) < w.SpreadThreshold {
		score += w.BalancedBonus
	}

	if f.LargePanelCount >= 1 && largest > w.LargeAreaThreshold {
		score += w.LargePanelBonus
	}

	if f.DialogueRatio > w.DialogueRatioThreshold && mediumRegionCount(areas)*2 >= len(areas) {
		score += w.DialogueBonus
	}

	if f.HasAction && distinctSizeBuckets(areas) >= 2 {
		score += w.ActionBonus
	}

	return score
}

func regionAreas(t domain.LayoutTemplate) []float64 {
	areas := make([]float64, 0, len(t.Regions))
	for _, r := range t.Regions {
		areas = append(areas, r.Area())
	}
	return areas
}

func maxArea(areas []float64) float64 {
	largest := 0.0
	for _, a := range areas {
		if a > largest {
			largest = a
		}
	}
	return largest
}

// areaSpread は最大面積と最小面積の差です。小さいほど均等割りに近づきます。
func areaSpread(areas []float64) float64 {
	if len(areas) == 0 {
		return 0
	}
	minA, maxA := areas[0], areas[0]
	for _, a := range areas[1:] {
		if a < minA {
			minA = a
		}
		if a > maxA {
			maxA = a
		}
	}
	return maxA - minA
}

// mediumRegionCount は面積が中区分 (15%〜35%) に入る領域数です。
func mediumRegionCount(areas []float64) int {
	count := 0
	for _, a := range areas {
		if a >= mediumAreaFloor && a <= mediumAreaCeiling {
			count++
		}
	}
	return count
}

// distinctSizeBuckets は小・中・大のうち何区分が使われているかを数えます。
func distinctSizeBuckets(areas []float64) int {
	buckets := make(map[int]struct{})
	for _, a := range areas {
		switch {
		case a < mediumAreaFloor:
			buckets[0] = struct{}{}
		case a <= mediumAreaCeiling:
			buckets[1] = struct{}{}
		default:
			buckets[2] = struct{}{}
		}
	}
	return len(buckets)
}
