package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/layout"
	"github.com/shouni/go-storyboard-kit/pkg/panel"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog はレイアウトテンプレート・選択規則・採点定数・QC閾値を束ねた
// 設定コラボレータのスナップショットです。
type Catalog struct {
	DefaultTemplateID string                  `yaml:"default_template"`
	Templates         []domain.LayoutTemplate `yaml:"templates"`
	Rules             []layout.Rule           `yaml:"rules"`
	Scoring           layout.ScoringWeights   `yaml:"scoring"`
	QC                panel.Thresholds        `yaml:"qc"`
}

// LoadCatalog は path のYAMLを読み込みます。path が空の場合は同梱デフォルトです。
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalogYAML
	if path != "" {
		loaded, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("カタログファイルの読み込みに失敗しました (%s): %w", path, err)
		}
		data = loaded
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("カタログYAMLの解析に失敗しました: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}

	// scoring / qc ブロックを省略したカタログは既定値で動きます。
	if catalog.Scoring == (layout.ScoringWeights{}) {
		catalog.Scoring = layout.DefaultScoringWeights()
	}
	if catalog.QC.MaxCloseupRatio == 0 && catalog.QC.MaxDialogueRatio == 0 {
		catalog.QC = panel.DefaultThresholds()
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	if len(c.Templates) == 0 {
		return fmt.Errorf("カタログにテンプレートが1件もありません")
	}

	ids := make(map[string]struct{}, len(c.Templates))
	hasDefault := false
	for _, t := range c.Templates {
		if t.ID == "" {
			return fmt.Errorf("IDが空のテンプレートがあります")
		}
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("テンプレートID %q が重複しています", t.ID)
		}
		ids[t.ID] = struct{}{}
		if t.ID == c.DefaultTemplateID {
			hasDefault = true
		}
		if len(t.Regions) == 0 {
			return fmt.Errorf("テンプレート %q に領域がありません", t.ID)
		}
	}
	if c.DefaultTemplateID == "" || !hasDefault {
		return fmt.Errorf("既定テンプレート %q がカタログ内に見つかりません", c.DefaultTemplateID)
	}
	return nil
}

// NewLayoutEngine はこのスナップショットからレイアウト選択エンジンを組み立てます。
func (c *Catalog) NewLayoutEngine() *layout.Engine {
	return layout.NewEngine(c.Templates, c.Rules, c.Scoring, c.DefaultTemplateID)
}

// CatalogProvider はカタログの現在スナップショットを保持し、ファイル変更時に
// 再起動なしで差し替えます。読み取りはロックフリーではありませんが軽量です。
type CatalogProvider struct {
	path    string
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current *Catalog
}

// NewCatalogProvider は初回ロード済みのプロバイダーを返します。
// path が空の場合は同梱デフォルト固定で、ホットリロードは行いません。
func NewCatalogProvider(path string) (*CatalogProvider, error) {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}

	p := &CatalogProvider{path: path, current: catalog}
	if path == "" {
		return p, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("カタログ監視の初期化に失敗しました: %w", err)
	}
	// リネーム経由の保存を拾うため、ファイルではなくディレクトリを見張る
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("カタログディレクトリの監視に失敗しました: %w", err)
	}

	p.watcher = watcher
	go p.watch()
	return p, nil
}

func (p *CatalogProvider) watch() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p.reload()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("カタログ監視でエラーが発生しました", "error", err)
		}
	}
}

// reload は再読込を試み、失敗時は現行スナップショットを維持します。
func (p *CatalogProvider) reload() {
	catalog, err := LoadCatalog(p.path)
	if err != nil {
		slog.Warn("カタログの再読込に失敗したため現行設定を維持します", "path", p.path, "error", err)
		return
	}

	p.mu.Lock()
	p.current = catalog
	p.mu.Unlock()
	slog.Info("カタログを再読込しました", "path", p.path, "templates", len(catalog.Templates))
}

// Snapshot は現在のカタログを返します。返り値は読み取り専用として扱ってください。
func (p *CatalogProvider) Snapshot() *Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Close はファイル監視を停止します。
func (p *CatalogProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	return p.watcher.Close()
}
