package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCatalog_Default(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("同梱カタログの読み込みに失敗したのだ: %v", err)
	}

	if catalog.DefaultTemplateID == "" {
		t.Error("既定テンプレートIDが空なのだ")
	}
	if len(catalog.Templates) < 5 {
		t.Errorf("同梱テンプレートが少なすぎるのだ: %d", len(catalog.Templates))
	}
	if catalog.Scoring.DominantBonus != 0.3 {
		t.Errorf("採点定数が読めていないのだ: %+v", catalog.Scoring)
	}
	if catalog.QC.MaxRepeatedRun != 2 {
		t.Errorf("QC閾値が読めていないのだ: %+v", catalog.QC)
	}

	// エンジンが組み立てられることも確かめるのだ
	if catalog.NewLayoutEngine() == nil {
		t.Error("レイアウトエンジンが組み立てられないのだ")
	}
}

func TestParseCatalog_省略ブロックは既定値で埋まるのだ(t *testing.T) {
	minimal := `
default_template: a
templates:
  - id: a
    regions:
      - { x: 0, y: 0, w: 1, h: 1 }
`
	catalog, err := parseCatalog([]byte(minimal))
	if err != nil {
		t.Fatalf("最小カタログの解析に失敗したのだ: %v", err)
	}
	if catalog.Scoring.DominantBonus != 0.3 {
		t.Errorf("採点定数が既定値で埋まっていないのだ: %+v", catalog.Scoring)
	}
	if catalog.QC.MaxCloseupRatio != 0.5 {
		t.Errorf("QC閾値が既定値で埋まっていないのだ: %+v", catalog.QC)
	}
}

func TestLoadCatalog_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"テンプレートなし", "default_template: x\ntemplates: []\n"},
		{"既定IDが存在しない", `
default_template: ghost
templates:
  - id: a
    regions:
      - { x: 0, y: 0, w: 1, h: 1 }
`},
		{"ID重複", `
default_template: a
templates:
  - id: a
    regions:
      - { x: 0, y: 0, w: 1, h: 1 }
  - id: a
    regions:
      - { x: 0, y: 0, w: 1, h: 1 }
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseCatalog([]byte(tc.yaml)); err == nil {
				t.Error("不正なカタログが通ってしまったのだ")
			}
		})
	}
}

func TestCatalogProvider_HotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	initial := `
default_template: solo
templates:
  - id: solo
    regions:
      - { x: 0, y: 0, w: 1, h: 1 }
`
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("初期カタログを書けなかったのだ: %v", err)
	}

	provider, err := NewCatalogProvider(path)
	if err != nil {
		t.Fatalf("プロバイダーの初期化に失敗したのだ: %v", err)
	}
	defer provider.Close()

	if got := len(provider.Snapshot().Templates); got != 1 {
		t.Fatalf("初期状態は1テンプレートのはずが %d なのだ", got)
	}

	updated := initial + `
  - id: duo
    regions:
      - { x: 0, y: 0, w: 1, h: 0.5 }
      - { x: 0, y: 0.5, w: 1, h: 0.5 }
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("更新カタログを書けなかったのだ: %v", err)
	}

	// fsnotify のイベント反映を少し待つのだ
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(provider.Snapshot().Templates) == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("ホットリロードが反映されなかったのだ: %d templates", len(provider.Snapshot().Templates))
}

func TestCatalogProvider_KeepsSnapshotOnBrokenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	valid := `
default_template: solo
templates:
  - id: solo
    regions:
      - { x: 0, y: 0, w: 1, h: 1 }
`
	if err := os.WriteFile(path, []byte(valid), 0o644); err != nil {
		t.Fatalf("初期カタログを書けなかったのだ: %v", err)
	}

	provider, err := NewCatalogProvider(path)
	if err != nil {
		t.Fatalf("プロバイダーの初期化に失敗したのだ: %v", err)
	}
	defer provider.Close()

	if err := os.WriteFile(path, []byte("default_template: x\ntemplates: []\n"), 0o644); err != nil {
		t.Fatalf("壊れたカタログを書けなかったのだ: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := len(provider.Snapshot().Templates); got != 1 {
		t.Errorf("壊れた再読込で現行スナップショットが失われたのだ: %d", got)
	}
}
