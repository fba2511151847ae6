package layout

import (
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// 3パネル用の2種: 支配的な大ゴマを持つ型と、均等な帯割りの型なのだ。
func testCatalog() []domain.LayoutTemplate {
	return []domain.LayoutTemplate{
		{
			ID: "3-strip",
			Regions: []domain.Region{
				{X: 0, Y: 0, W: 1, H: 0.33},
				{X: 0, Y: 0.33, W: 1, H: 0.33},
				{X: 0, Y: 0.66, W: 1, H: 0.34},
			},
			AspectRatio: "3:4",
		},
		{
			ID: "3-dominant",
			Regions: []domain.Region{
				{X: 0, Y: 0, W: 1, H: 0.6},
				{X: 0, Y: 0.6, W: 0.5, H: 0.4},
				{X: 0.5, Y: 0.6, W: 0.5, H: 0.4},
			},
			AspectRatio: "3:4",
		},
		{
			ID: "4-grid",
			Regions: []domain.Region{
				{X: 0, Y: 0, W: 0.5, H: 0.5},
				{X: 0.5, Y: 0, W: 0.5, H: 0.5},
				{X: 0, Y: 0.5, W: 0.5, H: 0.5},
				{X: 0.5, Y: 0.5, W: 0.5, H: 0.5},
			},
			AspectRatio: "3:4",
		},
	}
}

func climaxPlan() domain.PanelPlan {
	return domain.PanelPlan{
		SceneImportance: "climax",
		Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Weight: 0.9},
			{Index: 2, GrammarID: domain.TagDialogueMedium, Weight: 0.2},
			{Index: 3, GrammarID: domain.TagReaction, Weight: 0.2},
		},
	}
}

func TestEngine_Select(t *testing.T) {
	weights := DefaultScoringWeights()

	t.Run("クライマックスでは支配的な領域を持つ型が勝つのだ", func(t *testing.T) {
		engine := NewEngine(testCatalog(), nil, weights, "3-strip")
		got, err := engine.Select(climaxPlan(), nil)
		if err != nil {
			t.Fatalf("選択に失敗したのだ: %v", err)
		}
		if got.ID != "3-dominant" {
			t.Errorf("3-dominant が選ばれるはずが %s なのだ", got.ID)
		}
	})

	t.Run("パネル数が合わない型は0点なのだ", func(t *testing.T) {
		f := ExtractFeatures(climaxPlan())
		if s := Score(testCatalog()[2], f, weights); s != 0 {
			t.Errorf("4パネル型は0点のはずが %f なのだ", s)
		}
	})

	t.Run("同点ならカタログ順で先勝ちなのだ", func(t *testing.T) {
		plan := domain.PanelPlan{
			SceneImportance: "build",
			Panels: domain.Panels{
				{Index: 1, GrammarID: domain.TagObjectFocus, Weight: 0.15},
				{Index: 2, GrammarID: domain.TagObjectFocus, Weight: 0.15},
				{Index: 3, GrammarID: domain.TagObjectFocus, Weight: 0.15},
			},
		}
		engine := NewEngine(testCatalog(), nil, weights, "3-strip")
		got, err := engine.Select(plan, nil)
		if err != nil {
			t.Fatalf("選択に失敗したのだ: %v", err)
		}
		if got.ID != "3-strip" {
			t.Errorf("カタログ先頭の 3-strip のはずが %s なのだ", got.ID)
		}
	})

	t.Run("規則表は採点より優先されるのだ", func(t *testing.T) {
		rules := []Rule{{PanelCount: 3, Importance: "climax", TemplateID: "3-strip"}}
		engine := NewEngine(testCatalog(), rules, weights, "3-dominant")
		got, err := engine.Select(climaxPlan(), nil)
		if err != nil {
			t.Fatalf("選択に失敗したのだ: %v", err)
		}
		if got.ID != "3-strip" {
			t.Errorf("規則表の 3-strip のはずが %s なのだ", got.ID)
		}
	})

	t.Run("除外集合は候補を0点にして既定へ逃がすのだ", func(t *testing.T) {
		engine := NewEngine(testCatalog(), nil, weights, "4-grid")
		exclude := map[string]bool{"3-strip": true, "3-dominant": true}
		got, err := engine.Select(climaxPlan(), exclude)
		if err != nil {
			t.Fatalf("選択に失敗したのだ: %v", err)
		}
		if got.ID != "4-grid" {
			t.Errorf("既定の 4-grid のはずが %s なのだ", got.ID)
		}
	})

	t.Run("除外された規則は読み飛ばして次へ進むのだ", func(t *testing.T) {
		rules := []Rule{{PanelCount: 3, TemplateID: "3-strip"}}
		engine := NewEngine(testCatalog(), rules, weights, "4-grid")
		got, err := engine.Select(climaxPlan(), map[string]bool{"3-strip": true})
		if err != nil {
			t.Fatalf("選択に失敗したのだ: %v", err)
		}
		if got.ID != "3-dominant" {
			t.Errorf("採点に落ちて 3-dominant のはずが %s なのだ", got.ID)
		}
	})
}

func TestExtractFeatures(t *testing.T) {
	t.Run("重要度の既定はbuildなのだ", func(t *testing.T) {
		f := ExtractFeatures(domain.PanelPlan{Panels: domain.Panels{{Index: 1}}})
		if f.SceneImportance != "build" {
			t.Errorf("既定はbuildのはずが %s なのだ", f.SceneImportance)
		}
	})

	t.Run("utilityから重みが正規化されるのだ", func(t *testing.T) {
		f := ExtractFeatures(domain.PanelPlan{Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagDialogueMedium, Dialogue: "セリフあり", SpeakerID: "a"},
			{Index: 2, GrammarID: domain.TagReveal},
			{Index: 3, GrammarID: domain.TagObjectFocus},
		}})

		for i, w := range f.Weights {
			if w < 0.12 || w > 1.0 {
				t.Errorf("重み[%d]=%f がレンジ外なのだ", i, w)
			}
		}
		if !(f.Weights[0] > f.Weights[1] && f.Weights[1] > f.Weights[2]) {
			t.Errorf("セリフ持ち > 中位タグ > その他 の順のはずなのだ: %v", f.Weights)
		}
		if f.DistinctCharacters != 1 {
			t.Errorf("話者数は1のはずが %d なのだ", f.DistinctCharacters)
		}
	})
}
