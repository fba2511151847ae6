package layout

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Rule は採点より優先される明示的な選択規則です。PanelCount は必須の完全一致、
// その他の述語は設定されている場合のみ照合します。
type Rule struct {
	PanelCount   int     `yaml:"panel_count"`
	Importance   string  `yaml:"importance,omitempty"`
	Pace         string  `yaml:"pace,omitempty"`
	MinMaxWeight float64 `yaml:"min_max_weight,omitempty"`
	TemplateID   string  `yaml:"template_id"`
}

// matches は規則がプランの特徴量に適合するかを判定します。
func (r Rule) matches(f Features, pace string) bool {
	if r.PanelCount != f.PanelCount {
		return false
	}
	if r.Importance != "" && r.Importance != f.SceneImportance {
		return false
	}
	if r.Pace != "" && r.Pace != pace {
		return false
	}
	if r.MinMaxWeight > 0 && f.MaxWeight < r.MinMaxWeight {
		return false
	}
	return true
}

// Engine はカタログ・規則表・採点定数を束ねた選択エンジンです。
// カタログは読み取り専用として扱い、エンジン自身は状態を持ちません。
type Engine struct {
	catalog           []domain.LayoutTemplate
	rules             []Rule
	weights           ScoringWeights
	defaultTemplateID string
}

// NewEngine は選択エンジンを生成します。defaultTemplateID はどの候補も
// 選べなかったときのフォールバック先です。
func NewEngine(catalog []domain.LayoutTemplate, rules []Rule, weights ScoringWeights, defaultTemplateID string) *Engine {
	return &Engine{
		catalog:           catalog,
		rules:             rules,
		weights:           weights,
		defaultTemplateID: defaultTemplateID,
	}
}

// Select はプランに最適なテンプレートを返します。規則表が先に照合され、
// 適合が無ければ採点で決めます。exclude に入っている ID は候補から外します
// （直前シーンと同じレイアウトの連続を避ける用途）。全候補が外れた場合は
// 既定テンプレートへフォールバックします。
func (e *Engine) Select(plan domain.PanelPlan, exclude map[string]bool) (domain.LayoutTemplate, error) {
	features := ExtractFeatures(plan)

	// 1. 明示規則が最優先
	for _, rule := range e.rules {
		if !rule.matches(features, plan.Pace) {
			continue
		}
		if exclude[rule.TemplateID] {
			continue
		}
		if t, ok := e.findTemplate(rule.TemplateID); ok {
			slog.Debug("規則表でレイアウトが決まりました", "template", t.ID, "panel_count", features.PanelCount)
			return t, nil
		}
	}

	// 2. 採点。スコア最大、同点はカタログ順で先勝ち
	best := -1.0
	var selected *domain.LayoutTemplate
	for i := range e.catalog {
		t := e.catalog[i]
		if exclude[t.ID] {
			continue
		}
		score := Score(t, features, e.weights)
		if score <= 0 {
			continue
		}
		if score > best {
			best = score
			selected = &e.catalog[i]
		}
	}
	if selected != nil {
		slog.Debug("採点でレイアウトが決まりました", "template", selected.ID, "score", best)
		return *selected, nil
	}

	// 3. 既定テンプレートへのフォールバック
	if t, ok := e.findTemplate(e.defaultTemplateID); ok {
		slog.Debug("既定レイアウトへフォールバックします", "template", t.ID)
		return t, nil
	}
	return domain.LayoutTemplate{}, fmt.Errorf("layout: 候補も既定テンプレート %q も見つかりません", e.defaultTemplateID)
}

func (e *Engine) findTemplate(id string) (domain.LayoutTemplate, bool) {
	for _, t := range e.catalog {
		if t.ID == id {
			return t, true
		}
	}
	return domain.LayoutTemplate{}, false
}
