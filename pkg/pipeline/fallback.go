package pipeline

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ヒューリスティック群。生成呼び出しが落ち続けてもパイプラインを前に進める
// ための決定的な代替実装です。品質より成立を優先します。

// fallbackPanelPlan は意図だけから固定形のパネル構成案を組み立てます。
func (r *Runner) fallbackPanelPlan(inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var intent domain.SceneIntent
	if err := inputs[domain.TypeSceneIntent].DecodePayload(&intent); err != nil {
		return nil, fmt.Errorf("シーン意図の復元に失敗しました: %w", err)
	}

	// 中盤のタグは重要度で切り替えます。山場は動き、それ以外は会話です。
	middle := domain.TagDialogueMedium
	if intent.Importance == "climax" || intent.Importance == "cliffhanger" {
		middle = domain.TagAction
	}

	panels := domain.Panels{
		{GrammarID: domain.TagEstablishing, Function: "状況提示", Description: intent.Setting},
		{GrammarID: middle, Function: "展開", Description: intent.Summary},
		{GrammarID: domain.TagEmotionCloseup, Function: "感情", Description: intent.Emotion},
		{GrammarID: domain.TagReaction, Function: "受け", Description: intent.Summary},
	}
	panels.Reindex()

	return domain.PanelPlan{
		Title:           intent.Summary,
		SceneImportance: intent.Importance,
		Pace:            intent.Pace,
		Panels:          panels,
	}, nil
}

// fallbackNormalize は正規化そのものです。整形パス列は決定的なので、
// 代替経路でも同じ実装を通します。
func (r *Runner) fallbackNormalize(inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	return r.normalizePlan(inputs)
}

// fallbackLayout は選択ロジックを飛ばし、カタログの既定テンプレートへ落とします。
func (r *Runner) fallbackLayout(subject Subject, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	catalog := r.catalog.Snapshot()
	for _, t := range catalog.Templates {
		if t.ID == catalog.DefaultTemplateID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("既定テンプレート %q がカタログにありません", catalog.DefaultTemplateID)
}

// fallbackSemantics は構成案を写し、タグから定型の描写を補います。
func (r *Runner) fallbackSemantics(inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var plan domain.PanelPlan
	if err := inputs[domain.TypePanelPlanNormalized].DecodePayload(&plan); err != nil {
		return nil, fmt.Errorf("正規化済み構成案の復元に失敗しました: %w", err)
	}

	panels := plan.Panels.Clone()
	for i := range panels {
		if panels[i].Description == "" {
			panels[i].Description = tagDescription(panels[i].GrammarID)
		}
	}
	panels.Reindex()

	return domain.PanelSemantics{Panels: panels}, nil
}

// tagDescription は文法タグごとの定型描写です。
func tagDescription(tag domain.GrammarTag) string {
	switch tag {
	case domain.TagEstablishing:
		return "舞台全体を引きで見せるロングショット"
	case domain.TagDialogueMedium:
		return "会話する人物のミディアムショット"
	case domain.TagEmotionCloseup:
		return "感情を映す顔のクローズアップ"
	case domain.TagAction:
		return "動きの瞬間を切り取るダイナミックな構図"
	case domain.TagReaction:
		return "直前の出来事を受け止める人物のショット"
	case domain.TagObjectFocus:
		return "鍵となる小道具への寄り"
	case domain.TagReveal:
		return "隠されていた事実が明らかになる見せ場"
	case domain.TagImpactSilence:
		return "台詞のない静止した余韻のコマ"
	default:
		return "場面を補足する中景ショット"
	}
}

// fallbackDialogue はパネルごとに空の候補列を並べた提案を返します。
func fallbackDialogue(semantics *domain.PanelSemantics) domain.DialogueSuggestions {
	suggestions := make([]domain.DialogueSuggestion, len(semantics.Panels))
	for i := range semantics.Panels {
		suggestions[i] = domain.DialogueSuggestion{PanelIndex: i + 1, Candidates: []string{}}
	}
	return domain.DialogueSuggestions{Suggestions: suggestions}
}
