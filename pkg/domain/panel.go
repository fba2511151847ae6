package domain

// GrammarTag はパネルの視覚文法（ショットの役割）を表す固定語彙です。
type GrammarTag string

const (
	TagEstablishing   GrammarTag = "establishing"
	TagDialogueMedium GrammarTag = "dialogue_medium"
	TagEmotionCloseup GrammarTag = "emotion_closeup"
	TagAction         GrammarTag = "action"
	TagReaction       GrammarTag = "reaction"
	TagObjectFocus    GrammarTag = "object_focus"
	TagReveal         GrammarTag = "reveal"
	TagImpactSilence  GrammarTag = "impact_silence"
)

// GrammarVocabulary は正規の文法タグ一覧です（出現順は意味を持ちません）。
var GrammarVocabulary = []GrammarTag{
	TagEstablishing,
	TagDialogueMedium,
	TagEmotionCloseup,
	TagAction,
	TagReaction,
	TagObjectFocus,
	TagReveal,
	TagImpactSilence,
}

// IsValidGrammarTag は tag が固定語彙に含まれるかを判定します。
func IsValidGrammarTag(tag GrammarTag) bool {
	for _, t := range GrammarVocabulary {
		if t == tag {
			return true
		}
	}
	return false
}

// Panel は生成されたページ構成の1コマです。Index は 1 始まりで連続します。
type Panel struct {
	Index       int        `json:"index"`
	GrammarID   GrammarTag `json:"grammar_id"`
	Function    string     `json:"function,omitempty"`
	Description string     `json:"description,omitempty"`
	Dialogue    string     `json:"dialogue,omitempty"`
	SpeakerID   string     `json:"speaker_id,omitempty"`

	// 後段のステージが付与するメタデータ
	Weight  float64 `json:"weight,omitempty"`
	Utility float64 `json:"utility,omitempty"`
	Role    string  `json:"role,omitempty"`
}

// Panels はパネル列に対するヘルパーを提供します。
type Panels []Panel

// PanelPlan はパネルプラン系アーティファクトのペイロードです。
type PanelPlan struct {
	Title           string `json:"title,omitempty"`
	SceneImportance string `json:"scene_importance,omitempty"`
	Pace            string `json:"pace,omitempty"`
	Panels          Panels `json:"panels"`
}
