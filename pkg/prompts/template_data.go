package prompts

import (
	_ "embed"
)

const (
	ModeIntent    = "intent"
	ModePanelPlan = "panel_plan"
	ModeSemantics = "semantics"
	ModeRender    = "render"
	ModeBlindTest = "blind_test"
	ModeDialogue  = "dialogue"
)

// TemplateData は各ステージのプロンプトテンプレートに渡すデータ構造です。
// モードによって使うフィールドは異なります。
type TemplateData struct {
	InputText   string // 原文テキスト
	Summary     string // シーン要約
	Importance  string // setup / build / climax / cliffhanger
	Setting     string // 舞台
	PanelsJSON  string // パネル列のJSON表現
	LayoutID    string
	AspectRatio string
	StyleSuffix string
}

var (
	//go:embed intent.md
	IntentPrompt string
	//go:embed panel_plan.md
	PanelPlanPrompt string
	//go:embed semantics.md
	SemanticsPrompt string
	//go:embed render.md
	RenderPrompt string
	//go:embed blind_test.md
	BlindTestPrompt string
	//go:embed dialogue.md
	DialoguePrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeIntent:    IntentPrompt,
	ModePanelPlan: PanelPlanPrompt,
	ModeSemantics: SemanticsPrompt,
	ModeRender:    RenderPrompt,
	ModeBlindTest: BlindTestPrompt,
	ModeDialogue:  DialoguePrompt,
}
