package domain

// SceneIntent は原文から抽出した演出意図です。intent-extraction ステージの出力になります。
type SceneIntent struct {
	SourceText string   `json:"source_text"`
	Summary    string   `json:"summary"`
	Importance string   `json:"importance,omitempty"` // setup / build / climax / cliffhanger
	Pace       string   `json:"pace,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Setting    string   `json:"setting,omitempty"`
	Emotion    string   `json:"emotion,omitempty"`
}

// PanelSemantics は正規化済みプランへ意味情報を充填した結果です。
type PanelSemantics struct {
	Panels Panels `json:"panels"`
}

// RenderSpec はレンダリング直前の最終プロンプト仕様です。
type RenderSpec struct {
	LayoutID       string   `json:"layout_id"`
	AspectRatio    string   `json:"aspect_ratio"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	ReferenceURLs  []string `json:"reference_urls,omitempty"`
}

// RenderResult は生成された画像とそのメタデータです。Data は base64 で保持します。
type RenderResult struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
	Model    string `json:"model,omitempty"`
	ByteSize int    `json:"byte_size"`
}

// DialogueSuggestion は1パネルに対するセリフ候補です。
type DialogueSuggestion struct {
	PanelIndex int      `json:"panel_index"`
	Candidates []string `json:"candidates"`
}

// DialogueSuggestions は dialogue_suggestions アーティファクトのペイロードです。
type DialogueSuggestions struct {
	Suggestions []DialogueSuggestion `json:"suggestions"`
}
