package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/panel"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// extractIntent は原文テキストからシーンの意図を抽出します。
func (r *Runner) extractIntent(ctx context.Context, subject Subject) (any, error) {
	prompt, err := r.builder.Build(prompts.ModeIntent, prompts.TemplateData{InputText: subject.Text})
	if err != nil {
		return nil, err
	}

	raw, err := r.gen.GenerateText(ctx, prompt, r.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	var intent domain.SceneIntent
	if !r.extractor.ExtractInto(ctx, raw, "SceneIntent (summary, importance, pace, characters, setting, emotion)", &intent) {
		return nil, ErrMalformedOutput
	}

	// 原文はモデル出力を信用せず、常に入力の方を保持します。
	intent.SourceText = subject.Text
	if intent.Importance == "" {
		intent.Importance = "build"
	}
	if intent.Pace == "" {
		intent.Pace = "normal"
	}
	return intent, nil
}

// generatePanelPlan は意図からパネル構成案を生成します。
func (r *Runner) generatePanelPlan(ctx context.Context, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var intent domain.SceneIntent
	if err := inputs[domain.TypeSceneIntent].DecodePayload(&intent); err != nil {
		return nil, fmt.Errorf("シーン意図の復元に失敗しました: %w", err)
	}

	prompt, err := r.builder.Build(prompts.ModePanelPlan, prompts.TemplateData{
		InputText:  intent.SourceText,
		Summary:    intent.Summary,
		Importance: intent.Importance,
		Setting:    intent.Setting,
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.gen.GenerateText(ctx, prompt, r.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	var plan domain.PanelPlan
	if !r.extractor.ExtractInto(ctx, raw, "PanelPlan (title, scene_importance, pace, panels[])", &plan) {
		return nil, ErrMalformedOutput
	}
	if len(plan.Panels) == 0 {
		return nil, ErrMalformedOutput
	}

	if plan.SceneImportance == "" {
		plan.SceneImportance = intent.Importance
	}
	if plan.Pace == "" {
		plan.Pace = intent.Pace
	}
	plan.Panels.Reindex()
	return plan, nil
}

// normalizePlan は決定的な整形パス列を適用します。生成呼び出しはありません。
func (r *Runner) normalizePlan(inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var plan domain.PanelPlan
	if err := inputs[domain.TypePanelPlan].DecodePayload(&plan); err != nil {
		return nil, fmt.Errorf("パネル構成案の復元に失敗しました: %w", err)
	}

	plan.Panels = panel.Normalize(plan.Panels)
	return plan, nil
}

// resolveLayout は正規化済み構成案からレイアウトテンプレートを決定します。
func (r *Runner) resolveLayout(subject Subject, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var plan domain.PanelPlan
	if err := inputs[domain.TypePanelPlanNormalized].DecodePayload(&plan); err != nil {
		return nil, fmt.Errorf("正規化済み構成案の復元に失敗しました: %w", err)
	}

	exclude := make(map[string]bool, len(subject.ExcludeLayouts))
	for _, id := range subject.ExcludeLayouts {
		exclude[id] = true
	}

	engine := r.catalog.Snapshot().NewLayoutEngine()
	template, err := engine.Select(plan, exclude)
	if err != nil {
		return nil, fmt.Errorf("レイアウト決定に失敗しました: %w", err)
	}
	return template, nil
}

// fillSemantics は各パネルへ描画向けの意味付け（構図・演出・台詞）を与えます。
func (r *Runner) fillSemantics(ctx context.Context, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var intent domain.SceneIntent
	if err := inputs[domain.TypeSceneIntent].DecodePayload(&intent); err != nil {
		return nil, fmt.Errorf("シーン意図の復元に失敗しました: %w", err)
	}
	var plan domain.PanelPlan
	if err := inputs[domain.TypePanelPlanNormalized].DecodePayload(&plan); err != nil {
		return nil, fmt.Errorf("正規化済み構成案の復元に失敗しました: %w", err)
	}
	var template domain.LayoutTemplate
	if err := inputs[domain.TypeLayoutTemplate].DecodePayload(&template); err != nil {
		return nil, fmt.Errorf("レイアウトテンプレートの復元に失敗しました: %w", err)
	}

	panelsJSON, err := json.Marshal(plan.Panels)
	if err != nil {
		return nil, fmt.Errorf("パネル列の変換に失敗しました: %w", err)
	}

	prompt, err := r.builder.Build(prompts.ModeSemantics, prompts.TemplateData{
		InputText:  intent.SourceText,
		Summary:    intent.Summary,
		Importance: intent.Importance,
		Setting:    intent.Setting,
		PanelsJSON: string(panelsJSON),
		LayoutID:   template.ID,
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.gen.GenerateText(ctx, prompt, r.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	var semantics domain.PanelSemantics
	if !r.extractor.ExtractInto(ctx, raw, "PanelSemantics (panels[] with description and dialogue)", &semantics) {
		return nil, ErrMalformedOutput
	}
	// パネル数が合わない意味付けは下流を壊すので不正出力として扱います。
	if len(semantics.Panels) != len(plan.Panels) {
		return nil, ErrMalformedOutput
	}

	semantics.Panels.Reindex()
	return semantics, nil
}

// runQC は正規化済み構成案と意味付けに対して閾値検査を走らせます。
func (r *Runner) runQC(inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var plan domain.PanelPlan
	if err := inputs[domain.TypePanelPlanNormalized].DecodePayload(&plan); err != nil {
		return nil, fmt.Errorf("正規化済み構成案の復元に失敗しました: %w", err)
	}
	var semantics domain.PanelSemantics
	if err := inputs[domain.TypePanelSemantics].DecodePayload(&semantics); err != nil {
		return nil, fmt.Errorf("パネル意味付けの復元に失敗しました: %w", err)
	}

	return panel.Check(plan, &semantics, r.catalog.Snapshot().QC), nil
}

// compileRenderSpec は意味付けとレイアウトを1本の描画プロンプトへ畳み込みます。
func (r *Runner) compileRenderSpec(inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var semantics domain.PanelSemantics
	if err := inputs[domain.TypePanelSemantics].DecodePayload(&semantics); err != nil {
		return nil, fmt.Errorf("パネル意味付けの復元に失敗しました: %w", err)
	}
	var template domain.LayoutTemplate
	if err := inputs[domain.TypeLayoutTemplate].DecodePayload(&template); err != nil {
		return nil, fmt.Errorf("レイアウトテンプレートの復元に失敗しました: %w", err)
	}

	panelsJSON, err := json.Marshal(semantics.Panels)
	if err != nil {
		return nil, fmt.Errorf("パネル列の変換に失敗しました: %w", err)
	}

	aspectRatio := template.AspectRatio
	if aspectRatio == "" {
		aspectRatio = r.cfg.AspectRatio
	}

	prompt, err := r.builder.Build(prompts.ModeRender, prompts.TemplateData{
		PanelsJSON:  string(panelsJSON),
		LayoutID:    template.ID,
		AspectRatio: aspectRatio,
		StyleSuffix: r.cfg.StyleSuffix,
	})
	if err != nil {
		return nil, err
	}

	return domain.RenderSpec{
		LayoutID:       template.ID,
		AspectRatio:    aspectRatio,
		Prompt:         prompt,
		NegativePrompt: r.cfg.NegativePrompt,
	}, nil
}

// render は描画仕様を画像モデルへ渡し、結果をペイロードへ埋め込みます。
func (r *Runner) render(ctx context.Context, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var spec domain.RenderSpec
	if err := inputs[domain.TypeRenderSpec].DecodePayload(&spec); err != nil {
		return nil, fmt.Errorf("描画仕様の復元に失敗しました: %w", err)
	}

	data, mimeType, err := r.gen.GenerateImage(ctx, spec.Prompt, r.cfg.GeminiImageModel, spec.ReferenceURLs)
	if err != nil {
		return nil, err
	}

	return domain.RenderResult{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
		Model:    r.cfg.GeminiImageModel,
		ByteSize: len(data),
	}, nil
}

// runBlindTest は意味付けのみから物語を再構成させ、原文との語彙重なりを測ります。
// 台詞は伏せて渡します。構成案が原文の情報をどれだけ運べているかの目安です。
func (r *Runner) runBlindTest(ctx context.Context, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	var intent domain.SceneIntent
	if err := inputs[domain.TypeSceneIntent].DecodePayload(&intent); err != nil {
		return nil, fmt.Errorf("シーン意図の復元に失敗しました: %w", err)
	}
	var semantics domain.PanelSemantics
	if err := inputs[domain.TypePanelSemantics].DecodePayload(&semantics); err != nil {
		return nil, fmt.Errorf("パネル意味付けの復元に失敗しました: %w", err)
	}

	masked := semantics.Panels.Clone()
	for i := range masked {
		masked[i].Dialogue = ""
	}
	panelsJSON, err := json.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("パネル列の変換に失敗しました: %w", err)
	}

	prompt, err := r.builder.Build(prompts.ModeBlindTest, prompts.TemplateData{PanelsJSON: string(panelsJSON)})
	if err != nil {
		return nil, err
	}

	reconstruction, err := r.gen.GenerateText(ctx, prompt, r.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	matched, total := tokenOverlap(intent.SourceText, reconstruction)
	report := domain.BlindTestReport{
		Reconstruction: reconstruction,
		MatchedTokens:  matched,
		TotalTokens:    total,
	}
	if total > 0 {
		report.Score = float64(matched) / float64(total)
	}
	return report, nil
}
