package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// SuggestDialogue は確定済みの意味付けに対して台詞の差し替え候補を生成します。
// ステージ表の外にある補助操作で、実行のたびに新バージョンを積みます。
func (r *Runner) SuggestDialogue(ctx context.Context, subject Subject) (*domain.Artifact, error) {
	input, err := r.store.GetLatest(ctx, subject.ID, domain.TypePanelSemantics)
	if errors.Is(err, artifact.ErrNotFound) {
		return nil, &MissingPrerequisiteError{Stage: "dialogue-suggestion", Missing: domain.TypePanelSemantics}
	}
	if err != nil {
		return nil, err
	}

	var semantics domain.PanelSemantics
	if err := input.DecodePayload(&semantics); err != nil {
		return nil, fmt.Errorf("パネル意味付けの復元に失敗しました: %w", err)
	}

	panelsJSON, err := json.Marshal(semantics.Panels)
	if err != nil {
		return nil, fmt.Errorf("パネル列の変換に失敗しました: %w", err)
	}

	prompt, err := r.builder.Build(prompts.ModeDialogue, prompts.TemplateData{PanelsJSON: string(panelsJSON)})
	if err != nil {
		return nil, err
	}

	var suggestions domain.DialogueSuggestions
	raw, err := r.gen.GenerateText(ctx, prompt, r.cfg.GeminiModel)
	switch {
	case err == nil:
		if !r.extractor.ExtractInto(ctx, raw, "DialogueSuggestions (suggestions[] with panel_index and candidates)", &suggestions) {
			err = ErrMalformedOutput
		}
	case !fallbackEligible(err):
		return nil, err
	}
	if err != nil {
		// 生成が使えないときは空候補で世代だけ進めます。
		slog.Warn("台詞候補をヒューリスティックで代替します", "subject", subject.ID, "cause", err)
		suggestions = fallbackDialogue(&semantics)
	}

	payload, err := domain.EncodePayload(suggestions)
	if err != nil {
		return nil, fmt.Errorf("ペイロードの変換に失敗しました: %w", err)
	}
	return r.store.Create(ctx, subject.ID, domain.TypeDialogueSuggestions, payload, input.ID)
}
