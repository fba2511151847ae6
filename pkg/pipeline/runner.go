package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/genclient"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

// Generator は回復性クライアントへの契約です。genclient.Client がこれを満たします。
type Generator interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
	GenerateImage(ctx context.Context, prompt, model string, referenceURLs []string) ([]byte, string, error)
}

// Extractor は自由形式のモデル出力から構造を復元する契約です。
type Extractor interface {
	ExtractInto(ctx context.Context, raw, schemaHint string, v any) bool
}

// CatalogSource はカタログの現在スナップショットを供給します。
// config.CatalogProvider がこれを満たします（ホットリロード対応）。
type CatalogSource interface {
	Snapshot() *config.Catalog
}

// Subject はパイプラインの処理単位（1つの物語シーン）です。
type Subject struct {
	ID   string
	Text string

	// ExcludeLayouts は避けたいレイアウトID（直前シーンと同型の連続回避など）です。
	ExcludeLayouts []string
}

// Runner は固定ステージ表を上から順に実行し、成果物をストアへ積み上げます。
type Runner struct {
	store     artifact.Store
	gen       Generator
	extractor Extractor
	builder   prompts.PromptBuilder
	catalog   CatalogSource
	cfg       config.Config
}

// NewRunner は依存関係を検証して Runner を初期化します。
func NewRunner(store artifact.Store, gen Generator, extractor Extractor, builder prompts.PromptBuilder, catalog CatalogSource, cfg config.Config) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("artifact.Store は必須です")
	}
	if gen == nil {
		return nil, fmt.Errorf("Generator は必須です")
	}
	if extractor == nil {
		return nil, fmt.Errorf("Extractor は必須です")
	}
	if builder == nil {
		return nil, fmt.Errorf("PromptBuilder は必須です")
	}
	if catalog == nil {
		return nil, fmt.Errorf("CatalogSource は必須です")
	}

	return &Runner{
		store:     store,
		gen:       gen,
		extractor: extractor,
		builder:   builder,
		catalog:   catalog,
		cfg:       cfg,
	}, nil
}

// RunPipeline は1サブジェクトの全ステージを依存順に実行します。onStage は
// 各ステージの成果物が確定するたびに呼ばれます（nil 可）。
// 既に成果物を持つサブジェクトを再実行すると、履歴を壊さず新バージョンが積まれます。
func (r *Runner) RunPipeline(ctx context.Context, subject Subject, onStage func(StageName)) error {
	for _, stage := range Stages {
		if _, err := r.RunStage(ctx, subject, stage.Name); err != nil {
			return err
		}
		if onStage != nil {
			onStage(stage.Name)
		}
	}
	return nil
}

// RunStage は単一ステージを実行し、作成した成果物を返します。
// 前提成果物の欠落は即時失敗で、再試行されません。
func (r *Runner) RunStage(ctx context.Context, subject Subject, name StageName) (*domain.Artifact, error) {
	stage, ok := FindStage(name)
	if !ok {
		return nil, fmt.Errorf("未知のステージです: %s", name)
	}

	inputs := make(map[domain.ArtifactType]*domain.Artifact, len(stage.Requires))
	for _, required := range stage.Requires {
		input, err := r.store.GetLatest(ctx, subject.ID, required)
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, &StageError{Stage: name, SubjectID: subject.ID, Err: &MissingPrerequisiteError{Stage: name, Missing: required}}
		}
		if err != nil {
			return nil, &StageError{Stage: name, SubjectID: subject.ID, Err: err}
		}
		inputs[required] = input
	}

	payload, err := r.execute(ctx, subject, stage, inputs)
	if err != nil && stage.HasFallback && fallbackEligible(err) {
		slog.Warn("ステージをヒューリスティックで代替します",
			"stage", stage.Name, "subject", subject.ID, "cause", err)
		payload, err = r.fallback(subject, stage, inputs)
	}
	if err != nil {
		return nil, &StageError{Stage: name, SubjectID: subject.ID, Err: err}
	}

	data, err := domain.EncodePayload(payload)
	if err != nil {
		return nil, &StageError{Stage: name, SubjectID: subject.ID, Err: fmt.Errorf("ペイロードの変換に失敗しました: %w", err)}
	}

	created, err := r.store.Create(ctx, subject.ID, stage.Produces, data, "")
	if err != nil {
		return nil, &StageError{Stage: name, SubjectID: subject.ID, Err: err}
	}

	slog.Info("ステージの成果物を記録しました",
		"stage", stage.Name, "subject", subject.ID, "type", created.Type, "version", created.Version)
	return created, nil
}

// fallbackEligible は「生成呼び出しの失敗」系のみを代替対象とします。
// 前提欠落やストア障害はそのまま伝播させます。
func fallbackEligible(err error) bool {
	if errors.Is(err, ErrMalformedOutput) {
		return true
	}
	var genErr *genclient.GenerationError
	if errors.As(err, &genErr) {
		return true
	}
	var openErr *genclient.CircuitOpenError
	return errors.As(err, &openErr)
}

// execute はステージ名を実装へ振り分けます。
func (r *Runner) execute(ctx context.Context, subject Subject, stage Stage, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	switch stage.Name {
	case StageIntent:
		return r.extractIntent(ctx, subject)
	case StagePanelPlan:
		return r.generatePanelPlan(ctx, inputs)
	case StageNormalize:
		return r.normalizePlan(inputs)
	case StageLayout:
		return r.resolveLayout(subject, inputs)
	case StageSemantics:
		return r.fillSemantics(ctx, inputs)
	case StageQC:
		return r.runQC(inputs)
	case StageCompile:
		return r.compileRenderSpec(inputs)
	case StageRender:
		return r.render(ctx, inputs)
	case StageBlindTest:
		return r.runBlindTest(ctx, inputs)
	default:
		return nil, fmt.Errorf("ステージ %s の実装がありません", stage.Name)
	}
}

// fallback は定義済みヒューリスティックへ振り分けます。
func (r *Runner) fallback(subject Subject, stage Stage, inputs map[domain.ArtifactType]*domain.Artifact) (any, error) {
	switch stage.Name {
	case StagePanelPlan:
		return r.fallbackPanelPlan(inputs)
	case StageNormalize:
		return r.fallbackNormalize(inputs)
	case StageLayout:
		return r.fallbackLayout(subject, inputs)
	case StageSemantics:
		return r.fallbackSemantics(inputs)
	default:
		return nil, fmt.Errorf("ステージ %s にヒューリスティックは定義されていません", stage.Name)
	}
}
