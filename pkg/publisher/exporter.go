// Package publisher は成果物ストアの最新世代をファイルへ書き出します。
package publisher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Options はエクスポート動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// ExportResult はエクスポートで生成されたファイルの情報を保持します。
type ExportResult struct {
	MarkdownPath string // 生成されたストーリーボード要約のパス
	ImagePath    string // 保存されたページ画像のパス（レンダリング結果がない場合は空）
}

const (
	defaultStoryboardName = "storyboard.md"
	defaultImageDirName   = "images"
)

// Exporter は成果物ストアを読み、サブジェクト単位の出力一式を書き出します。
type Exporter struct {
	store    artifact.Store
	writer   OutputWriter
	markdown *MarkdownBuilder
}

// NewExporter は Exporter を初期化します。
func NewExporter(store artifact.Store, writer OutputWriter) *Exporter {
	return &Exporter{
		store:    store,
		writer:   writer,
		markdown: NewMarkdownBuilder(),
	}
}

// Export は subjectID の最新世代を集め、画像と Markdown を書き出します。
// 正規化済みプランだけは必須で、ほかの成果物は存在する分だけ反映します。
func (e *Exporter) Export(ctx context.Context, subjectID string, opts Options) (ExportResult, error) {
	result := ExportResult{}

	var plan domain.PanelPlan
	if err := e.decodeLatest(ctx, subjectID, domain.TypePanelPlanNormalized, &plan); err != nil {
		return result, fmt.Errorf("正規化済みプランの取得に失敗しました: %w", err)
	}

	semantics := &domain.PanelSemantics{}
	if err := e.decodeLatest(ctx, subjectID, domain.TypePanelSemantics, semantics); err != nil {
		semantics = nil
	}
	template := &domain.LayoutTemplate{}
	if err := e.decodeLatest(ctx, subjectID, domain.TypeLayoutTemplate, template); err != nil {
		template = nil
	}
	qc := &domain.QCReport{}
	if err := e.decodeLatest(ctx, subjectID, domain.TypeQCReport, qc); err != nil {
		qc = nil
	}
	blind := &domain.BlindTestReport{}
	if err := e.decodeLatest(ctx, subjectID, domain.TypeBlindTestReport, blind); err != nil {
		blind = nil
	}

	// 画像の保存。レンダリング結果が無いサブジェクトは要約のみ書き出します。
	relImagePath := ""
	var render domain.RenderResult
	err := e.decodeLatest(ctx, subjectID, domain.TypeRenderResult, &render)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		slog.Info("レンダリング結果が無いため要約のみ出力します", "subject", subjectID)
	case err != nil:
		return result, fmt.Errorf("レンダリング結果の取得に失敗しました: %w", err)
	default:
		data, decErr := base64.StdEncoding.DecodeString(render.Data)
		if decErr != nil {
			return result, fmt.Errorf("画像データの復号に失敗しました: %w", decErr)
		}

		name := subjectID + preferredExtension(render.MimeType)
		imgDir, pathErr := ResolveOutputPath(opts.OutputDir, defaultImageDirName)
		if pathErr != nil {
			return result, pathErr
		}
		fullPath, pathErr := ResolveOutputPath(imgDir, name)
		if pathErr != nil {
			return result, pathErr
		}
		if writeErr := e.writer.Write(ctx, fullPath, data); writeErr != nil {
			return result, fmt.Errorf("画像の書き込みに失敗しました: %w", writeErr)
		}
		result.ImagePath = fullPath
		relImagePath = path.Join(defaultImageDirName, filepath.Base(fullPath))
	}

	content := e.markdown.Build(plan, semantics, template, relImagePath, qc, blind)

	markdownPath, err := ResolveOutputPath(opts.OutputDir, defaultStoryboardName)
	if err != nil {
		return result, err
	}
	if err := e.writer.Write(ctx, markdownPath, []byte(content)); err != nil {
		return result, fmt.Errorf("Markdownの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	slog.Info("エクスポートが完了しました", "subject", subjectID, "markdown", result.MarkdownPath, "image", result.ImagePath)
	return result, nil
}

// decodeLatest は最新版の成果物を取り出してデコードします。
func (e *Exporter) decodeLatest(ctx context.Context, subjectID string, artifactType domain.ArtifactType, v any) error {
	latest, err := e.store.GetLatest(ctx, subjectID, artifactType)
	if err != nil {
		return err
	}
	return latest.DecodePayload(v)
}
