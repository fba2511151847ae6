package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
)

// buildCmd は、1シーンの全ステージを実行して成果物を書き出すのだ。
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "物語テキストからストーリーボード一式を生成するのだ。",
	Long: `入力テキストを解析し、意図抽出からレンダリング、ブラインドテストまでの
全ステージを順に実行するのだ。完了後は要約Markdownとページ画像を書き出すのだよ。`,
	Example: "  ap-storyboard-go build -f scene.txt -o output/scene-001",
	PreRunE: requireAPIKeyE,
	RunE:    buildCommand,
}

func init() {
	buildCmd.Flags().StringVarP(&opts.Text, "text", "t", "", "物語テキストを直接指定するのだ。")
	buildCmd.Flags().StringVarP(&opts.InputFile, "file", "f", "", "入力ファイルのパス（'-'で標準入力なのだ）。")
	buildCmd.Flags().StringSliceVar(&opts.ExcludeLayouts, "exclude-layout", nil, "選択から除外するレイアウトIDなのだ（繰り返し指定可）。")
}

func buildCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text, err := resolveInputText()
	if err != nil {
		return err
	}

	subjectID := opts.SubjectID
	if subjectID == "" {
		subjectID = uuid.NewString()
	}

	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	slog.Info("ストーリーボード生成を開始するのだ！",
		"subject", subjectID,
		"text_model", manager.Config().GeminiModel,
		"image_model", manager.Config().GeminiImageModel)

	subject := pipeline.Subject{ID: subjectID, Text: text, ExcludeLayouts: opts.ExcludeLayouts}
	err = manager.Runner().RunPipeline(ctx, subject, func(stage pipeline.StageName) {
		slog.Info("ステージが完了したのだ", "stage", stage)
	})
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	exporter := publisher.NewExporter(manager.Store(), publisher.NewLocalWriter())
	result, err := exporter.Export(ctx, subjectID, publisher.Options{OutputDir: opts.OutputDir})
	if err != nil {
		return fmt.Errorf("成果物の書き出しに失敗したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！",
		"subject", subjectID, "markdown", result.MarkdownPath, "image", result.ImagePath)
	return nil
}

// resolveInputText は --text / --file / 標準入力の優先順で本文を確定するのだ。
func resolveInputText() (string, error) {
	if opts.Text != "" {
		return opts.Text, nil
	}

	if opts.InputFile == "-" || (opts.InputFile == "" && isStdin()) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("標準入力の読み込みに失敗したのだ: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if opts.InputFile != "" {
		data, err := os.ReadFile(opts.InputFile)
		if err != nil {
			return "", fmt.Errorf("入力ファイルの読み込みに失敗したのだ: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	return "", fmt.Errorf("ソース（--text または --file）を指定してほしいのだ")
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
