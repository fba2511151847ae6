package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
)

// exportCmd は、ストア内の最新成果物をファイルへ書き出すのだ。APIは叩かないのだ。
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "生成済みサブジェクトの最新成果物をファイルに書き出すのだ。",
	Long: `成果物ストアから指定サブジェクトの最新世代を集め、要約Markdownと
ページ画像を出力ディレクトリへ書き出すのだ。生成APIには接続しないのだよ。`,
	Example: "  ap-storyboard-go export -s scene-001 -o output/scene-001",
	RunE:    exportCommand,
}

func exportCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SubjectID == "" {
		return fmt.Errorf("対象のサブジェクトID（--subject）を指定してほしいのだ")
	}

	cfg := loadConfig()
	store, err := artifact.OpenSQLite(ctx, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("成果物ストアを開けなかったのだ: %w", err)
	}
	defer store.Close()

	exporter := publisher.NewExporter(store, publisher.NewLocalWriter())
	result, err := exporter.Export(ctx, opts.SubjectID, publisher.Options{OutputDir: opts.OutputDir})
	if err != nil {
		return fmt.Errorf("書き出しに失敗したのだ: %w", err)
	}

	slog.Info("書き出しが完了したのだ！", "markdown", result.MarkdownPath, "image", result.ImagePath)
	return nil
}
