package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
)

var batchWorkers int

// batchCmd は、複数シーンをまとめて処理するのだ。
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "複数シーンのストーリーボードを並列で一括生成するのだ。",
	Long: `シーン定義のJSON配列（[{"id": "...", "text": "..."}]）を読み込み、
各シーンの全ステージを並列に実行するのだ。1件の失敗でバッチ全体は止まらないのだよ。`,
	Example: "  ap-storyboard-go batch -f scenes.json -o output --workers 2",
	PreRunE: requireAPIKeyE,
	RunE:    batchCommand,
}

func init() {
	batchCmd.Flags().StringVarP(&opts.InputFile, "file", "f", "", "シーン定義JSONのパスなのだ。")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 2, "並列実行するワーカー数なのだ。")
}

// sceneEntry はバッチ入力の1要素なのだ。
type sceneEntry struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// logSink は進捗をログへ流すだけの ProgressSink なのだ。
type logSink struct{}

func (logSink) StageCompleted(subject pipeline.Subject, stage pipeline.StageName) {
	slog.Info("ステージが完了したのだ", "subject", subject.ID, "stage", stage)
}

func (logSink) SubjectFinished(subject pipeline.Subject, err error) {
	if err != nil {
		slog.Error("シーンの処理に失敗したのだ", "subject", subject.ID, "error", err)
		return
	}
	slog.Info("シーンの処理が完了したのだ", "subject", subject.ID)
}

func batchCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.InputFile == "" {
		return fmt.Errorf("シーン定義（--file）を指定してほしいのだ")
	}
	subjects, err := loadScenes(opts.InputFile)
	if err != nil {
		return err
	}

	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	slog.Info("バッチ処理を開始するのだ！", "scenes", len(subjects), "workers", batchWorkers)

	results, err := manager.Runner().RunBatch(ctx, subjects, logSink{}, batchWorkers)
	if err != nil {
		return fmt.Errorf("バッチ実行が中断されたのだ: %w", err)
	}

	exporter := publisher.NewExporter(manager.Store(), publisher.NewLocalWriter())
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if _, err := exporter.Export(ctx, r.Subject.ID, publisher.Options{OutputDir: opts.OutputDir}); err != nil {
			slog.Error("成果物の書き出しに失敗したのだ", "subject", r.Subject.ID, "error", err)
			failed++
		}
	}

	slog.Info("バッチ処理が完了したのだ！", "total", len(results), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d 件のシーンが失敗したのだ", failed)
	}
	return nil
}

// loadScenes はシーン定義JSONを読み込み、IDの欠けた要素へ採番するのだ。
func loadScenes(path string) ([]pipeline.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("シーン定義の読み込みに失敗したのだ: %w", err)
	}

	var entries []sceneEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("シーン定義の解析に失敗したのだ: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("シーン定義が空なのだ")
	}

	subjects := make([]pipeline.Subject, 0, len(entries))
	for i, entry := range entries {
		if entry.Text == "" {
			return nil, fmt.Errorf("シーン %d に text が無いのだ", i+1)
		}
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}
		subjects = append(subjects, pipeline.Subject{ID: id, Text: entry.Text})
	}
	return subjects, nil
}
