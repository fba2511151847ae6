package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
)

// statusCmd は、ストア内の成果物世代を一覧表示するのだ。
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "サブジェクトの成果物世代を一覧表示するのだ。",
	Long: `成果物ストアを読み、指定サブジェクトのタイプ別バージョン履歴を表示するのだ。
どのステージまで進んだか、何度やり直したかが一目で分かるのだよ。`,
	Example: "  ap-storyboard-go status -s scene-001",
	RunE:    statusCommand,
}

func statusCommand(cmd *cobra.Command, args []string) error {
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

	// タイプ指定なしで全成果物を取り出すのだ
	artifacts, err := store.List(ctx, opts.SubjectID, "")
	if err != nil {
		return fmt.Errorf("成果物の一覧取得に失敗したのだ: %w", err)
	}
	if len(artifacts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "サブジェクト %s の成果物は見つからなかったのだ\n", opts.SubjectID)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "subject: %s\n", opts.SubjectID)
	for _, a := range artifacts {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s v%-3d %s (%d bytes)\n",
			a.Type, a.Version, a.CreatedAt.Format("2006-01-02 15:04:05"), len(a.Payload))
	}
	return nil
}
