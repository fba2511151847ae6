package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
)

// dialogueCmd は、確定済みのコマ割りに対してセリフ候補を追加生成するのだ。
var dialogueCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "生成済みシーンのセリフ差し替え候補を提案させるのだ。",
	Long: `パネル意味付けまで完了したサブジェクトを対象に、各コマのセリフ候補を
生成して新しい成果物として積むのだ。元の成果物は上書きされないのだよ。`,
	Example: "  ap-storyboard-go dialogue -s scene-001",
	PreRunE: requireAPIKeyE,
	RunE:    dialogueCommand,
}

func dialogueCommand(cmd *cobra.Command, args []string) error {
	if opts.SubjectID == "" {
		return fmt.Errorf("対象のサブジェクトID（--subject）を指定してほしいのだ")
	}

	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	created, err := manager.Runner().SuggestDialogue(cmd.Context(), pipeline.Subject{ID: opts.SubjectID})
	if err != nil {
		return fmt.Errorf("セリフ提案の生成に失敗したのだ: %w", err)
	}

	var suggestions domain.DialogueSuggestions
	if err := created.DecodePayload(&suggestions); err != nil {
		return fmt.Errorf("提案の復元に失敗したのだ: %w", err)
	}

	for _, s := range suggestions.Suggestions {
		for _, candidate := range s.Candidates {
			fmt.Fprintf(cmd.OutOrStdout(), "panel %d: %s\n", s.PanelIndex, candidate)
		}
	}

	slog.Info("セリフ提案を記録したのだ！", "subject", opts.SubjectID, "version", created.Version)
	return nil
}
