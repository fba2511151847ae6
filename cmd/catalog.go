package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/config"
)

// catalogCmd は、レイアウトカタログを検証して内容を表示するのだ。
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "レイアウトカタログを検証して一覧表示するのだ。",
	Long: `カタログYAMLを読み込んで整合性を検証し、テンプレートと選択規則の
一覧を表示するのだ。--catalog 未指定なら同梱デフォルトを確認できるのだよ。`,
	Example: "  ap-storyboard-go catalog --catalog layouts.yaml",
	RunE:    catalogCommand,
}

func catalogCommand(cmd *cobra.Command, args []string) error {
	catalog, err := config.LoadCatalog(opts.CatalogPath)
	if err != nil {
		return fmt.Errorf("カタログの検証に失敗したのだ: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "default_template: %s\n", catalog.DefaultTemplateID)
	fmt.Fprintf(out, "templates: %d\n", len(catalog.Templates))
	for _, t := range catalog.Templates {
		fmt.Fprintf(out, "  %-12s %d regions  largest=%.2f  %s\n",
			t.ID, t.PanelCount(), t.LargestRegionArea(), t.Description)
	}

	if len(catalog.Rules) > 0 {
		fmt.Fprintf(out, "rules: %d\n", len(catalog.Rules))
		for _, r := range catalog.Rules {
			fmt.Fprintf(out, "  panels=%d importance=%q pace=%q min_max_weight=%.2f -> %s\n",
				r.PanelCount, r.Importance, r.Pace, r.MinMaxWeight, r.TemplateID)
		}
	}
	return nil
}
