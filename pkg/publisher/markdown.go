package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// MarkdownBuilder は、確定した成果物一式を人が確認できる Markdown へ整形します。
type MarkdownBuilder struct{}

func NewMarkdownBuilder() *MarkdownBuilder {
	return &MarkdownBuilder{}
}

// Build はストーリーボードの要約 Markdown を生成します。template・report 類は
// nil を許容し、存在する分だけセクションを出力します。
func (mb *MarkdownBuilder) Build(
	plan domain.PanelPlan,
	semantics *domain.PanelSemantics,
	template *domain.LayoutTemplate,
	imagePath string,
	qc *domain.QCReport,
	blind *domain.BlindTestReport,
) string {
	var sb strings.Builder

	title := plan.Title
	if title == "" {
		title = "Storyboard"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	if plan.SceneImportance != "" {
		sb.WriteString(fmt.Sprintf("- importance: %s\n", plan.SceneImportance))
	}
	if plan.Pace != "" {
		sb.WriteString(fmt.Sprintf("- pace: %s\n", plan.Pace))
	}
	if template != nil {
		sb.WriteString(fmt.Sprintf("- layout: %s (%d regions)\n", template.ID, template.PanelCount()))
	}
	if imagePath != "" {
		sb.WriteString(fmt.Sprintf("- image: %s\n", imagePath))
	}
	sb.WriteString("\n")

	// パネル詳細。意味付けがあればそちらの描写とセリフを優先します。
	panels := plan.Panels
	if semantics != nil && len(semantics.Panels) == len(plan.Panels) {
		panels = semantics.Panels
	}
	for i, p := range panels {
		sb.WriteString(fmt.Sprintf("## Panel %d: %s\n", i+1, plan.Panels[i].GrammarID))
		if p.Description != "" {
			sb.WriteString(fmt.Sprintf("- description: %s\n", strings.TrimSpace(p.Description)))
		}
		if p.Dialogue != "" {
			speaker := p.SpeakerID
			if speaker == "" {
				speaker = "narration"
			}
			sb.WriteString(fmt.Sprintf("- speaker: %s\n", speaker))
			sb.WriteString(fmt.Sprintf("- text: %s\n", strings.TrimSpace(p.Dialogue)))
		}
		sb.WriteString("\n")
	}

	if qc != nil {
		sb.WriteString("## QC\n")
		if qc.Passed {
			sb.WriteString("- result: passed\n")
		} else {
			sb.WriteString("- result: failed\n")
			for _, issue := range qc.Issues {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", issue.Code, issue.Message))
			}
		}
		sb.WriteString("\n")
	}

	if blind != nil {
		sb.WriteString("## Blind Test\n")
		sb.WriteString(fmt.Sprintf("- score: %.2f (%d/%d tokens)\n", blind.Score, blind.MatchedTokens, blind.TotalTokens))
		if blind.Reconstruction != "" {
			sb.WriteString(fmt.Sprintf("- reconstruction: %s\n", strings.TrimSpace(blind.Reconstruction)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
