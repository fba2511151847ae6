package panel

import (
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestCheck(t *testing.T) {
	th := DefaultThresholds()

	t.Run("パネル0枚は常にハード失敗なのだ", func(t *testing.T) {
		report := Check(domain.PanelPlan{}, nil, th)
		if report.Passed {
			t.Fatal("空プランで合格してしまったのだ")
		}
		if len(report.Issues) != 1 || report.Issues[0].Code != "empty_plan" {
			t.Errorf("empty_plan の指摘が出ていないのだ: %+v", report.Issues)
		}
	})

	t.Run("健全なプランは合格するのだ", func(t *testing.T) {
		plan := domain.PanelPlan{Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Description: "夜の路地に雨が降る"},
			{Index: 2, GrammarID: domain.TagDialogueMedium, Dialogue: "誰だ？"},
			{Index: 3, GrammarID: domain.TagReveal},
		}}
		report := Check(plan, nil, th)
		if !report.Passed {
			t.Errorf("合格するはずが指摘が出たのだ: %+v", report.Issues)
		}
		if report.Metrics["panel_count"] != 3 {
			t.Errorf("panel_count が違うのだ: %v", report.Metrics)
		}
	})

	t.Run("closeup比率超過は指摘されるのだ", func(t *testing.T) {
		plan := domain.PanelPlan{Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Description: "森の中"},
			{Index: 2, GrammarID: domain.TagEmotionCloseup},
			{Index: 3, GrammarID: domain.TagEmotionCloseup},
			{Index: 4, GrammarID: domain.TagEmotionCloseup},
		}}
		report := Check(plan, nil, th)
		if report.Passed {
			t.Fatal("比率超過で合格してしまったのだ")
		}
		if !hasIssue(report, "closeup_ratio_exceeded") {
			t.Errorf("closeup_ratio_exceeded が出ていないのだ: %+v", report.Issues)
		}
	})

	t.Run("セリフ比率はsemanticsがあればそちらで測るのだ", func(t *testing.T) {
		plan := domain.PanelPlan{Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Description: "教室 school"},
			{Index: 2, GrammarID: domain.TagDialogueMedium},
			{Index: 3, GrammarID: domain.TagReaction},
		}}
		semantics := &domain.PanelSemantics{Panels: domain.Panels{
			{Index: 1, Dialogue: "a"},
			{Index: 2, Dialogue: "b"},
			{Index: 3, Dialogue: "c"},
		}}
		report := Check(plan, semantics, th)
		if report.Metrics["dialogue_ratio"] != 1.0 {
			t.Errorf("semantics側の比率で測っていないのだ: %v", report.Metrics)
		}
		if !hasIssue(report, "dialogue_ratio_exceeded") {
			t.Errorf("dialogue_ratio_exceeded が出ていないのだ: %+v", report.Issues)
		}
	})

	t.Run("同一タグの長い連続は指摘されるのだ", func(t *testing.T) {
		plan := domain.PanelPlan{Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Description: "海辺"},
			{Index: 2, GrammarID: domain.TagAction},
			{Index: 3, GrammarID: domain.TagAction},
			{Index: 4, GrammarID: domain.TagAction},
			{Index: 5, GrammarID: domain.TagReaction},
		}}
		report := Check(plan, nil, th)
		if !hasIssue(report, "repeated_run_exceeded") {
			t.Errorf("repeated_run_exceeded が出ていないのだ: %+v", report.Issues)
		}
		if report.Metrics["max_repeated_run"] != 3 {
			t.Errorf("max_repeated_run の計測が違うのだ: %v", report.Metrics)
		}
	})

	t.Run("establishingの描写に環境語がないと指摘されるのだ", func(t *testing.T) {
		plan := domain.PanelPlan{Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Description: "ふたりが向かい合う"},
			{Index: 2, GrammarID: domain.TagReaction},
		}}
		report := Check(plan, nil, th)
		if !hasIssue(report, "establishing_without_environment") {
			t.Errorf("環境キーワードの指摘が出ていないのだ: %+v", report.Issues)
		}
	})
}

func hasIssue(report domain.QCReport, code string) bool {
	for _, issue := range report.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
