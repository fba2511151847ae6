package panel

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Thresholds はQC検査の閾値と参照語彙です。設定コラボレータから供給されます。
type Thresholds struct {
	MaxCloseupRatio     float64  `yaml:"max_closeup_ratio"`
	MaxDialogueRatio    float64  `yaml:"max_dialogue_ratio"`
	MaxRepeatedRun      int      `yaml:"max_repeated_run"`
	EnvironmentKeywords []string `yaml:"environment_keywords"`
}

// DefaultThresholds は推奨されるデフォルト閾値を返します。
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxCloseupRatio:  0.5,
		MaxDialogueRatio: 0.8,
		MaxRepeatedRun:   2,
		EnvironmentKeywords: []string{
			"森", "街", "部屋", "夜", "朝", "空", "海", "学校", "路地", "室内", "屋外", "廊下",
			"forest", "city", "street", "room", "night", "morning", "sky", "sea", "school", "alley", "indoor", "outdoor",
		},
	}
}

// Check は正規化済みプランを閾値と突き合わせ、読み取り専用の診断を返します。
// semantics が nil でなければセリフ比率はそちらのパネル列から計算します。
// プランを変更することはありません。パネル0枚は常にハード失敗です。
func Check(plan domain.PanelPlan, semantics *domain.PanelSemantics, th Thresholds) domain.QCReport {
	report := domain.QCReport{Metrics: map[string]float64{}}

	panels := plan.Panels
	report.Metrics["panel_count"] = float64(len(panels))

	if len(panels) == 0 {
		report.Issues = append(report.Issues, domain.QCIssue{
			Code:    "empty_plan",
			Message: "パネルが1枚も存在しません",
			Hint:    "プラン生成ステージの出力を確認してください",
		})
		return report
	}

	closeupRatio := float64(panels.CountTag(domain.TagEmotionCloseup)) / float64(len(panels))
	report.Metrics["closeup_ratio"] = closeupRatio
	if closeupRatio > th.MaxCloseupRatio {
		report.Issues = append(report.Issues, domain.QCIssue{
			Code:    "closeup_ratio_exceeded",
			Message: fmt.Sprintf("emotion_closeupの比率 %.2f が閾値 %.2f を超えています", closeupRatio, th.MaxCloseupRatio),
			Hint:    "クローズアップの一部を reaction や dialogue_medium に振り替えてください",
		})
	}

	dialoguePanels := panels
	if semantics != nil {
		dialoguePanels = semantics.Panels
	}
	dialogueRatio := dialoguePanels.DialogueRatio()
	report.Metrics["dialogue_ratio"] = dialogueRatio
	if dialogueRatio > th.MaxDialogueRatio {
		report.Issues = append(report.Issues, domain.QCIssue{
			Code:    "dialogue_ratio_exceeded",
			Message: fmt.Sprintf("セリフ付きパネルの比率 %.2f が閾値 %.2f を超えています", dialogueRatio, th.MaxDialogueRatio),
			Hint:    "無言のリアクションや情景パネルで間を作ってください",
		})
	}

	maxRun := panels.MaxRepeatedRun()
	report.Metrics["max_repeated_run"] = float64(maxRun)
	if th.MaxRepeatedRun > 0 && maxRun > th.MaxRepeatedRun {
		report.Issues = append(report.Issues, domain.QCIssue{
			Code:    "repeated_run_exceeded",
			Message: fmt.Sprintf("同一タグが %d 連続しています (許容は %d)", maxRun, th.MaxRepeatedRun),
			Hint:    "ショットの種類を切り替えてリズムを作ってください",
		})
	}

	if issue := checkEstablishingEnvironment(panels, th.EnvironmentKeywords); issue != nil {
		report.Issues = append(report.Issues, *issue)
	}

	report.Passed = len(report.Issues) == 0
	return report
}

// checkEstablishingEnvironment は最初の establishing パネルの描写に
// 既知の環境キーワードが含まれるかを確かめます。
func checkEstablishingEnvironment(panels domain.Panels, keywords []string) *domain.QCIssue {
	for _, p := range panels {
		if p.GrammarID != domain.TagEstablishing {
			continue
		}

		desc := strings.ToLower(p.Description)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
				return nil
			}
		}
		return &domain.QCIssue{
			Code:    "establishing_without_environment",
			Message: fmt.Sprintf("establishing パネル %d の描写に環境キーワードが見つかりません", p.Index),
			Hint:    "場所や時間帯が分かる語を描写に含めてください",
		}
	}
	return nil
}
