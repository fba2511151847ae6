// Package layout はパネルプランに最適なページテンプレートを選ぶ採点エンジンです。
package layout

import (
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	// 重みの正規化レンジ。utility 0〜1 を [0.12, 1.0] へ写します。
	weightFloor   = 0.12
	weightCeiling = 1.0

	utilityHigh   = 0.9
	utilityMedium = 0.55
	utilityLow    = 0.2
)

// Features はテンプレート採点に使うプランの特徴量です。
type Features struct {
	PanelCount         int
	SceneImportance    string
	Weights            []float64
	MaxWeight          float64
	AvgWeight          float64
	LargePanelCount    int
	DialogueRatio      float64
	HasAction          bool
	DistinctCharacters int
}

// ExtractFeatures はプランから特徴量を計算します。scene_importance が
// 未指定の場合は "build" を既定とします。
func ExtractFeatures(plan domain.PanelPlan) Features {
	f := Features{
		PanelCount:      len(plan.Panels),
		SceneImportance: plan.SceneImportance,
		DialogueRatio:   plan.Panels.DialogueRatio(),
	}
	if f.SceneImportance == "" {
		f.SceneImportance = "build"
	}

	f.Weights = make([]float64, 0, len(plan.Panels))
	sum := 0.0
	for _, p := range plan.Panels {
		w := PanelWeight(p)
		f.Weights = append(f.Weights, w)
		sum += w

		if w > f.MaxWeight {
			f.MaxWeight = w
		}
		if w >= largeWeightThreshold {
			f.LargePanelCount++
		}
		if p.GrammarID == domain.TagAction {
			f.HasAction = true
		}
	}
	if len(f.Weights) > 0 {
		f.AvgWeight = sum / float64(len(f.Weights))
	}

	f.DistinctCharacters = len(plan.Panels.UniqueSpeakerIDs())
	return f
}

// largeWeightThreshold 以上の重みを持つパネルを「大ゴマ候補」と数えます。
const largeWeightThreshold = 0.3

// PanelWeight は1パネルの重みを返します。パネル自身が重みを持っていれば
// それを優先し、無ければ 0〜1 の utility スコアから [0.12, 1.0] へ正規化します。
// utility はセリフ持ちで高く、reveal / reaction / action で中、それ以外は低です。
func PanelWeight(p domain.Panel) float64 {
	if p.Weight > 0 {
		return clampWeight(p.Weight)
	}

	utility := p.Utility
	if utility <= 0 {
		switch {
		case p.Dialogue != "":
			utility = utilityHigh
		case p.GrammarID == domain.TagReveal || p.GrammarID == domain.TagReaction || p.GrammarID == domain.TagAction:
			utility = utilityMedium
		default:
			utility = utilityLow
		}
	}

	return clampWeight(weightFloor + utility*(weightCeiling-weightFloor))
}

func clampWeight(w float64) float64 {
	if w < weightFloor {
		return weightFloor
	}
	if w > weightCeiling {
		return weightCeiling
	}
	return w
}
