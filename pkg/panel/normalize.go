// Package panel はパネルプランに対する決定的なペーシング規則の適用と検査を提供します。
package panel

import (
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// closingTags は最終パネルに許される締めのタグ集合です。
var closingTags = map[domain.GrammarTag]struct{}{
	domain.TagReaction:      {},
	domain.TagReveal:        {},
	domain.TagImpactSilence: {},
}

// Normalize はパネル列へペーシング不変条件を1パスずつ順に適用し、
// 正規化済みの新しい列を返します。入力は変更しません。冪等です。
//
// 適用順: 語彙外タグの置換 → 単パネル特例 → 先頭の establishing 強制 →
// 末尾の締めタグ強制 → emotion_closeup の上限 → 同一タグ3連以上の解消。
func Normalize(panels domain.Panels) domain.Panels {
	normalized := panels.Clone()
	normalized.Reindex()

	// 1. 語彙外タグは dialogue_medium へ置き換える
	for i := range normalized {
		if !domain.IsValidGrammarTag(normalized[i].GrammarID) {
			normalized[i].GrammarID = domain.TagDialogueMedium
		}
	}

	// 2. 単パネルのプランは establishing 固定で終わり
	if len(normalized) == 1 {
		normalized[0].GrammarID = domain.TagEstablishing
		return normalized
	}
	if len(normalized) == 0 {
		return normalized
	}

	// 3. 先頭パネルは必ず establishing
	normalized[0].GrammarID = domain.TagEstablishing

	// 4. 末尾パネルは締めタグ集合に入れる
	last := len(normalized) - 1
	if _, ok := closingTags[normalized[last].GrammarID]; !ok {
		normalized[last].GrammarID = domain.TagReaction
	}

	// 5. emotion_closeup は max(1, floor(n*0.5)) 枚まで。超過分は出現順に reaction へ
	capCloseups(normalized)

	// 6. 同一タグの3連以上は3枚目以降を変換して解消する
	collapseRuns(normalized)

	return normalized
}

// MaxCloseups は n パネルのプランに許される emotion_closeup の上限枚数です。
func MaxCloseups(n int) int {
	limit := n / 2
	if limit < 1 {
		limit = 1
	}
	return limit
}

func capCloseups(panels domain.Panels) {
	limit := MaxCloseups(len(panels))
	seen := 0
	for i := range panels {
		if panels[i].GrammarID != domain.TagEmotionCloseup {
			continue
		}
		seen++
		if seen > limit {
			panels[i].GrammarID = domain.TagReaction
		}
	}
}

// collapseRuns は走査中の列自身を見て3連を検出するため、変換後に新たな
// 3連が残ることはありません。run が reaction のときは reaction へ変換しても
// 連続が切れないため、変換先を変えます（末尾では締めタグ集合を維持します）。
func collapseRuns(panels domain.Panels) {
	last := len(panels) - 1
	for i := 2; i < len(panels); i++ {
		if panels[i].GrammarID != panels[i-1].GrammarID || panels[i].GrammarID != panels[i-2].GrammarID {
			continue
		}

		replacement := domain.TagReaction
		if panels[i].GrammarID == domain.TagReaction {
			replacement = domain.TagDialogueMedium
			if i == last {
				replacement = domain.TagReveal
			}
		}
		panels[i].GrammarID = replacement
	}
}
