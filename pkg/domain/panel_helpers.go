package domain

import "sort"

// UniqueSpeakerIDs はパネルのスライスから重複しない SpeakerID を抽出します。
func (ps Panels) UniqueSpeakerIDs() []string {
	set := make(map[string]struct{})
	for _, panel := range ps {
		if panel.SpeakerID != "" {
			set[panel.SpeakerID] = struct{}{}
		}
	}

	uniqueIDs := make([]string, 0, len(set))
	for id := range set {
		uniqueIDs = append(uniqueIDs, id)
	}
	sort.Strings(uniqueIDs)

	return uniqueIDs
}

// CountTag は指定タグを持つパネル数を返します。
func (ps Panels) CountTag(tag GrammarTag) int {
	count := 0
	for _, panel := range ps {
		if panel.GrammarID == tag {
			count++
		}
	}
	return count
}

// DialogueRatio はセリフを持つパネルの比率を返します。空の列では 0 です。
func (ps Panels) DialogueRatio() float64 {
	if len(ps) == 0 {
		return 0
	}
	withDialogue := 0
	for _, panel := range ps {
		if panel.Dialogue != "" {
			withDialogue++
		}
	}
	return float64(withDialogue) / float64(len(ps))
}

// MaxRepeatedRun は同一タグが連続する最長の長さを返します。
func (ps Panels) MaxRepeatedRun() int {
	maxRun := 0
	run := 0
	var prev GrammarTag
	for i, panel := range ps {
		if i > 0 && panel.GrammarID == prev {
			run++
		} else {
			run = 1
		}
		if run > maxRun {
			maxRun = run
		}
		prev = panel.GrammarID
	}
	return maxRun
}

// Reindex は Index を 1 始まりの連番へ振り直します。
func (ps Panels) Reindex() {
	for i := range ps {
		ps[i].Index = i + 1
	}
}

// Clone はパネル列の深いコピーを返します。正規化処理が元データを壊さないために使います。
func (ps Panels) Clone() Panels {
	cloned := make(Panels, len(ps))
	copy(cloned, ps)
	return cloned
}
