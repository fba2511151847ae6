package pipeline

import (
	"strings"
	"unicode"
)

// tokenOverlap は原文の語彙が再構成文にどれだけ現れたかを数えます。
// 戻り値は (一致した原文トークン数, 原文トークン総数) です。
func tokenOverlap(source, reconstruction string) (matched, total int) {
	sourceTokens := tokenize(source)
	if len(sourceTokens) == 0 {
		return 0, 0
	}

	seen := make(map[string]bool)
	for _, t := range tokenize(reconstruction) {
		seen[t] = true
	}

	for _, t := range sourceTokens {
		total++
		if seen[t] {
			matched++
		}
	}
	return matched, total
}

// tokenize は小文字化したうえで記号区切りの語へ分割します。空白を持たない
// CJK の連続は文字バイグラムに崩して比較単位を揃えます。
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var tokens []string
	for _, f := range fields {
		runes := []rune(f)
		if !isCJK(runes[0]) || len(runes) == 1 {
			tokens = append(tokens, f)
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			tokens = append(tokens, string(runes[i:i+2]))
		}
	}
	return tokens
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}
