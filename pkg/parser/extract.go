package parser

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

var (
	// jsonBlockRegex は ```json フェンスに囲まれた本文をキャプチャします。
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

	// trailingCommaRegex は閉じ括弧直前の余分なカンマを特定します。
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
)

// Repairer は最終手段としてAIに整形し直しを依頼するための契約です。
// genclient.Client がこれを満たします。
type Repairer interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}

// TierCounters は各ティアの成功回数と全滅回数の観測値です。
type TierCounters struct {
	Direct  int `json:"direct"`
	Cleaned int `json:"cleaned"`
	Bracket int `json:"bracket"`
	Repair  int `json:"repair"`
	Failed  int `json:"failed"`
}

// Extractor は自由形式のモデル出力から構造化データを多段で復元します。
// ティアは順に短絡評価され、どこかで成功すれば以降は試しません。
// すべて失敗しても error は返さず、(nil, false) を返します。
type Extractor struct {
	repairer       Repairer
	repairModel    string
	repairAttempts int

	mu       sync.Mutex
	counters TierCounters
}

// NewExtractor は抽出器を生成します。repairer が nil の場合、ティア4は無効になります。
func NewExtractor(repairer Repairer, repairModel string, repairAttempts int) *Extractor {
	if repairAttempts < 0 {
		repairAttempts = 0
	}
	return &Extractor{
		repairer:       repairer,
		repairModel:    repairModel,
		repairAttempts: repairAttempts,
	}
}

// Extract は raw から最初に復元できた JSON ドキュメントを返します。
// schemaHint はティア4の修復依頼に添える期待スキーマの説明で、空でも構いません。
func (e *Extractor) Extract(ctx context.Context, raw, schemaHint string) (json.RawMessage, bool) {
	if doc, ok := e.extractDeterministic(raw); ok {
		return doc, true
	}

	// ティア4: AI自身に整形し直させ、決定的ティアをかけ直す
	previous := raw
	for attempt := 0; attempt < e.repairAttempts && e.repairer != nil; attempt++ {
		repaired, err := e.repairer.GenerateText(ctx, buildRepairPrompt(previous, schemaHint), e.repairModel)
		if err != nil {
			slog.Warn("修復依頼の生成呼び出しに失敗しました", "attempt", attempt+1, "error", err)
			break
		}
		if doc, ok := e.extractDeterministic(repaired); ok {
			e.count(func(c *TierCounters) { c.Repair++ })
			return doc, true
		}
		previous = repaired
	}

	e.count(func(c *TierCounters) { c.Failed++ })
	return nil, false
}

// ExtractInto は復元したドキュメントを v へデコードします。
// デコードに失敗した場合も復元失敗として扱います。
func (e *Extractor) ExtractInto(ctx context.Context, raw, schemaHint string, v any) bool {
	doc, ok := e.Extract(ctx, raw, schemaHint)
	if !ok {
		return false
	}
	if err := json.Unmarshal(doc, v); err != nil {
		slog.Warn("復元したJSONのデコードに失敗しました", "error", err)
		return false
	}
	return true
}

// extractDeterministic はティア1〜3を順に試します。
func (e *Extractor) extractDeterministic(raw string) (json.RawMessage, bool) {
	// ティア1: そのままパース
	trimmed := strings.TrimSpace(raw)
	if isValidDocument(trimmed) {
		e.count(func(c *TierCounters) { c.Direct++ })
		return json.RawMessage(trimmed), true
	}

	// ティア2: フェンス除去・括弧外の散文除去・末尾カンマ除去の後に再パース
	if cleaned, ok := cleanCandidate(trimmed); ok {
		e.count(func(c *TierCounters) { c.Cleaned++ })
		return json.RawMessage(cleaned), true
	}

	// ティア3: 文字列リテラル内の構造文字に惑わされない括弧マッチング抽出
	if extracted, ok := extractBalanced(trimmed); ok && isValidDocument(extracted) {
		e.count(func(c *TierCounters) { c.Bracket++ })
		return json.RawMessage(extracted), true
	}

	return nil, false
}

// Counters は現在のティア別カウンタのスナップショットを返します。
func (e *Extractor) Counters() TierCounters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

func (e *Extractor) count(update func(*TierCounters)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	update(&e.counters)
}

// isValidDocument は JSON オブジェクトまたは配列として妥当かを判定します。
// スカラー値だけの応答は構造化データとは見なしません。
func isValidDocument(s string) bool {
	if len(s) == 0 {
		return false
	}
	if s[0] != '{' && s[0] != '[' {
		return false
	}
	return json.Valid([]byte(s))
}

// cleanCandidate はマークダウンフェンスと周辺の散文を取り除き、
// 末尾カンマを落とした候補文字列を返します。
func cleanCandidate(raw string) (string, bool) {
	candidate := raw
	if matches := jsonBlockRegex.FindStringSubmatch(candidate); len(matches) > 1 {
		candidate = matches[1]
	}

	candidate = trimToOuterBrackets(candidate)
	if candidate == "" {
		return "", false
	}

	candidate = trailingCommaRegex.ReplaceAllString(candidate, "$1")
	if !isValidDocument(candidate) {
		return "", false
	}
	return candidate, true
}

// trimToOuterBrackets は最初の開き括弧から最後の閉じ括弧までを切り出します。
func trimToOuterBrackets(s string) string {
	firstObj := strings.Index(s, "{")
	firstArr := strings.Index(s, "[")

	first := firstObj
	closeChar := "}"
	if first == -1 || (firstArr != -1 && firstArr < first) {
		first = firstArr
		closeChar = "]"
	}
	if first == -1 {
		return ""
	}

	last := strings.LastIndex(s, closeChar)
	if last <= first {
		return ""
	}
	return strings.TrimSpace(s[first : last+1])
}

func buildRepairPrompt(malformed, schemaHint string) string {
	var sb strings.Builder
	sb.WriteString("次のテキストは JSON として壊れています。内容を変えずに、妥当な JSON だけを返してください。")
	sb.WriteString("説明文やマークダウンフェンスは一切付けないでください。\n")
	if schemaHint != "" {
		sb.WriteString("期待する形式: ")
		sb.WriteString(schemaHint)
		sb.WriteString("\n")
	}
	sb.WriteString("--- 壊れたテキスト ---\n")
	sb.WriteString(malformed)
	return sb.String()
}
