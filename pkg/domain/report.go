package domain

// QCIssue はQC検査で検出された1件の逸脱です。
type QCIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// QCReport はパネルプランに対する読み取り専用の診断結果です。
type QCReport struct {
	Passed  bool               `json:"passed"`
	Issues  []QCIssue          `json:"issues,omitempty"`
	Metrics map[string]float64 `json:"metrics"`
}

// BlindTestReport はパネル描写のみから物語を復元し、原文と突き合わせた忠実度評価です。
type BlindTestReport struct {
	Reconstruction string  `json:"reconstruction"`
	Score          float64 `json:"score"`
	MatchedTokens  int     `json:"matched_tokens"`
	TotalTokens    int     `json:"total_tokens"`
}
