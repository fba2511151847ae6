package genclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeTextTransport は呼び出し回数を数え、あらかじめ積んだ応答を順に返すフェイクです。
type fakeTextTransport struct {
	mu      sync.Mutex
	calls   int
	results []fakeResult
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeTextTransport) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.text, r.err
}

func (f *fakeTextTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeClock は手動で進められる時計なのだ。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestClient(transport *fakeTextTransport, clock *fakeClock, settings BreakerSettings, retries int) *Client {
	return New(transport, nil,
		WithModels("test-model", ""),
		WithMaxRetries(retries),
		WithBreakerSettings(settings),
		WithClock(clock.Now),
		WithSleeper(noSleep),
	)
}

func TestClient_RetryThenSuccess(t *testing.T) {
	transport := &fakeTextTransport{results: []fakeResult{
		{err: errors.New("429: rate limit exceeded")},
		{err: errors.New("deadline exceeded")},
		{text: "ok"},
	}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	client := newTestClient(transport, clock, DefaultBreakerSettings(), 3)

	text, err := client.GenerateText(context.Background(), "p", "")
	if err != nil {
		t.Fatalf("再試行の末に成功するはずなのだ: %v", err)
	}
	if text != "ok" {
		t.Errorf("応答テキストが違うのだ: %q", text)
	}
	if got := transport.callCount(); got != 3 {
		t.Errorf("トランスポート呼び出しは3回のはずが %d 回なのだ", got)
	}

	info := client.LastCall()
	if info.Attempts != 3 || info.ErrorType != "" {
		t.Errorf("観測情報が期待と違うのだ: %+v", info)
	}
}

func TestClient_TerminalErrorNotRetried(t *testing.T) {
	transport := &fakeTextTransport{results: []fakeResult{
		{err: errors.New("request blocked by content filter")},
	}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	client := newTestClient(transport, clock, DefaultBreakerSettings(), 3)

	_, err := client.GenerateText(context.Background(), "p", "")
	if err == nil {
		t.Fatal("終了分類のエラーは失敗として返るはずなのだ")
	}
	if got := transport.callCount(); got != 1 {
		t.Errorf("終了分類は再試行しないはずが %d 回呼ばれたのだ", got)
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("GenerationError 型で返るはずなのだ: %T", err)
	}
	if genErr.Type != ErrorTypeContentFilter {
		t.Errorf("分類は content_filter のはずが %s なのだ", genErr.Type)
	}
	if genErr.RequestID == "" {
		t.Error("request_id が空なのだ")
	}
}

func TestClient_CircuitBreakerLifecycle(t *testing.T) {
	settings := BreakerSettings{
		FailureThreshold:         3,
		RecoveryTimeout:          30 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}

	transport := &fakeTextTransport{results: []fakeResult{
		{err: errors.New("503 service unavailable")},
		{err: errors.New("503 service unavailable")},
		{err: errors.New("503 service unavailable")},
		{text: "recovered"},
	}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	// 再試行なしにして1呼び出し=1失敗で数えるのだ
	client := newTestClient(transport, clock, settings, 0)

	ctx := context.Background()

	// 3連続失敗でブレーカーが開くのだ
	for i := 0; i < 3; i++ {
		if _, err := client.GenerateText(ctx, "p", ""); err == nil {
			t.Fatalf("%d回目は失敗するはずなのだ", i+1)
		}
	}
	if st := client.Status()["text"]; st.State != StateOpen {
		t.Fatalf("3連続失敗後は OPEN のはずが %s なのだ", st.State)
	}

	// OPEN 中はトランスポートに触れずに即失敗するのだ
	before := transport.callCount()
	_, err := client.GenerateText(ctx, "p", "")
	var openErr *CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("CircuitOpenError が返るはずなのだ: %v", err)
	}
	if openErr.RetryAfter <= 0 {
		t.Errorf("retry_after が正の値で入るはずなのだ: %s", openErr.RetryAfter)
	}
	if transport.callCount() != before {
		t.Error("OPEN 中にトランスポートが呼ばれてしまったのだ")
	}

	// 回復タイムアウト経過後は HALF_OPEN として呼び出しを通すのだ
	clock.Advance(31 * time.Second)
	if _, err := client.GenerateText(ctx, "p", ""); err != nil {
		t.Fatalf("HALF_OPEN の呼び出しは成功するはずなのだ: %v", err)
	}
	if st := client.Status()["text"]; st.State != StateHalfOpen {
		t.Fatalf("1回成功後はまだ HALF_OPEN のはずが %s なのだ", st.State)
	}

	// 2回目の成功で CLOSED に戻り、失敗カウントはリセットされるのだ
	if _, err := client.GenerateText(ctx, "p", ""); err != nil {
		t.Fatalf("2回目の成功呼び出しに失敗したのだ: %v", err)
	}
	st := client.Status()["text"]
	if st.State != StateClosed {
		t.Errorf("2連続成功後は CLOSED のはずが %s なのだ", st.State)
	}
	if st.FailureCount != 0 {
		t.Errorf("failure_count は0に戻るはずが %d なのだ", st.FailureCount)
	}
}

func TestClient_HalfOpenFailureReopens(t *testing.T) {
	settings := BreakerSettings{
		FailureThreshold:         1,
		RecoveryTimeout:          10 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
	transport := &fakeTextTransport{results: []fakeResult{
		{err: errors.New("timeout")},
	}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	client := newTestClient(transport, clock, settings, 0)

	ctx := context.Background()
	if _, err := client.GenerateText(ctx, "p", ""); err == nil {
		t.Fatal("初回は失敗するはずなのだ")
	}
	if st := client.Status()["text"]; st.State != StateOpen {
		t.Fatalf("閾値1なので即 OPEN のはずが %s なのだ", st.State)
	}

	clock.Advance(11 * time.Second)
	if _, err := client.GenerateText(ctx, "p", ""); err == nil {
		t.Fatal("HALF_OPEN での失敗も失敗として返るのだ")
	}
	if st := client.Status()["text"]; st.State != StateOpen {
		t.Errorf("HALF_OPEN で失敗したら再び OPEN のはずが %s なのだ", st.State)
	}
}

func TestClient_Reset(t *testing.T) {
	settings := BreakerSettings{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenSuccessThreshold: 1}
	transport := &fakeTextTransport{results: []fakeResult{{err: errors.New("timeout")}}}
	clock := &fakeClock{now: time.Unix(0, 0)}
	client := newTestClient(transport, clock, settings, 0)

	_, _ = client.GenerateText(context.Background(), "p", "")
	if st := client.Status()["text"]; st.State != StateOpen {
		t.Fatalf("前提条件が崩れているのだ: %s", st.State)
	}

	client.Reset("text")
	if st := client.Status()["text"]; st.State != StateClosed {
		t.Errorf("Reset 後は CLOSED のはずが %s なのだ", st.State)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"レート制限", errors.New("Error 429: RATE_LIMIT exceeded"), ErrorTypeRateLimit},
		{"タイムアウト", errors.New("context deadline exceeded"), ErrorTypeTimeout},
		{"モデル停止", errors.New("model_unavailable: try later"), ErrorTypeModelUnavailable},
		{"コンテンツフィルタ", errors.New("prompt was blocked by safety settings"), ErrorTypeContentFilter},
		{"不正リクエスト", errors.New("INVALID_REQUEST: bad schema"), ErrorTypeInvalidRequest},
		{"未知", errors.New("mysterious failure"), ErrorTypeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("分類が %s のはずが %s なのだ", tc.want, got)
			}
		})
	}

	if ErrorTypeUnknown.Retryable() != true {
		t.Error("未知の分類は既定で再試行対象なのだ")
	}
	if ErrorTypeInvalidRequest.Retryable() {
		t.Error("invalid_request は再試行しないのだ")
	}
}
