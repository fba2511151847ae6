package genclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	opText  = "text"
	opImage = "image"

	defaultMaxRetries  = 3
	defaultBackoffBase = 1 * time.Second
	defaultCallTimeout = 90 * time.Second
)

// TextTransport は下層のテキスト生成エンドポイントへの接続です。
type TextTransport interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}

// ImageTransport は下層の画像生成エンドポイントへの接続です。
type ImageTransport interface {
	GenerateImage(ctx context.Context, prompt, model string, referenceURLs []string) ([]byte, string, error)
}

// CallInfo は直近の呼び出しに関する観測情報です。
type CallInfo struct {
	Model     string    `json:"model"`
	RequestID string    `json:"request_id"`
	Attempts  int       `json:"attempts"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}

// Client は不安定な生成エンドポイントを、操作名ごとのサーキットブレーカーと
// 指数バックオフ付き再試行で包む回復性クライアントです。
// ブレーカーのマップはクライアント値が所有し、ミューテックスで保護します。
type Client struct {
	text  TextTransport
	image ImageTransport

	textModel  string
	imageModel string

	maxRetries  int
	backoffBase time.Duration
	callTimeout time.Duration
	settings    BreakerSettings

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	breakers map[string]*breaker
	lastCall CallInfo
}

// New は回復性クライアントを生成します。テキスト用トランスポートは必須です。
func New(text TextTransport, image ImageTransport, opts ...Option) *Client {
	c := &Client{
		text:        text,
		image:       image,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		callTimeout: defaultCallTimeout,
		settings:    DefaultBreakerSettings(),
		now:         time.Now,
		sleep:       sleepWithContext,
		breakers:    make(map[string]*breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GenerateText はプロンプトからテキストを生成します。model が空文字列の場合は
// 既定モデルを使用します。失敗時は GenerationError か CircuitOpenError を返します。
func (c *Client) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = c.textModel
	}

	var out string
	err := c.do(ctx, opText, model, func(callCtx context.Context) error {
		text, err := c.text.GenerateText(callCtx, prompt, model)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// GenerateImage はプロンプトから画像を生成し、バイト列とMIMEタイプを返します。
func (c *Client) GenerateImage(ctx context.Context, prompt, model string, referenceURLs []string) ([]byte, string, error) {
	if model == "" {
		model = c.imageModel
	}

	var (
		data []byte
		mime string
	)
	err := c.do(ctx, opImage, model, func(callCtx context.Context) error {
		d, m, err := c.image.GenerateImage(callCtx, prompt, model, referenceURLs)
		if err != nil {
			return err
		}
		data, mime = d, m
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// do は1つの論理呼び出しを実行します。ブレーカー通過後、再試行対象の分類に限り
// backoffBase*2^attempt のバックオフで最大 maxRetries 回まで再試行します。
func (c *Client) do(ctx context.Context, op, model string, fn func(ctx context.Context) error) error {
	requestID := uuid.NewString()

	c.mu.Lock()
	br := c.breakerLocked(op)
	allowed, retryAfter := br.allow(c.now())
	c.mu.Unlock()

	if !allowed {
		slog.Debug("ブレーカー開放中のため呼び出しを遮断します", "op", op, "retry_after", retryAfter)
		return &CircuitOpenError{Op: op, RetryAfter: retryAfter}
	}

	var (
		lastErr  error
		lastType ErrorType
		attempts int
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoffBase * (1 << (attempt - 1))
			slog.Info("生成呼び出しを再試行します", "op", op, "attempt", attempt, "backoff", backoff, "request_id", requestID)
			if err := c.sleep(ctx, backoff); err != nil {
				lastErr = err
				lastType = ErrorTypeTimeout
				break
			}
		}

		attempts++
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			c.record(op, model, requestID, attempts, "", func(b *breaker) { b.onSuccess() })
			return nil
		}

		lastErr = err
		lastType = Classify(err)

		var opened bool
		c.record(op, model, requestID, attempts, lastType, func(b *breaker) {
			b.onFailure(c.now())
			opened = b.state == StateOpen
		})

		// 終了分類は再試行しない。ブレーカーが開いた場合も即座に打ち切り、
		// 不健全なエンドポイントへの負荷を抑える。
		if !lastType.Retryable() || opened {
			break
		}
	}

	return &GenerationError{
		Op:        op,
		Type:      lastType,
		Model:     model,
		RequestID: requestID,
		Attempts:  attempts,
		Err:       lastErr,
	}
}

func (c *Client) record(op, model, requestID string, attempts int, errType ErrorType, update func(*breaker)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update(c.breakerLocked(op))
	c.lastCall = CallInfo{Model: model, RequestID: requestID, Attempts: attempts, ErrorType: errType}
}

func (c *Client) breakerLocked(op string) *breaker {
	br, ok := c.breakers[op]
	if !ok {
		br = newBreaker(c.settings)
		c.breakers[op] = br
	}
	return br
}

// Status は全ブレーカーの現在状態のスナップショットを返します。
func (c *Client) Status() map[string]BreakerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := make(map[string]BreakerStatus, len(c.breakers))
	for op, br := range c.breakers {
		status[op] = br.status()
	}
	return status
}

// Reset は指定した操作のブレーカーを初期状態へ戻します。
// op が空文字列の場合は全操作をリセットします。
func (c *Client) Reset(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op == "" {
		for _, br := range c.breakers {
			br.reset()
		}
		return
	}
	if br, ok := c.breakers[op]; ok {
		br.reset()
	}
}

// LastCall は直近の論理呼び出しの観測情報を返します。
func (c *Client) LastCall() CallInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCall
}
