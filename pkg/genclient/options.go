package genclient

import (
	"context"
	"time"
)

// Option はクライアントの挙動をカスタマイズします。
type Option func(*Client)

// WithModels は既定のテキスト／画像モデル名を設定します。
func WithModels(textModel, imageModel string) Option {
	return func(c *Client) {
		c.textModel = textModel
		c.imageModel = imageModel
	}
}

// WithMaxRetries は論理呼び出しあたりの再試行回数を上書きします（既定は3）。
func WithMaxRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

// WithBackoffBase は指数バックオフの基準間隔を上書きします。
func WithBackoffBase(base time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
	}
}

// WithCallTimeout は1回のトランスポート呼び出しに適用する全体タイムアウトです。
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithBreakerSettings はブレーカーの閾値を上書きします。
func WithBreakerSettings(settings BreakerSettings) Option {
	return func(c *Client) {
		c.settings = settings
	}
}

// WithClock は現在時刻の取得方法を差し替えます（テスト用）。
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSleeper はバックオフ待機の実装を差し替えます（テスト用）。
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}
