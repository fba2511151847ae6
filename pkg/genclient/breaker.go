package genclient

import "time"

// BreakerState はサーキットブレーカーの状態です。
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerSettings はブレーカーの閾値設定です。
type BreakerSettings struct {
	FailureThreshold         int
	RecoveryTimeout          time.Duration
	HalfOpenSuccessThreshold int
}

// DefaultBreakerSettings は推奨されるデフォルト設定を返します。
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold:         5,
		RecoveryTimeout:          60 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
}

// breaker は1つの操作名（"text" / "image"）に対応する状態機械です。
// クライアント値が所有するマップの中で生き、永続化はされません。
// 同期はクライアント側のミューテックスに委ねます。
type breaker struct {
	settings BreakerSettings

	state            BreakerState
	failureCount     int
	circuitOpenUntil time.Time
	halfOpenSuccess  int
}

func newBreaker(settings BreakerSettings) *breaker {
	return &breaker{settings: settings, state: StateClosed}
}

// allow は呼び出し可否を判定します。OPEN の場合は残りの待機時間を返します。
// 回復タイムアウトが経過していれば HALF_OPEN へ遷移し、呼び出しを通します。
func (b *breaker) allow(now time.Time) (bool, time.Duration) {
	if b.state != StateOpen {
		return true, 0
	}
	if now.Before(b.circuitOpenUntil) {
		return false, b.circuitOpenUntil.Sub(now)
	}
	b.state = StateHalfOpen
	b.halfOpenSuccess = 0
	return true, 0
}

// onSuccess は成功を記録します。HALF_OPEN では成功数が閾値に達した時点で
// CLOSED へ戻り、全カウンタをリセットします。
func (b *breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.settings.HalfOpenSuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.halfOpenSuccess = 0
		}
	default:
		b.failureCount = 0
	}
}

// onFailure は失敗を記録します。CLOSED では閾値到達で OPEN へ、
// HALF_OPEN では1回の失敗で即座に OPEN へ戻ります。
func (b *breaker) onFailure(now time.Time) {
	switch b.state {
	case StateHalfOpen:
		b.trip(now)
	default:
		b.failureCount++
		if b.failureCount >= b.settings.FailureThreshold {
			b.trip(now)
		}
	}
}

func (b *breaker) trip(now time.Time) {
	b.state = StateOpen
	b.circuitOpenUntil = now.Add(b.settings.RecoveryTimeout)
	b.halfOpenSuccess = 0
}

func (b *breaker) reset() {
	b.state = StateClosed
	b.failureCount = 0
	b.halfOpenSuccess = 0
	b.circuitOpenUntil = time.Time{}
}

// BreakerStatus はブレーカー状態の観測用スナップショットです。
type BreakerStatus struct {
	State            BreakerState `json:"state"`
	FailureCount     int          `json:"failure_count"`
	CircuitOpenUntil time.Time    `json:"circuit_open_until,omitzero"`
	HalfOpenSuccess  int          `json:"half_open_success_count"`
}

func (b *breaker) status() BreakerStatus {
	return BreakerStatus{
		State:            b.state,
		FailureCount:     b.failureCount,
		CircuitOpenUntil: b.circuitOpenUntil,
		HalfOpenSuccess:  b.halfOpenSuccess,
	}
}
