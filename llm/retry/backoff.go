package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// RetryPolicy 指数退避策略
type RetryPolicy struct {
	MaxRetries   int           // 0 表示只调用一次
	InitialDelay time.Duration // 第一次重试前的等待
	MaxDelay     time.Duration // 单次等待上限
	Multiplier   float64       // 每次重试等待的倍数
	Jitter       bool          // ±25% 随机抖动

	// ShouldRetry 为空时使用 types.IsRetryable，未分类的错误不重试
	ShouldRetry func(err error) bool
	// OnRetry 在每次等待前调用，attempt 从 1 开始
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy 2 次重试，500ms 起步，上限 8s
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// withDefaults 返回补全零值后的副本
func (p RetryPolicy) withDefaults() *RetryPolicy {
	def := DefaultRetryPolicy()
	p.MaxRetries = max(p.MaxRetries, 0)
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = def.Multiplier
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = types.IsRetryable
	}
	return &p
}

// Retryer 按策略重复调用 fn
type Retryer interface {
	Do(ctx context.Context, fn func() error) error
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, error)
}

type backoffRetryer struct {
	policy *RetryPolicy
	logger *zap.Logger
}

// NewBackoffRetryer policy 为 nil 时使用 DefaultRetryPolicy
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backoffRetryer{policy: policy.withDefaults(), logger: logger}
}

func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	var out any
	err := r.Do(ctx, func() error {
		v, err := fn()
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Do 调用 fn 直到成功、遇到不可重试错误或次数用尽。
// 等待期间 ctx 结束时原样返回上一次的错误，错误码不被 ctx.Err() 覆盖。
func (r *backoffRetryer) Do(ctx context.Context, fn func() error) error {
	err := fn()
	for attempt := 1; err != nil && attempt <= r.policy.MaxRetries; attempt++ {
		if !r.policy.ShouldRetry(err) {
			return err
		}

		wait := r.delay(attempt)
		r.logger.Debug("retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.policy.MaxRetries),
			zap.Duration("delay", wait),
			zap.Error(err),
		)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, wait)
		}
		if !sleep(ctx, wait) {
			return err
		}

		if err = fn(); err == nil {
			r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
		}
	}
	if err == nil || r.policy.MaxRetries == 0 || !r.policy.ShouldRetry(err) {
		return err
	}

	r.logger.Warn("retries exhausted", zap.Int("attempts", r.policy.MaxRetries+1), zap.Error(err))
	return fmt.Errorf("failed after %d retries: %w", r.policy.MaxRetries, err)
}

// delay 第 attempt 次重试前的等待：InitialDelay·Multiplier^(attempt-1)，夹在 [InitialDelay, MaxDelay]
func (r *backoffRetryer) delay(attempt int) time.Duration {
	p := r.policy
	d := math.Min(float64(p.InitialDelay)*math.Pow(p.Multiplier, float64(attempt-1)), float64(p.MaxDelay))
	if p.Jitter {
		d += d * 0.25 * (rand.Float64()*2 - 1)
	}
	return time.Duration(math.Max(d, float64(p.InitialDelay)))
}

// sleep 返回 false 表示 ctx 先结束
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
