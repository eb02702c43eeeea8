package llm

import (
	"context"

	"github.com/BaSui01/agentchat/llm/retry"
	"go.uber.org/zap"
)

// ResilientProvider 对可重试的类型化错误（不可用、限流、响应无效）做退避重试。
// 遵循装饰器模式：增强原有 Provider 而不修改其代码。
type ResilientProvider struct {
	provider Provider
	retryer  retry.Retryer
	logger   *zap.Logger
}

// NewResilientProvider 创建重试装饰器，retryer 为空时使用默认策略。
func NewResilientProvider(provider Provider, retryer retry.Retryer, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryer == nil {
		retryer = retry.NewBackoffRetryer(retry.DefaultRetryPolicy(), logger)
	}
	return &ResilientProvider{
		provider: provider,
		retryer:  retryer,
		logger:   logger,
	}
}

// Name 实现 Provider.Name
func (rp *ResilientProvider) Name() string { return rp.provider.Name() }

// Complete 实现 Provider.Complete
func (rp *ResilientProvider) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	return retry.DoWithResultTyped(rp.retryer, ctx, func() (*Completion, error) {
		return rp.provider.Complete(ctx, messages)
	})
}

// Transcribe 实现 Provider.Transcribe
func (rp *ResilientProvider) Transcribe(ctx context.Context, audio *Audio) (*Transcript, error) {
	return retry.DoWithResultTyped(rp.retryer, ctx, func() (*Transcript, error) {
		return rp.provider.Transcribe(ctx, audio)
	})
}

// Synthesize 不重试：合成是尽力而为的，失败直接降级为纯文本回复。
func (rp *ResilientProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	return rp.provider.Synthesize(ctx, text)
}
