package llm

import (
	"context"

	"github.com/BaSui01/agentchat/llm/tokenizer"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// FitResult 描述一次裁剪。
type FitResult struct {
	Messages     []Message
	Dropped      int
	PromptTokens int
	Budget       int
}

// FitToBudget 按 Token 预算裁剪轮次。
//
// 开头的 system 轮次与最后一条轮次始终保留；从最旧的非 system 轮次开始丢弃，
// 丢弃后若保留段以 assistant 开头，该 assistant 一并丢弃，保证不出现无提问的回答。
// 即使只剩人设与最新轮次仍超预算，也原样返回，由服务商决定是否拒绝。
func FitToBudget(tok tokenizer.Tokenizer, messages []Message, budget int) (*FitResult, error) {
	if len(messages) == 0 || budget <= 0 {
		return &FitResult{Messages: messages, Budget: budget}, nil
	}

	base, err := tok.CountMessages(nil)
	if err != nil {
		return nil, err
	}
	costs := make([]int, len(messages))
	total := base
	for i, m := range messages {
		c, err := tok.CountMessages([]tokenizer.Message{{Role: string(m.Role), Content: m.Content}})
		if err != nil {
			return nil, err
		}
		costs[i] = c - base
		total += costs[i]
	}
	if total <= budget {
		return &FitResult{Messages: messages, PromptTokens: total, Budget: budget}, nil
	}

	head := 0
	for head < len(messages)-1 && messages[head].Role == types.RoleSystem {
		head++
	}
	last := len(messages) - 1

	// [head, cut) 为被丢弃的区间
	cut := head
	for cut < last && total > budget {
		total -= costs[cut]
		cut++
	}
	for cut < last && messages[cut].Role == types.RoleAssistant {
		total -= costs[cut]
		cut++
	}

	kept := make([]Message, 0, len(messages)-(cut-head))
	kept = append(kept, messages[:head]...)
	kept = append(kept, messages[cut:]...)

	return &FitResult{
		Messages:     kept,
		Dropped:      cut - head,
		PromptTokens: total,
		Budget:       budget,
	}, nil
}

// BudgetedProvider 在 Complete 前按预算裁剪历史，其余能力原样委托。
type BudgetedProvider struct {
	Provider
	tok    tokenizer.Tokenizer
	budget int
	logger *zap.Logger
}

// NewBudgetedProvider 创建预算装饰器。budget <= 0 时取分词器上下文长度的 3/4，
// 余量留给回复。
func NewBudgetedProvider(p Provider, tok tokenizer.Tokenizer, budget int, logger *zap.Logger) *BudgetedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if budget <= 0 {
		budget = tok.MaxTokens() * 3 / 4
	}
	return &BudgetedProvider{
		Provider: p,
		tok:      tok,
		budget:   budget,
		logger:   logger.With(zap.String("component", "llm_budget")),
	}
}

// Budget 返回生效的 Token 预算。
func (b *BudgetedProvider) Budget() int { return b.budget }

// Complete 裁剪后调用底层 Provider。裁剪总是记录 warn 日志。
func (b *BudgetedProvider) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	fit, err := FitToBudget(b.tok, messages, b.budget)
	if err != nil {
		// 计数失败不应阻断对话，按原样发送
		b.logger.Warn("token counting failed, sending full history",
			zap.String("tokenizer", b.tok.Name()),
			zap.Error(err),
		)
		return b.Provider.Complete(ctx, messages)
	}
	if fit.Dropped > 0 {
		b.logger.Warn("history truncated to fit token budget",
			zap.String("provider", b.Provider.Name()),
			zap.Int("dropped_turns", fit.Dropped),
			zap.Int("kept_turns", len(fit.Messages)),
			zap.Int("prompt_tokens", fit.PromptTokens),
			zap.Int("budget", fit.Budget),
		)
	}
	return b.Provider.Complete(ctx, fit.Messages)
}
