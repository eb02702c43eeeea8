package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BaSui01/agentchat/agent/conversation"
	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/agent/voice"
	"github.com/BaSui01/agentchat/internal/sessionlock"
	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store 是编排器需要的持久化能力：追加式消息存储与人设解析
type Store interface {
	persistence.MessageStore
	ResolvePersona(ctx context.Context, sessionID string) (*types.Persona, error)
}

// TurnRecorder 记录轮次结果。outcome 取 "persisted"、"degraded" 或错误码。
type TurnRecorder interface {
	RecordTurn(mode, outcome string, duration time.Duration)
}

// Config 编排器配置
type Config struct {
	// TurnTimeout 限制一个轮次内 Provider 调用的总时长，0 表示不限制
	TurnTimeout time.Duration `json:"turn_timeout" yaml:"turn_timeout"`
	// StoreTimeout 限制每次持久化调用
	StoreTimeout time.Duration `json:"store_timeout" yaml:"store_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		TurnTimeout:  2 * time.Minute,
		StoreTimeout: 10 * time.Second,
	}
}

// TurnResult 是成功轮次的结果
type TurnResult struct {
	TurnID     string          `json:"turn_id"`
	User       *types.Message  `json:"user"`
	Assistant  *types.Message  `json:"assistant"`
	Transcript string          `json:"transcript,omitempty"`
	Degraded   bool            `json:"degraded,omitempty"` // 语音合成失败，回复降级为纯文本
	Completion *llm.Completion `json:"-"`
	States     []State         `json:"-"`
}

// Orchestrator 按会话串行执行轮次：预处理、组装、补全、合成、持久化。
// Provider 无状态，可被所有会话并发共享；不同会话之间没有共享的可变状态。
type Orchestrator struct {
	store    Store
	provider llm.Provider
	voice    *voice.Pipeline
	locks    *sessionlock.Table
	config   Config
	recorder TurnRecorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New 创建编排器。pipeline 为空时语音轮次返回 INVALID_REQUEST。
func New(store Store, provider llm.Provider, pipeline *voice.Pipeline, config Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultConfig().StoreTimeout
	}
	return &Orchestrator{
		store:    store,
		provider: provider,
		voice:    pipeline,
		locks:    sessionlock.New(),
		config:   config,
		tracer:   otel.Tracer("github.com/BaSui01/agentchat/agent/orchestrator"),
		logger:   logger.With(zap.String("component", "orchestrator")),
	}
}

// WithRecorder 设置轮次指标记录器
func (o *Orchestrator) WithRecorder(r TurnRecorder) *Orchestrator {
	o.recorder = r
	return o
}

// LockStats 返回会话锁统计
func (o *Orchestrator) LockStats() sessionlock.Stats {
	return o.locks.Stats()
}

// =============================================================================
// 入口
// =============================================================================

// HandleTextTurn 处理一条文本输入并返回助手消息。
func (o *Orchestrator) HandleTextTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	return o.run(ctx, sessionID, ModeText, func(ctx, work context.Context, t *turn) (*TurnResult, error) {
		if strings.TrimSpace(text) == "" {
			return nil, types.NewUserInputEmptyError("message content is empty")
		}
		persona, err := o.resolvePersona(ctx, t)
		if err != nil {
			return nil, err
		}
		if err := t.advance(StatePreprocessed); err != nil {
			return nil, internalError(err)
		}
		return o.complete(ctx, work, t, persona, persistence.Entry{Role: types.RoleUser, Content: text}, false)
	})
}

// HandleVoiceTurn 转写语音输入，补全后合成回复语音。
func (o *Orchestrator) HandleVoiceTurn(ctx context.Context, sessionID string, audio *llm.Audio) (*TurnResult, error) {
	return o.run(ctx, sessionID, ModeVoice, func(ctx, work context.Context, t *turn) (*TurnResult, error) {
		if o.voice == nil {
			return nil, types.NewInvalidRequestError("voice input is not configured")
		}
		// 会话不存在时不转写，也不落盘上传的音频
		persona, err := o.resolvePersona(ctx, t)
		if err != nil {
			return nil, err
		}
		in, err := o.voice.Transcribe(work, sessionID, audio)
		if err != nil {
			return nil, providerError(o.provider.Name(), err)
		}
		if err := t.advance(StatePreprocessed); err != nil {
			return nil, internalError(err)
		}
		user := persistence.Entry{Role: types.RoleUser, Content: in.Text, AudioPath: in.AudioPath}
		res, err := o.complete(ctx, work, t, persona, user, true)
		if res != nil {
			res.Transcript = in.Text
		}
		return res, err
	})
}

// RetryTurn 为会话末尾未回答的用户消息补上回复，不追加新的用户消息。
// 该用户消息带有音频时回复同样合成语音。
func (o *Orchestrator) RetryTurn(ctx context.Context, sessionID string) (*TurnResult, error) {
	return o.run(ctx, sessionID, ModeRetry, func(ctx, work context.Context, t *turn) (*TurnResult, error) {
		persona, history, err := o.load(ctx, t)
		if err != nil {
			return nil, err
		}
		prompt, err := conversation.BuildReplay(persona.Instruction, history)
		if err != nil {
			return nil, err
		}
		pending, _ := conversation.Unanswered(history)
		if err := t.advance(StateHistoryAssembled); err != nil {
			return nil, internalError(err)
		}

		c, err := o.callComplete(work, t, prompt)
		if err != nil {
			return nil, err
		}

		reply := persistence.Entry{Role: types.RoleAssistant, Content: c.Text}
		degraded := false
		if pending.HasAudio() {
			reply.AudioPath, degraded = o.synthesize(work, t, c.Text)
		}

		if err := t.advance(StatePersisted); err != nil {
			return nil, internalError(err)
		}
		sctx, cancel := o.storeContext(ctx)
		defer cancel()
		assistant, err := o.store.Append(sctx, sessionID, reply.Role, reply.Content, reply.AudioPath)
		if err != nil {
			return nil, storeError("append assistant message", err)
		}

		o.logSaved(t, assistant, persona, c)
		return &TurnResult{User: pending, Assistant: assistant, Completion: c, Degraded: degraded}, nil
	})
}

// =============================================================================
// 轮次骨架
// =============================================================================

type turnFunc func(ctx, work context.Context, t *turn) (*TurnResult, error)

// run 获取会话锁并执行 fn。
//
// ctx 只用于排队等锁与持久化的派生；Provider 调用使用 work，它与调用方的取消解耦，
// 但受 TurnTimeout 约束，因此客户端断开后已开始的轮次仍会完成并写入。
func (o *Orchestrator) run(ctx context.Context, sessionID string, mode Mode, fn turnFunc) (*TurnResult, error) {
	t := newTurn(sessionID, mode, o.logger)

	ctx, span := o.tracer.Start(ctx, "turn."+string(mode), trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("turn.id", t.id),
	))
	defer span.End()

	if strings.TrimSpace(sessionID) == "" {
		return o.finish(span, t, nil, types.NewInvalidRequestError("session id is required"))
	}

	unlock, err := o.locks.Lock(ctx, sessionID)
	if err != nil {
		return o.finish(span, t, nil, types.NewError(types.ErrInternalError, "turn abandoned while waiting for session").
			WithCause(err).WithHTTPStatus(503).WithRetryable(true))
	}
	defer unlock()

	work := context.WithoutCancel(ctx)
	if o.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		work, cancel = context.WithTimeout(work, o.config.TurnTimeout)
		defer cancel()
	}

	res, err := fn(ctx, work, t)
	return o.finish(span, t, res, err)
}

func (o *Orchestrator) finish(span trace.Span, t *turn, res *TurnResult, err error) (*TurnResult, error) {
	outcome := "persisted"
	if err != nil {
		if t.state != StateFailed {
			_ = t.advance(StateFailed)
		}
		outcome = string(types.GetErrorCode(err))

		fields := []zap.Field{
			zap.String("state", string(t.state)),
			zap.String("code", outcome),
			zap.String("provider", o.provider.Name()),
			zap.Duration("duration", t.elapsed()),
			zap.Error(err),
		}
		if types.IsErrorCode(err, types.ErrUserInputEmpty) || types.IsErrorCode(err, types.ErrInvalidRequest) {
			t.logger.Info("turn rejected", fields...)
		} else {
			t.logger.Warn("turn failed", fields...)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		if res.Degraded {
			outcome = "degraded"
		}
		res.TurnID = t.id
		res.States = t.states()
		t.logger.Info("turn completed",
			zap.String("state", string(t.state)),
			zap.String("provider", res.Completion.Provider),
			zap.String("model", res.Completion.Model),
			zap.Bool("degraded", res.Degraded),
			zap.Duration("duration", t.elapsed()),
		)
	}
	span.SetAttributes(attribute.String("turn.state", string(t.state)), attribute.String("turn.outcome", outcome))

	if o.recorder != nil {
		o.recorder.RecordTurn(string(t.mode), outcome, t.elapsed())
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// =============================================================================
// 步骤
// =============================================================================

// complete 执行 HistoryAssembled → Completing → (Synthesizing) → Persisted
func (o *Orchestrator) complete(ctx, work context.Context, t *turn, persona *types.Persona, user persistence.Entry, speak bool) (*TurnResult, error) {
	history, err := o.listHistory(ctx, t)
	if err != nil {
		return nil, err
	}
	prompt := conversation.Build(persona.Instruction, history, user.Content)
	if err := t.advance(StateHistoryAssembled); err != nil {
		return nil, internalError(err)
	}

	c, err := o.callComplete(work, t, prompt)
	if err != nil {
		// 保留用户输入，会话停在"等待回复"状态，可通过重试补全
		sctx, cancel := o.storeContext(ctx)
		defer cancel()
		if _, serr := o.store.Append(sctx, t.sessionID, user.Role, user.Content, user.AudioPath); serr != nil {
			return nil, storeError("append unanswered user message", serr)
		}
		return nil, err
	}

	reply := persistence.Entry{Role: types.RoleAssistant, Content: c.Text}
	degraded := false
	if speak {
		reply.AudioPath, degraded = o.synthesize(work, t, c.Text)
	}

	if err := t.advance(StatePersisted); err != nil {
		return nil, internalError(err)
	}
	sctx, cancel := o.storeContext(ctx)
	defer cancel()
	u, a, err := o.store.AppendPair(sctx, t.sessionID, user, reply)
	if err != nil {
		return nil, storeError("append turn", err)
	}

	o.logSaved(t, a, persona, c)
	return &TurnResult{User: u, Assistant: a, Completion: c, Degraded: degraded}, nil
}

// load 解析人设并读取最新历史，不做缓存
func (o *Orchestrator) load(ctx context.Context, t *turn) (*types.Persona, []types.Message, error) {
	persona, err := o.resolvePersona(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	history, err := o.listHistory(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	return persona, history, nil
}

// resolvePersona 同时确认会话存在，不存在时返回 SESSION_NOT_FOUND
func (o *Orchestrator) resolvePersona(ctx context.Context, t *turn) (*types.Persona, error) {
	sctx, cancel := o.storeContext(ctx)
	defer cancel()

	persona, err := o.store.ResolvePersona(sctx, t.sessionID)
	if err != nil {
		return nil, storeError("resolve persona", err)
	}
	return persona, nil
}

func (o *Orchestrator) listHistory(ctx context.Context, t *turn) ([]types.Message, error) {
	sctx, cancel := o.storeContext(ctx)
	defer cancel()

	history, err := o.store.ListOrdered(sctx, t.sessionID)
	if err != nil {
		return nil, storeError("list history", err)
	}
	return history, nil
}

func (o *Orchestrator) callComplete(work context.Context, t *turn, prompt []llm.Message) (*llm.Completion, error) {
	if err := t.advance(StateCompleting); err != nil {
		return nil, internalError(err)
	}
	c, err := o.provider.Complete(work, prompt)
	if err != nil {
		return nil, providerError(o.provider.Name(), err)
	}
	if c == nil || strings.TrimSpace(c.Text) == "" {
		return nil, types.NewProviderInvalidResponseError(o.provider.Name(), "completion is empty")
	}
	return c, nil
}

// synthesize 是尽力而为的：失败时记录 warn 并降级为纯文本回复
func (o *Orchestrator) synthesize(work context.Context, t *turn, text string) (audioPath string, degraded bool) {
	if o.voice == nil {
		return "", true
	}
	if err := t.advance(StateSynthesizing); err != nil {
		return "", true
	}
	out, err := o.voice.Speak(work, t.sessionID, text)
	if err != nil {
		t.logger.Warn("speech synthesis failed, replying with text only",
			zap.String("provider", o.provider.Name()),
			zap.Error(err),
		)
		return "", true
	}
	return out.AudioPath, false
}

func (o *Orchestrator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.config.StoreTimeout)
}

func (o *Orchestrator) logSaved(t *turn, assistant *types.Message, persona *types.Persona, c *llm.Completion) {
	t.logger.Info("message saved",
		zap.String("message_id", assistant.ID),
		zap.Int64("sequence", assistant.Sequence),
		zap.String("agent", persona.AgentName),
		zap.String("provider", c.Provider),
		zap.String("model", c.Model),
		zap.Bool("audio", assistant.HasAudio()),
	)
}

// =============================================================================
// 错误归一
// =============================================================================

// providerError 保证越过编排器边界的 Provider 错误都是类型化的
func providerError(provider string, err error) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewProviderUnavailableError(provider, "turn timed out waiting for provider").WithCause(err)
	}
	return types.NewProviderUnavailableError(provider, "provider call failed").WithCause(err)
}

// storeError 保留 NOT_FOUND / INVALID_REQUEST 等已分类错误，其余归为 STORE_UNAVAILABLE
func storeError(op string, err error) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	return types.NewStoreUnavailableError(op+" failed", err)
}

func internalError(err error) error {
	return types.NewError(types.ErrInternalError, err.Error()).WithCause(err).WithHTTPStatus(500)
}
