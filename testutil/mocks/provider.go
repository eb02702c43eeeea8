// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、按次失败与错误注入场景。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentchat/llm"
)

// --- MockProvider 结构 ---

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	// 响应配置
	response   string
	transcript string
	noSpeech   bool
	speech     []byte
	format     string

	// 错误注入
	completeErr   error
	transcribeErr error
	synthesizeErr error
	failTimes     int // 前 N 次 Complete 返回 completeErr

	completeFunc func(ctx context.Context, messages []llm.Message) (*llm.Completion, error)

	// 行为控制
	delay time.Duration
	// 为 true 时 delay 期间忽略 ctx 取消，模拟不可中断的上游调用
	ignoreCancel bool

	// 调用记录
	completeCalls   [][]llm.Message
	transcribeCalls int
	synthesizeCalls []string
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:   "Mock response",
		transcript: "Mock transcript",
		speech:     []byte("RIFF\x00\x00\x00\x00WAVEmock"),
		format:     "wav",
	}
}

// WithResponse 设置固定补全内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithTranscript 设置固定转写文本
func (m *MockProvider) WithTranscript(text string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = text
	m.noSpeech = false
	return m
}

// WithNoSpeech 让转写返回"未检测到语音"
func (m *MockProvider) WithNoSpeech() *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noSpeech = true
	return m
}

// WithSpeech 设置合成结果
func (m *MockProvider) WithSpeech(data []byte, format string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speech = data
	m.format = format
	return m
}

// WithError 设置 Complete 返回的错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
	m.failTimes = 0
	return m
}

// WithFailTimes 前 n 次 Complete 返回 err，之后正常响应
func (m *MockProvider) WithFailTimes(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
	m.failTimes = n
	return m
}

// WithTranscribeError 设置 Transcribe 返回的错误
func (m *MockProvider) WithTranscribeError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcribeErr = err
	return m
}

// WithSynthesizeError 设置 Synthesize 返回的错误
func (m *MockProvider) WithSynthesizeError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synthesizeErr = err
	return m
}

// WithCompleteFunc 设置自定义 Complete 函数
func (m *MockProvider) WithCompleteFunc(fn func(ctx context.Context, messages []llm.Message) (*llm.Completion, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// WithDelay 设置每次调用的延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithIgnoreCancel 延迟期间不响应 ctx 取消
func (m *MockProvider) WithIgnoreCancel() *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreCancel = true
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// Complete 生成补全
func (m *MockProvider) Complete(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	m.mu.Lock()
	m.completeCalls = append(m.completeCalls, append([]llm.Message(nil), messages...))
	fn := m.completeFunc
	var err error
	if m.completeErr != nil {
		if m.failTimes == 0 {
			err = m.completeErr
		} else if len(m.completeCalls) <= m.failTimes {
			err = m.completeErr
		}
	}
	response := m.response
	m.mu.Unlock()

	if werr := m.wait(ctx); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, messages)
	}
	return &llm.Completion{
		Text:         response,
		Provider:     "mock",
		Model:        "mock-model",
		FinishReason: "stop",
	}, nil
}

// Transcribe 转写音频
func (m *MockProvider) Transcribe(ctx context.Context, audio *llm.Audio) (*llm.Transcript, error) {
	if err := llm.ValidateAudio("mock", audio); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.transcribeCalls++
	err := m.transcribeErr
	noSpeech := m.noSpeech
	text := m.transcript
	m.mu.Unlock()

	if werr := m.wait(ctx); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	if noSpeech {
		return llm.NoSpeechTranscript("mock", "mock-stt"), nil
	}
	return llm.NewTranscript(text, "mock", "mock-stt"), nil
}

// Synthesize 合成语音
func (m *MockProvider) Synthesize(ctx context.Context, text string) (*llm.Audio, error) {
	m.mu.Lock()
	m.synthesizeCalls = append(m.synthesizeCalls, text)
	err := m.synthesizeErr
	data := append([]byte(nil), m.speech...)
	format := m.format
	m.mu.Unlock()

	if verr := llm.ValidateSynthesisInput("mock", text); verr != nil {
		return nil, verr
	}
	if werr := m.wait(ctx); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return &llm.Audio{Data: data, Format: format}, nil
}

func (m *MockProvider) wait(ctx context.Context) error {
	m.mu.RLock()
	delay, ignore := m.delay, m.ignoreCancel
	m.mu.RUnlock()
	if delay <= 0 {
		return nil
	}
	if ignore {
		time.Sleep(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// --- 调用记录 ---

// CompleteCalls 返回每次 Complete 收到的消息副本
func (m *MockProvider) CompleteCalls() [][]llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]llm.Message(nil), m.completeCalls...)
}

// CompleteCallCount 返回 Complete 调用次数
func (m *MockProvider) CompleteCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.completeCalls)
}

// TranscribeCallCount 返回 Transcribe 调用次数
func (m *MockProvider) TranscribeCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transcribeCalls
}

// SynthesizeCalls 返回 Synthesize 收到的文本
func (m *MockProvider) SynthesizeCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.synthesizeCalls...)
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls = nil
	m.transcribeCalls = 0
	m.synthesizeCalls = nil
}

var _ llm.Provider = (*MockProvider)(nil)
