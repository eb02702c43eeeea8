package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/agentchat/agent/artifacts"
	"github.com/BaSui01/agentchat/internal/audio"
	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// VoiceConfig 配置语音管线
type VoiceConfig struct {
	MaxAudioBytes int64 `json:"max_audio_bytes" yaml:"max_audio_bytes"`
	// KeepInbound 为 false 时不保存用户上传的音频
	KeepInbound bool `json:"keep_inbound" yaml:"keep_inbound"`
}

// DefaultVoiceConfig 返回默认配置
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		MaxAudioBytes: 25 * 1024 * 1024,
		KeepInbound:   true,
	}
}

// ArtifactSaver 保存一段音频产物
type ArtifactSaver interface {
	Save(ctx context.Context, sessionID string, kind artifacts.Kind, data []byte, format string) (*artifacts.Artifact, error)
}

// Inbound 是入站处理结果
type Inbound struct {
	Text       string
	Transcript *llm.Transcript
	AudioPath  string // 未保存时为空
	Format     string
}

// Outbound 是出站处理结果
type Outbound struct {
	AudioPath string
	Format    string
	Size      int
}

// VoiceMetrics 语音管线计数
type VoiceMetrics struct {
	Transcriptions    int64         `json:"transcriptions"`
	NoSpeech          int64         `json:"no_speech"`
	TranscribeErrors  int64         `json:"transcribe_errors"`
	Syntheses         int64         `json:"syntheses"`
	SynthesisFailures int64         `json:"synthesis_failures"`
	InboundBytes      int64         `json:"inbound_bytes"`
	OutboundBytes     int64         `json:"outbound_bytes"`
	TranscribeTime    time.Duration `json:"transcribe_time"`
	SynthesisTime     time.Duration `json:"synthesis_time"`
}

// Pipeline 连接 Provider 与产物存储
type Pipeline struct {
	config    VoiceConfig
	provider  llm.Provider
	artifacts ArtifactSaver
	logger    *zap.Logger

	metrics   VoiceMetrics
	metricsMu sync.Mutex
}

// NewPipeline 创建语音管线
func NewPipeline(config VoiceConfig, provider llm.Provider, saver ArtifactSaver, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:    config,
		provider:  provider,
		artifacts: saver,
		logger:    logger.With(zap.String("component", "voice_pipeline")),
	}
}

// Transcribe 处理入站音频。
func (p *Pipeline) Transcribe(ctx context.Context, sessionID string, in *llm.Audio) (*Inbound, error) {
	if in == nil || len(in.Data) == 0 {
		return nil, types.NewUserInputEmptyError("audio input is empty")
	}
	format := audio.NormalizeFormat(in.Format)
	if format == "" {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("unsupported audio format %q", in.Format))
	}
	if p.config.MaxAudioBytes > 0 && int64(len(in.Data)) > p.config.MaxAudioBytes {
		return nil, types.NewInvalidRequestError(
			fmt.Sprintf("audio input exceeds %d bytes", p.config.MaxAudioBytes)).WithHTTPStatus(413)
	}

	start := time.Now()
	tr, err := p.provider.Transcribe(ctx, &llm.Audio{Data: in.Data, Format: format})
	elapsed := time.Since(start)
	if err != nil {
		p.record(func(m *VoiceMetrics) { m.TranscribeErrors++; m.TranscribeTime += elapsed })
		return nil, asProviderError(p.provider.Name(), err)
	}
	if tr == nil || tr.NoSpeech || tr.Text == "" {
		p.record(func(m *VoiceMetrics) { m.NoSpeech++; m.TranscribeTime += elapsed })
		return nil, types.NewUserInputEmptyError("no speech detected").WithProvider(p.provider.Name())
	}
	p.record(func(m *VoiceMetrics) {
		m.Transcriptions++
		m.InboundBytes += int64(len(in.Data))
		m.TranscribeTime += elapsed
	})

	result := &Inbound{Text: tr.Text, Transcript: tr, Format: format}

	if p.config.KeepInbound && p.artifacts != nil {
		a, err := p.artifacts.Save(ctx, sessionID, artifacts.KindInbound, in.Data, format)
		if err != nil {
			// 上传音频只作为附件，丢失不影响本轮对话
			p.logger.Warn("failed to keep inbound audio",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else {
			result.AudioPath = a.Path
		}
	}

	p.logger.Debug("audio transcribed",
		zap.String("session_id", sessionID),
		zap.String("provider", tr.Provider),
		zap.String("model", tr.Model),
		zap.Int("chars", len(tr.Text)),
		zap.Duration("latency", elapsed),
	)
	return result, nil
}

// Speak 合成回复并保存。返回的错误码恒为 SYNTHESIS_FAILED。
func (p *Pipeline) Speak(ctx context.Context, sessionID, text string) (*Outbound, error) {
	start := time.Now()
	out, err := p.provider.Synthesize(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		p.record(func(m *VoiceMetrics) { m.SynthesisFailures++; m.SynthesisTime += elapsed })
		return nil, asSynthesisError(p.provider.Name(), "synthesis failed", err)
	}
	if out == nil || len(out.Data) == 0 {
		p.record(func(m *VoiceMetrics) { m.SynthesisFailures++; m.SynthesisTime += elapsed })
		return nil, types.NewSynthesisFailedError(p.provider.Name(), "synthesis returned no audio")
	}
	if p.artifacts == nil {
		p.record(func(m *VoiceMetrics) { m.SynthesisFailures++ })
		return nil, types.NewSynthesisFailedError(p.provider.Name(), "no artifact store configured")
	}

	a, err := p.artifacts.Save(ctx, sessionID, artifacts.KindOutbound, out.Data, out.Format)
	if err != nil {
		p.record(func(m *VoiceMetrics) { m.SynthesisFailures++; m.SynthesisTime += elapsed })
		return nil, asSynthesisError(p.provider.Name(), "failed to store synthesized audio", err)
	}

	p.record(func(m *VoiceMetrics) {
		m.Syntheses++
		m.OutboundBytes += int64(len(out.Data))
		m.SynthesisTime += elapsed
	})
	return &Outbound{AudioPath: a.Path, Format: out.Format, Size: len(out.Data)}, nil
}

// GetMetrics 返回当前计数
func (p *Pipeline) GetMetrics() VoiceMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	return p.metrics
}

func (p *Pipeline) record(fn func(*VoiceMetrics)) {
	p.metricsMu.Lock()
	fn(&p.metrics)
	p.metricsMu.Unlock()
}

// asProviderError 保证转写错误是类型化的 Provider 错误
func asProviderError(provider string, err error) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	msg := "transcription failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "transcription timed out"
	}
	return types.NewProviderUnavailableError(provider, msg).WithCause(err)
}

func asSynthesisError(provider, msg string, err error) error {
	if types.IsErrorCode(err, types.ErrSynthesisFailed) {
		return err
	}
	return types.NewSynthesisFailedError(provider, msg).WithCause(err)
}
