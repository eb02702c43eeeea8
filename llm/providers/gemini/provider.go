package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentchat/internal/audio"
	"github.com/BaSui01/agentchat/internal/tlsutil"
	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// noSpeechMarker 转写指令约定的无语音哨兵
	noSpeechMarker = "[NO_SPEECH]"

	transcribeInstruction = "Generate an exact transcript of this audio. " +
		"If the audio contains no intelligible speech, reply with exactly " + noSpeechMarker + "."

	// TTS 输出为 24kHz 单声道 16bit 小端 PCM
	pcmSampleRate    = 24000
	pcmChannels      = 1
	pcmBitsPerSample = 16
)

// GeminiProvider 实现 Google Gemini 的 Provider
type GeminiProvider struct {
	cfg    providers.GeminiConfig
	client *genai.Client
	logger *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider，未设置的字段取 DefaultGeminiConfig 的值。
func NewGeminiProvider(ctx context.Context, cfg providers.GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := providers.DefaultGeminiConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = def.Chat.Model
	}
	if cfg.Speech.TranscriptionModel == "" {
		cfg.Speech.TranscriptionModel = def.Speech.TranscriptionModel
	}
	if cfg.Speech.SpeechModel == "" {
		cfg.Speech.SpeechModel = def.Speech.SpeechModel
	}
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = def.Speech.Voice
	}
	cfg.Speech.Format = "wav"

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tlsutil.SecureHTTPClient(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("provider", "gemini")),
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Complete 实现 llm.Provider.Complete
func (p *GeminiProvider) Complete(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	persona, turns := llm.SplitPersona(messages)
	if len(turns) == 0 {
		return nil, types.NewInvalidRequestError("no messages to complete").WithProvider(p.Name())
	}

	config := &genai.GenerateContentConfig{}
	if persona != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: persona}},
		}
	}
	if p.cfg.Chat.Temperature > 0 {
		temp := p.cfg.Chat.Temperature
		config.Temperature = &temp
	}
	if p.cfg.Chat.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.cfg.Chat.MaxTokens)
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Chat.Model, convertMessages(turns), config)
	if err != nil {
		return nil, p.mapError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, providers.InvalidResponse(p.Name(), "completion is empty", nil)
	}

	c := &llm.Completion{
		Text:     text,
		Provider: p.Name(),
		Model:    p.cfg.Chat.Model,
		Latency:  time.Since(start),
	}
	if resp.ModelVersion != "" {
		c.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 {
		c.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		c.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return c, nil
}

// Transcribe 实现 llm.Provider.Transcribe
func (p *GeminiProvider) Transcribe(ctx context.Context, in *llm.Audio) (*llm.Transcript, error) {
	if err := llm.ValidateAudio(p.Name(), in); err != nil {
		return nil, err
	}
	model := p.cfg.Speech.TranscriptionModel

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: transcribeInstruction},
			{InlineData: &genai.Blob{MIMEType: audio.MIMEType(in.Format), Data: in.Data}},
		},
	}}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, p.mapError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == noSpeechMarker {
		return llm.NoSpeechTranscript(p.Name(), model), nil
	}
	return llm.NewTranscript(text, p.Name(), model), nil
}

// Synthesize 实现 llm.Provider.Synthesize
func (p *GeminiProvider) Synthesize(ctx context.Context, text string) (*llm.Audio, error) {
	if err := llm.ValidateSynthesisInput(p.Name(), text); err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.cfg.Speech.Voice},
			},
		},
	}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: text}},
	}}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Speech.SpeechModel, contents, config)
	if err != nil {
		return nil, p.mapError(err)
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, types.NewSynthesisFailedError(p.Name(), "speech response has no audio")
	}

	data := blob.Data
	if !audio.IsWAV(data) {
		data = audio.WrapPCMAsWAV(data, pcmSampleRate, pcmChannels, pcmBitsPerSample)
	}
	return &llm.Audio{Data: data, Format: "wav"}, nil
}

// mapError 将 SDK 错误转换为类型化错误
func (p *GeminiProvider) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return providers.MapHTTPError(apiErr.Code, apiErr.Message, p.Name())
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return providers.MapHTTPError(apiErrPtr.Code, apiErrPtr.Message, p.Name())
	}
	return providers.MapTransportError(err, p.Name())
}

func convertMessages(msgs []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}
