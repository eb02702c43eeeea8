// =============================================================================
// agentchat OpenAI-Compatible Provider Base
// =============================================================================
// Chat completion, transcription and speech over the OpenAI wire protocol.
// Every failure leaves this package as a *types.Error.
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentchat/internal/audio"
	"github.com/BaSui01/agentchat/internal/tlsutil"
	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// maxAudioResponseBytes 合成音频响应体上限
const maxAudioResponseBytes = 32 << 20

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "openai", "groq").
	ProviderName string

	// APIKey is the authentication key for the provider's API.
	APIKey string

	// BaseURL is the base URL for the provider's API (e.g., "https://api.openai.com").
	BaseURL string

	// Timeout is the HTTP client timeout. Defaults to 60s if zero.
	Timeout time.Duration

	Chat   providers.ChatConfig
	Speech providers.SpeechConfig

	// Endpoint paths. Default to the /v1 OpenAI paths.
	ChatPath          string
	TranscriptionPath string
	SpeechPath        string

	// BuildHeaders is an optional function to set custom headers on each request.
	// If nil, the default "Authorization: Bearer <apiKey>" header is used.
	BuildHeaders func(req *http.Request, apiKey string)

	// HTTPClient overrides the hardened default client.
	HTTPClient *http.Client
}

// Provider is the base implementation for all OpenAI-compatible providers.
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.ChatPath == "" {
		cfg.ChatPath = "/v1/chat/completions"
	}
	if cfg.TranscriptionPath == "" {
		cfg.TranscriptionPath = "/v1/audio/transcriptions"
	}
	if cfg.SpeechPath == "" {
		cfg.SpeechPath = "/v1/audio/speech"
	}
	if cfg.Speech.Format == "" {
		cfg.Speech.Format = "mp3"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = tlsutil.SecureHTTPClient(timeout)
	}
	return &Provider{
		Cfg:    cfg,
		Client: client,
		Logger: logger.With(zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// buildHeaders applies auth headers to the HTTP request.
func (p *Provider) buildHeaders(req *http.Request) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, p.Cfg.APIKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+p.Cfg.APIKey)
}

// endpoint builds the full URL for a given path.
func (p *Provider) endpoint(path string) string {
	return strings.TrimRight(p.Cfg.BaseURL, "/") + path
}

// do 发送请求；传输错误与 >=400 状态都转换为类型化错误。
// 成功时调用方负责关闭响应体。
func (p *Provider) do(req *http.Request) (*http.Response, error) {
	p.buildHeaders(req)
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, providers.MapTransportError(err, p.Name())
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}
	return resp, nil
}

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	if len(messages) == 0 {
		return nil, types.NewInvalidRequestError("no messages to complete").WithProvider(p.Name())
	}

	body := providers.OpenAICompatRequest{
		Model:       p.Cfg.Chat.Model,
		Messages:    make([]providers.OpenAICompatMessage, 0, len(messages)),
		MaxTokens:   p.Cfg.Chat.MaxTokens,
		Temperature: p.Cfg.Chat.Temperature,
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, providers.OpenAICompatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to marshal request").WithCause(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.ChatPath), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var oaResp providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, providers.InvalidResponse(p.Name(), "failed to decode completion", err)
	}
	if len(oaResp.Choices) == 0 || oaResp.Choices[0].Message == nil {
		return nil, providers.InvalidResponse(p.Name(), "completion has no choices", nil)
	}
	text := strings.TrimSpace(oaResp.Choices[0].Message.Content)
	if text == "" {
		return nil, providers.InvalidResponse(p.Name(), "completion is empty", nil)
	}

	model := oaResp.Model
	if model == "" {
		model = p.Cfg.Chat.Model
	}
	c := &llm.Completion{
		Text:         text,
		Provider:     p.Name(),
		Model:        model,
		FinishReason: oaResp.Choices[0].FinishReason,
		Latency:      time.Since(start),
	}
	if oaResp.Usage != nil {
		c.Usage = llm.Usage{
			PromptTokens:     oaResp.Usage.PromptTokens,
			CompletionTokens: oaResp.Usage.CompletionTokens,
			TotalTokens:      oaResp.Usage.TotalTokens,
		}
	}
	return c, nil
}

// Transcribe uploads audio as multipart form data. A blank transcript is
// reported as no speech.
func (p *Provider) Transcribe(ctx context.Context, in *llm.Audio) (*llm.Transcript, error) {
	if err := llm.ValidateAudio(p.Name(), in); err != nil {
		return nil, err
	}
	model := p.Cfg.Speech.TranscriptionModel

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	// 服务端按文件扩展名识别格式
	part, err := writer.CreateFormFile("file", "audio"+audio.Extension(in.Format))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create form file").WithCause(err)
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to copy audio").WithCause(err)
	}
	_ = writer.WriteField("model", model)
	_ = writer.WriteField("response_format", "json")
	if p.Cfg.Speech.Language != "" {
		_ = writer.WriteField("language", p.Cfg.Speech.Language)
	}
	if err := writer.Close(); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to close multipart writer").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.TranscriptionPath), &buf)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr providers.OpenAICompatTranscription
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, providers.InvalidResponse(p.Name(), "failed to decode transcription", err)
	}

	result := llm.NewTranscript(tr.Text, p.Name(), model)
	result.Language = tr.Language
	if result.NoSpeech {
		p.Logger.Debug("transcription returned no speech", zap.Int("audio_bytes", len(in.Data)))
	}
	return result, nil
}

// Synthesize converts text to audio in the configured format.
func (p *Provider) Synthesize(ctx context.Context, text string) (*llm.Audio, error) {
	if err := llm.ValidateSynthesisInput(p.Name(), text); err != nil {
		return nil, err
	}

	body := providers.OpenAICompatSpeechRequest{
		Model:          p.Cfg.Speech.SpeechModel,
		Input:          text,
		Voice:          p.Cfg.Speech.Voice,
		ResponseFormat: p.Cfg.Speech.Format,
		Instructions:   p.Cfg.Speech.Instructions,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to marshal request").WithCause(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.SpeechPath), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioResponseBytes+1))
	if err != nil {
		return nil, providers.MapTransportError(err, p.Name())
	}
	if len(data) == 0 {
		return nil, types.NewSynthesisFailedError(p.Name(), "speech response is empty")
	}
	if len(data) > maxAudioResponseBytes {
		return nil, types.NewSynthesisFailedError(p.Name(), fmt.Sprintf("speech response exceeds %d bytes", maxAudioResponseBytes))
	}

	return &llm.Audio{Data: data, Format: p.Cfg.Speech.Format}, nil
}
