package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/agentchat/agent/orchestrator"
	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/api"
	"github.com/BaSui01/agentchat/internal/audio"
	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// =============================================================================
// 💬 对话接口 Handler
// =============================================================================

// TurnService 执行一次对话轮次，由 orchestrator.Orchestrator 实现
type TurnService interface {
	HandleTextTurn(ctx context.Context, sessionID, text string) (*orchestrator.TurnResult, error)
	HandleVoiceTurn(ctx context.Context, sessionID string, audio *llm.Audio) (*orchestrator.TurnResult, error)
	RetryTurn(ctx context.Context, sessionID string) (*orchestrator.TurnResult, error)
}

// ChatHandler 对话接口处理器
type ChatHandler struct {
	turns          TurnService
	history        persistence.MessageStore
	maxUploadBytes int64
	artifactPrefix string
	logger         *zap.Logger
}

// DefaultMaxUploadBytes 语音上传上限
const DefaultMaxUploadBytes int64 = 25 << 20

// multipart 头与其他字段的余量
const multipartOverhead = 1 << 20

// NewChatHandler 创建对话处理器。maxUploadBytes <= 0 时使用 DefaultMaxUploadBytes。
func NewChatHandler(turns TurnService, history persistence.MessageStore, maxUploadBytes int64, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ChatHandler{
		turns:          turns,
		history:        history,
		maxUploadBytes: maxUploadBytes,
		artifactPrefix: "/api/v1/artifacts/",
		logger:         logger.With(zap.String("handler", "chat")),
	}
}

// HandleListMessages 返回会话的完整历史（按 sequence 升序）
// @Summary 会话历史
// @Tags 对话
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=api.MessageList}
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/sessions/{id}/messages [get]
func (h *ChatHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session", h.logger)
	if !ok {
		return
	}

	msgs, err := h.history.ListOrdered(r.Context(), id)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	WriteSuccess(w, api.MessageList{SessionID: id, Messages: msgs})
}

// HandleTextTurn 处理文本消息
// @Summary 发送文本消息
// @Tags 对话
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body api.TextTurnRequest true "消息"
// @Success 200 {object} Response{data=api.TurnResponse}
// @Failure 400 {object} Response "空消息"
// @Failure 404 {object} Response "会话不存在"
// @Failure 503 {object} Response "Provider 不可用"
// @Router /api/v1/sessions/{id}/messages/text [post]
func (h *ChatHandler) HandleTextTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session", h.logger)
	if !ok {
		return
	}

	var req api.TextTurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	res, err := h.turns.HandleTextTurn(r.Context(), id, req.Content)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	WriteSuccess(w, h.toResponse(res))
}

// HandleVoiceTurn 处理语音消息，音频放在 multipart 字段 audio 中。
// 格式依次取自文件名、分段 Content-Type 与表单字段 format。
// @Summary 发送语音消息
// @Tags 对话
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param audio formData file true "音频"
// @Success 200 {object} Response{data=api.TurnResponse}
// @Failure 400 {object} Response "无效音频或未检测到语音"
// @Failure 413 {object} Response "音频过大"
// @Router /api/v1/sessions/{id}/messages/voice [post]
func (h *ChatHandler) HandleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session", h.logger)
	if !ok {
		return
	}

	clip, err := h.readAudio(w, r)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}

	res, err := h.turns.HandleVoiceTurn(r.Context(), id, clip)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	WriteSuccess(w, h.toResponse(res))
}

// HandleRetry 为末尾未被回答的用户消息补一条回复
// @Summary 重试失败轮次
// @Tags 对话
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=api.TurnResponse}
// @Failure 400 {object} Response "没有可重试的消息"
// @Router /api/v1/sessions/{id}/messages/retry [post]
func (h *ChatHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session", h.logger)
	if !ok {
		return
	}

	res, err := h.turns.RetryTurn(r.Context(), id)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	WriteSuccess(w, h.toResponse(res))
}

// readAudio 解析 multipart 上传
func (h *ChatHandler) readAudio(w http.ResponseWriter, r *http.Request) (*llm.Audio, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, h.tooLarge()
		}
		return nil, types.NewInvalidRequestError("expected multipart/form-data with an audio field").WithCause(err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, types.NewInvalidRequestError("missing audio field").WithCause(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, types.NewInvalidRequestError("failed to read audio").WithCause(err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, h.tooLarge()
	}

	format := audio.NormalizeFormat(header.Filename)
	if format == "" {
		format = audio.NormalizeFormat(header.Header.Get("Content-Type"))
	}
	if format == "" {
		format = audio.NormalizeFormat(r.FormValue("format"))
	}
	if format == "" {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("unsupported audio format %q", header.Filename))
	}

	return &llm.Audio{Data: data, Format: format}, nil
}

func (h *ChatHandler) tooLarge() *types.Error {
	return types.NewInvalidRequestError(fmt.Sprintf("audio exceeds %d bytes", h.maxUploadBytes)).
		WithHTTPStatus(http.StatusRequestEntityTooLarge)
}

func (h *ChatHandler) toResponse(res *orchestrator.TurnResult) api.TurnResponse {
	out := api.TurnResponse{
		TurnID:     res.TurnID,
		User:       res.User,
		Assistant:  res.Assistant,
		Transcript: res.Transcript,
		Degraded:   res.Degraded,
	}
	if res.Assistant.HasAudio() {
		out.AudioURL = h.artifactPrefix + strings.TrimPrefix(res.Assistant.AudioPath, "/")
	}
	if res.Completion != nil {
		out.Provider = res.Completion.Provider
		out.Model = res.Completion.Model
	}
	return out
}
