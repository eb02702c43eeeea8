package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BaSui01/agentchat/agent/artifacts"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// ArtifactOpener 读取语音产物，由 artifacts.Manager 实现
type ArtifactOpener interface {
	Open(ctx context.Context, path string) ([]byte, string, error)
}

// ArtifactHandler 下载语音产物
type ArtifactHandler struct {
	opener ArtifactOpener
	logger *zap.Logger
}

// NewArtifactHandler 创建产物处理器
func NewArtifactHandler(opener ArtifactOpener, logger *zap.Logger) *ArtifactHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactHandler{opener: opener, logger: logger.With(zap.String("handler", "artifact"))}
}

// HandleGetArtifact 按消息中记录的路径返回音频
// @Summary 下载语音产物
// @Tags 对话
// @Produce audio/mpeg
// @Param path path string true "产物路径"
// @Success 200 {file} binary
// @Failure 404 {object} Response "产物不存在"
// @Router /api/v1/artifacts/{path} [get]
func (h *ArtifactHandler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("path")

	data, mimeType, err := h.opener.Open(r.Context(), p)
	switch {
	case err == nil:
	case errors.Is(err, artifacts.ErrInvalidPath):
		WriteError(w, types.NewInvalidRequestError("invalid artifact path"), h.logger)
		return
	case errors.Is(err, artifacts.ErrNotFound):
		WriteError(w, types.NewNotFoundError(types.ErrArtifactNotFound, "artifact not found: "+p), h.logger)
		return
	default:
		WriteError(w, types.NewStoreUnavailableError("failed to read artifact", err), h.logger)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// 产物路径含随机 token，内容不会变化
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
