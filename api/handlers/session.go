package handlers

import (
	"net/http"

	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/api"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// SessionHandler 会话的创建、查询与删除
type SessionHandler struct {
	catalog persistence.CatalogStore
	logger  *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(catalog persistence.CatalogStore, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		catalog: catalog,
		logger:  logger.With(zap.String("handler", "session")),
	}
}

// HandleCreateSession 为已有 Agent 创建会话，名称为空时使用默认名
// @Summary Create session
// @Tags session
// @Accept json
// @Produce json
// @Param request body api.CreateSessionRequest true "Session"
// @Success 201 {object} Response{data=types.Session}
// @Failure 404 {object} Response "Agent not found"
// @Router /api/v1/sessions [post]
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.AgentID == "" {
		WriteError(w, types.NewInvalidRequestError("agent_id is required"), h.logger)
		return
	}

	session, err := h.catalog.CreateSession(r.Context(), req.AgentID, req.Name)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}

	h.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("agent_id", session.AgentID),
	)
	WriteCreated(w, http.StatusCreated, session)
}

// HandleGetSession 查询会话
// @Summary Get session
// @Tags session
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=types.Session}
// @Failure 404 {object} Response "Session not found"
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session", h.logger)
	if !ok {
		return
	}

	session, err := h.catalog.GetSession(r.Context(), id)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	WriteSuccess(w, session)
}

// HandleDeleteSession 删除会话及其全部历史
// @Summary Delete session
// @Tags session
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} Response "Session not found"
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session", h.logger)
	if !ok {
		return
	}

	if err := h.catalog.DeleteSession(r.Context(), id); err != nil {
		WriteErr(w, err, h.logger)
		return
	}

	h.logger.Info("session deleted", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}
