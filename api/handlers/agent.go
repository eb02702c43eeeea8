package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/api"
	"github.com/BaSui01/agentchat/types"
	"go.uber.org/zap"
)

// =============================================================================
// Agent Management Handler
// =============================================================================

// AgentHandler 管理 Agent 及其会话列表
type AgentHandler struct {
	catalog persistence.CatalogStore
	logger  *zap.Logger
}

// NewAgentHandler creates an Agent handler
func NewAgentHandler(catalog persistence.CatalogStore, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		catalog: catalog,
		logger:  logger.With(zap.String("handler", "agent")),
	}
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// HandleCreateAgent creates an agent
// @Summary Create agent
// @Tags agent
// @Accept json
// @Produce json
// @Param request body api.CreateAgentRequest true "Agent"
// @Success 201 {object} Response{data=types.Agent}
// @Failure 400 {object} Response "Invalid request"
// @Router /api/v1/agents [post]
func (h *AgentHandler) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAgentRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	agent, err := h.catalog.CreateAgent(r.Context(), strings.TrimSpace(req.Name), req.Prompt)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}

	h.logger.Info("agent created", zap.String("agent_id", agent.ID), zap.String("name", agent.Name))
	WriteCreated(w, http.StatusCreated, agent)
}

// HandleListAgents lists agents newest first
// @Summary List agents
// @Tags agent
// @Produce json
// @Success 200 {object} Response{data=[]types.Agent}
// @Router /api/v1/agents [get]
func (h *AgentHandler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.catalog.ListAgents(r.Context())
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	if agents == nil {
		agents = []types.Agent{}
	}
	WriteSuccess(w, agents)
}

// HandleGetAgent gets a single agent
// @Summary Get agent
// @Tags agent
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} Response{data=types.Agent}
// @Failure 404 {object} Response "Agent not found"
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "agent", h.logger)
	if !ok {
		return
	}

	agent, err := h.catalog.GetAgent(r.Context(), id)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	WriteSuccess(w, agent)
}

// HandleUpdateAgent changes name and/or prompt. Existing history is not rewritten;
// the new prompt applies from the next turn on.
// @Summary Update agent
// @Tags agent
// @Accept json
// @Produce json
// @Param id path string true "Agent ID"
// @Param request body api.UpdateAgentRequest true "Changes"
// @Success 200 {object} Response{data=types.Agent}
// @Failure 400 {object} Response "Invalid request"
// @Failure 404 {object} Response "Agent not found"
// @Router /api/v1/agents/{id} [put]
func (h *AgentHandler) HandleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "agent", h.logger)
	if !ok {
		return
	}

	var req api.UpdateAgentRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Name == nil && req.Prompt == nil {
		WriteError(w, types.NewInvalidRequestError("nothing to update"), h.logger)
		return
	}

	agent, err := h.catalog.UpdateAgent(r.Context(), id, persistence.AgentUpdate{Name: req.Name, Prompt: req.Prompt})
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}

	h.logger.Info("agent updated", zap.String("agent_id", agent.ID))
	WriteSuccess(w, agent)
}

// HandleDeleteAgent deletes an agent with its sessions and their messages
// @Summary Delete agent
// @Tags agent
// @Param id path string true "Agent ID"
// @Success 204
// @Failure 404 {object} Response "Agent not found"
// @Router /api/v1/agents/{id} [delete]
func (h *AgentHandler) HandleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "agent", h.logger)
	if !ok {
		return
	}

	if err := h.catalog.DeleteAgent(r.Context(), id); err != nil {
		WriteErr(w, err, h.logger)
		return
	}

	h.logger.Info("agent deleted", zap.String("agent_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAgentSessions lists an agent's sessions newest first
// @Summary List agent sessions
// @Tags agent
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} Response{data=[]types.Session}
// @Failure 404 {object} Response "Agent not found"
// @Router /api/v1/agents/{id}/sessions [get]
func (h *AgentHandler) HandleListAgentSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "agent", h.logger)
	if !ok {
		return
	}

	sessions, err := h.catalog.ListSessions(r.Context(), id)
	if err != nil {
		WriteErr(w, err, h.logger)
		return
	}
	if sessions == nil {
		sessions = []types.Session{}
	}
	WriteSuccess(w, sessions)
}

// pathID 读取路由参数 {id}，为空时写出 400
func pathID(w http.ResponseWriter, r *http.Request, what string, logger *zap.Logger) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteError(w, types.NewInvalidRequestError(what+" ID is required"), logger)
		return "", false
	}
	return id, true
}
