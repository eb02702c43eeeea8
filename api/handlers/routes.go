package handlers

import "net/http"

// Routes 汇总全部处理器，Register 把它们挂到 ServeMux 上。
// 为 nil 的处理器对应的路由不注册。
type Routes struct {
	Health    *HealthHandler
	Version   VersionInfo
	Agents    *AgentHandler
	Sessions  *SessionHandler
	Chat      *ChatHandler
	Artifacts *ArtifactHandler
}

// Register 注册路由（Go 1.22 方法与通配符模式）
func (rt Routes) Register(mux *http.ServeMux) {
	if h := rt.Health; h != nil {
		mux.HandleFunc("GET /health", h.HandleHealth)
		mux.HandleFunc("GET /healthz", h.HandleHealthz)
		mux.HandleFunc("GET /ready", h.HandleReady)
		mux.HandleFunc("GET /readyz", h.HandleReady)
		mux.HandleFunc("GET /version", h.HandleVersion(rt.Version))
	}

	if h := rt.Agents; h != nil {
		mux.HandleFunc("POST /api/v1/agents", h.HandleCreateAgent)
		mux.HandleFunc("GET /api/v1/agents", h.HandleListAgents)
		mux.HandleFunc("GET /api/v1/agents/{id}", h.HandleGetAgent)
		mux.HandleFunc("PUT /api/v1/agents/{id}", h.HandleUpdateAgent)
		mux.HandleFunc("DELETE /api/v1/agents/{id}", h.HandleDeleteAgent)
		mux.HandleFunc("GET /api/v1/agents/{id}/sessions", h.HandleListAgentSessions)
	}

	if h := rt.Sessions; h != nil {
		mux.HandleFunc("POST /api/v1/sessions", h.HandleCreateSession)
		mux.HandleFunc("GET /api/v1/sessions/{id}", h.HandleGetSession)
		mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.HandleDeleteSession)
	}

	if h := rt.Chat; h != nil {
		mux.HandleFunc("GET /api/v1/sessions/{id}/messages", h.HandleListMessages)
		mux.HandleFunc("POST /api/v1/sessions/{id}/messages/text", h.HandleTextTurn)
		mux.HandleFunc("POST /api/v1/sessions/{id}/messages/voice", h.HandleVoiceTurn)
		mux.HandleFunc("POST /api/v1/sessions/{id}/messages/retry", h.HandleRetry)
	}

	if h := rt.Artifacts; h != nil {
		mux.HandleFunc("GET /api/v1/artifacts/{path...}", h.HandleGetArtifact)
	}
}
