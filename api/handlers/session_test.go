package handlers

import (
	"net/http"
	"testing"

	"github.com/BaSui01/agentchat/api"
	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandler_Create(t *testing.T) {
	tests := []struct {
		name     string
		req      api.CreateSessionRequest
		wantName string
	}{
		{"named", api.CreateSessionRequest{Name: "Treasure hunt"}, "Treasure hunt"},
		{"default name", api.CreateSessionRequest{}, types.DefaultSessionName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPIHarness(t)
			tt.req.AgentID = h.agent.ID

			w := h.do(t, http.MethodPost, "/api/v1/sessions", tt.req)
			require.Equal(t, http.StatusCreated, w.Code)

			var sess types.Session
			decodeData(t, w, &sess)
			assert.NotEmpty(t, sess.ID)
			assert.Equal(t, h.agent.ID, sess.AgentID)
			assert.Equal(t, tt.wantName, sess.Name)
		})
	}
}

func TestSessionHandler_CreateErrors(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/sessions", api.CreateSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/api/v1/sessions", api.CreateSessionRequest{AgentID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.ErrAgentNotFound), errorCode(t, w))
}

func TestSessionHandler_GetAndDelete(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodGet, "/api/v1/sessions/"+h.session.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess types.Session
	decodeData(t, w, &sess)
	assert.Equal(t, h.session.ID, sess.ID)

	w = h.do(t, http.MethodDelete, "/api/v1/sessions/"+h.session.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodGet, "/api/v1/sessions/"+h.session.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.ErrSessionNotFound), errorCode(t, w))

	// agent 不受影响
	w = h.do(t, http.MethodGet, "/api/v1/agents/"+h.agent.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionHandler_DeleteUnknown(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodDelete, "/api/v1/sessions/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
