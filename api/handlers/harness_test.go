package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/agentchat/agent/artifacts"
	"github.com/BaSui01/agentchat/agent/orchestrator"
	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/agent/voice"
	"github.com/BaSui01/agentchat/testutil"
	"github.com/BaSui01/agentchat/testutil/fixtures"
	"github.com/BaSui01/agentchat/testutil/mocks"
	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// apiHarness 用内存存储与 MockProvider 组装完整路由
type apiHarness struct {
	store     *persistence.MemoryStore
	provider  *mocks.MockProvider
	artifacts *artifacts.Manager
	mux       *http.ServeMux
	agent     *types.Agent
	session   *types.Session
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	ctx := testutil.TestContext(t)

	store := persistence.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	agent, sess, err := fixtures.SeedPirateSession(ctx, store)
	require.NoError(t, err)

	fs, err := artifacts.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mgr := artifacts.NewManager(artifacts.DefaultManagerConfig(), fs, zap.NewNop())

	provider := mocks.NewMockProvider().WithResponse("Ahoy, matey!")
	pipeline := voice.NewPipeline(voice.DefaultVoiceConfig(), provider, mgr, zap.NewNop())
	orch := orchestrator.New(store, provider, pipeline, orchestrator.DefaultConfig(), zap.NewNop())

	health := NewHealthHandler(zap.NewNop())
	health.RegisterCheck(NewPingCheck("store", store.Ping))

	mux := http.NewServeMux()
	Routes{
		Health:    health,
		Version:   VersionInfo{Version: "test"},
		Agents:    NewAgentHandler(store, zap.NewNop()),
		Sessions:  NewSessionHandler(store, zap.NewNop()),
		Chat:      NewChatHandler(orch, store, 1<<20, zap.NewNop()),
		Artifacts: NewArtifactHandler(mgr, zap.NewNop()),
	}.Register(mux)

	return &apiHarness{
		store:     store,
		provider:  provider,
		artifacts: mgr,
		mux:       mux,
		agent:     agent,
		session:   sess,
	}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func (h *apiHarness) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

// decodeData 把信封中的 data 解到 dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if dst != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, dst))
	}
	return raw.Response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeData(t, w, nil)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}
