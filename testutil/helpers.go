package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/types"
)

// TestContext 30s 超时，测试结束时自动取消
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type roleContent struct {
	Role    string
	Content string
}

// AssertMessagesEqual 只比较 role/content，忽略 ID、序号与时间戳
func AssertMessagesEqual(t *testing.T, expected, actual []llm.Message) bool {
	t.Helper()
	project := func(msgs []llm.Message) []roleContent {
		out := make([]roleContent, len(msgs))
		for i, m := range msgs {
			out[i] = roleContent{string(m.Role), m.Content}
		}
		return out
	}
	return assert.Equal(t, project(expected), project(actual))
}

// AssertStoredRoles 持久化历史的角色序列，例如 user, assistant, user, assistant
func AssertStoredRoles(t *testing.T, history []types.Message, roles ...types.Role) bool {
	t.Helper()
	if len(roles) == 0 {
		return assert.Empty(t, history, "stored roles")
	}
	got := make([]types.Role, len(history))
	for i, m := range history {
		got[i] = m.Role
	}
	return assert.Equal(t, roles, got, "stored roles")
}

// AssertErrorCode err 必须是携带 code 的 *types.Error（可被包装）
func AssertErrorCode(t *testing.T, err error, code types.ErrorCode) bool {
	t.Helper()
	if !assert.Error(t, err, "expected error with code %s", code) {
		return false
	}
	return assert.Equal(t, code, types.GetErrorCode(err), "error: %v", err)
}

// WaitFor 每 10ms 轮询一次，超时前 condition 为真返回 true
func WaitFor(condition func() bool, timeout time.Duration) bool {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(timeout)
	for !condition() {
		select {
		case <-deadline:
			return condition()
		case <-tick.C:
		}
	}
	return true
}
