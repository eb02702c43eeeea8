package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// runRepositoryContract 对任意后端执行同一组行为测试
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	newSession := func(t *testing.T, repo Repository) *types.Session {
		t.Helper()
		a, err := repo.CreateAgent(ctx, "Pirate", "You are a pirate")
		require.NoError(t, err)
		s, err := repo.CreateSession(ctx, a.ID, "")
		require.NoError(t, err)
		return s
	}

	t.Run("Ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("AgentLifecycle", func(t *testing.T) {
		repo := newRepo(t)

		first, err := repo.CreateAgent(ctx, "Pirate", "You are a pirate")
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		time.Sleep(2 * time.Millisecond)
		second, err := repo.CreateAgent(ctx, "Chef", "You are a chef")
		require.NoError(t, err)

		got, err := repo.GetAgent(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Pirate", got.Name)
		assert.Equal(t, "You are a pirate", got.Prompt)

		list, err := repo.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")
		assert.Equal(t, first.ID, list[1].ID)

		name := "Captain"
		updated, err := repo.UpdateAgent(ctx, first.ID, AgentUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Captain", updated.Name)
		assert.Equal(t, "You are a pirate", updated.Prompt)
		assert.False(t, updated.UpdatedAt.Before(first.UpdatedAt))

		blank := "  "
		_, err = repo.UpdateAgent(ctx, first.ID, AgentUpdate{Prompt: &blank})
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))

		_, err = repo.UpdateAgent(ctx, "missing", AgentUpdate{Name: &name})
		assert.Equal(t, types.ErrAgentNotFound, types.GetErrorCode(err))

		_, err = repo.GetAgent(ctx, "missing")
		assert.Equal(t, types.ErrAgentNotFound, types.GetErrorCode(err))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("CreateAgentValidation", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.CreateAgent(ctx, "", "prompt")
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
		_, err = repo.CreateAgent(ctx, "name", " \n")
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
	})

	t.Run("SessionLifecycle", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.CreateAgent(ctx, "Pirate", "You are a pirate")
		require.NoError(t, err)

		s1, err := repo.CreateSession(ctx, a.ID, "")
		require.NoError(t, err)
		assert.Equal(t, types.DefaultSessionName, s1.Name)
		assert.Equal(t, a.ID, s1.AgentID)

		time.Sleep(2 * time.Millisecond)
		s2, err := repo.CreateSession(ctx, a.ID, "Treasure hunt")
		require.NoError(t, err)

		sessions, err := repo.ListSessions(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, s2.ID, sessions[0].ID)

		_, err = repo.CreateSession(ctx, "missing", "x")
		assert.Equal(t, types.ErrAgentNotFound, types.GetErrorCode(err))

		_, err = repo.GetSession(ctx, "missing")
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
	})

	t.Run("ResolvePersonaFollowsAgentUpdates", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)

		_, err := repo.Append(ctx, s.ID, types.RoleUser, "Hello", "")
		require.NoError(t, err)

		p, err := repo.ResolvePersona(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "You are a pirate", p.Instruction)
		assert.Equal(t, "Pirate", p.AgentName)
		assert.Equal(t, s.ID, p.SessionID)
		assert.Equal(t, s.AgentID, p.AgentID)

		prompt := "You are a ninja"
		_, err = repo.UpdateAgent(ctx, s.AgentID, AgentUpdate{Prompt: &prompt})
		require.NoError(t, err)

		p, err = repo.ResolvePersona(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "You are a ninja", p.Instruction)

		history, err := repo.ListOrdered(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "Hello", history[0].Content)

		_, err = repo.ResolvePersona(ctx, "missing")
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
	})

	t.Run("AppendAndListOrdered", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)

		empty, err := repo.ListOrdered(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, empty)

		m1, err := repo.Append(ctx, s.ID, types.RoleUser, "Hello", "s/in-1.webm")
		require.NoError(t, err)
		assert.Equal(t, int64(1), m1.Sequence)
		assert.Equal(t, "s/in-1.webm", m1.AudioPath)
		assert.NotEmpty(t, m1.ID)

		m2, err := repo.Append(ctx, s.ID, types.RoleAssistant, "Ahoy", "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), m2.Sequence)

		history, err := repo.ListOrdered(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, m1.ID, history[0].ID)
		assert.Equal(t, types.RoleUser, history[0].Role)
		assert.Equal(t, "s/in-1.webm", history[0].AudioPath)
		assert.Equal(t, m2.ID, history[1].ID)
		assert.Equal(t, types.RoleAssistant, history[1].Role)
		assert.Equal(t, s.ID, history[1].SessionID)
	})

	t.Run("AppendPairIsAdjacent", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)

		_, err := repo.Append(ctx, s.ID, types.RoleUser, "unanswered", "")
		require.NoError(t, err)

		u, a, err := repo.AppendPair(ctx, s.ID,
			Entry{Role: types.RoleUser, Content: "Hello"},
			Entry{Role: types.RoleAssistant, Content: "Ahoy", AudioPath: "s/out-1.mp3"},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(2), u.Sequence)
		assert.Equal(t, u.Sequence+1, a.Sequence)
		assert.Equal(t, "s/out-1.mp3", a.AudioPath)

		_, _, err = repo.AppendPair(ctx, s.ID,
			Entry{Role: types.RoleAssistant, Content: "x"},
			Entry{Role: types.RoleUser, Content: "y"},
		)
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))

		history, err := repo.ListOrdered(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, history, 3)
	})

	t.Run("AppendValidation", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)

		_, err := repo.Append(ctx, s.ID, types.Role("robot"), "x", "")
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))

		_, err = repo.Append(ctx, "", types.RoleUser, "x", "")
		assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))

		_, err = repo.Append(ctx, "missing", types.RoleUser, "x", "")
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))

		_, err = repo.ListOrdered(ctx, "missing")
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
	})

	t.Run("ConcurrentAppendsGetDistinctSequences", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Append(ctx, s.ID, types.RoleUser, fmt.Sprintf("m%d", i), "")
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		history, err := repo.ListOrdered(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, history, n)
		for i, m := range history {
			assert.Equal(t, int64(i+1), m.Sequence)
		}
	})

	t.Run("DeleteSessionCascades", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)
		_, err := repo.Append(ctx, s.ID, types.RoleUser, "Hello", "")
		require.NoError(t, err)

		require.NoError(t, repo.DeleteSession(ctx, s.ID))

		_, err = repo.ListOrdered(ctx, s.ID)
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
		_, err = repo.Append(ctx, s.ID, types.RoleUser, "again", "")
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(repo.DeleteSession(ctx, s.ID)))

		sessions, err := repo.ListSessions(ctx, s.AgentID)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("DeleteAgentCascades", func(t *testing.T) {
		repo := newRepo(t)
		s := newSession(t, repo)
		_, err := repo.Append(ctx, s.ID, types.RoleUser, "Hello", "")
		require.NoError(t, err)

		require.NoError(t, repo.DeleteAgent(ctx, s.AgentID))

		_, err = repo.GetAgent(ctx, s.AgentID)
		assert.Equal(t, types.ErrAgentNotFound, types.GetErrorCode(err))
		_, err = repo.GetSession(ctx, s.ID)
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
		assert.Equal(t, types.ErrAgentNotFound, types.GetErrorCode(repo.DeleteAgent(ctx, s.AgentID)))

		agents, err := repo.ListAgents(ctx)
		require.NoError(t, err)
		assert.Empty(t, agents)
	})

	t.Run("HistoryIsAppendOnly", func(t *testing.T) {
		repo := newRepo(t)
		agent, err := repo.CreateAgent(ctx, "Pirate", "You are a pirate")
		require.NoError(t, err)

		rapid.Check(t, func(rt *rapid.T) {
			s, err := repo.CreateSession(ctx, agent.ID, "")
			if err != nil {
				rt.Fatalf("create session: %v", err)
			}

			var previous []types.Message
			steps := rapid.IntRange(1, 12).Draw(rt, "steps")
			for i := 0; i < steps; i++ {
				if rapid.Bool().Draw(rt, "pair") {
					_, _, err = repo.AppendPair(ctx, s.ID,
						Entry{Role: types.RoleUser, Content: fmt.Sprintf("u%d", i)},
						Entry{Role: types.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
					)
				} else {
					role := rapid.SampledFrom([]types.Role{types.RoleUser, types.RoleAssistant, types.RoleSystem}).Draw(rt, "role")
					_, err = repo.Append(ctx, s.ID, role, fmt.Sprintf("m%d", i), "")
				}
				if err != nil {
					rt.Fatalf("append: %v", err)
				}

				current, err := repo.ListOrdered(ctx, s.ID)
				if err != nil {
					rt.Fatalf("list: %v", err)
				}
				again, err := repo.ListOrdered(ctx, s.ID)
				if err != nil {
					rt.Fatalf("list: %v", err)
				}

				if len(current) < len(previous) {
					rt.Fatalf("history shrank from %d to %d", len(previous), len(current))
				}
				for j := range previous {
					if previous[j].ID != current[j].ID || previous[j].Content != current[j].Content {
						rt.Fatalf("entry %d changed", j)
					}
				}
				for j := range current {
					if current[j].Sequence != int64(j+1) {
						rt.Fatalf("sequence gap at %d: %d", j, current[j].Sequence)
					}
					if current[j].ID != again[j].ID {
						rt.Fatalf("re-listing is not idempotent at %d", j)
					}
				}
				previous = current
			}
		})
	})
}
