package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/BaSui01/agentchat/llm/tokenizer"
	"github.com/BaSui01/agentchat/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// conversation 构造 persona + pairs 组问答 + 最新提问，每条内容约 words 个 token
func conversation(pairs, words int) []Message {
	body := strings.TrimSpace(strings.Repeat("word ", words*4/5+1))
	msgs := []Message{{Role: types.RoleSystem, Content: "You are a pirate"}}
	for i := 0; i < pairs; i++ {
		msgs = append(msgs,
			Message{Role: types.RoleUser, Content: body},
			Message{Role: types.RoleAssistant, Content: body},
		)
	}
	return append(msgs, Message{Role: types.RoleUser, Content: "newest " + body})
}

func TestFitToBudget_UnderBudgetIsUnchanged(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 8192)
	msgs := conversation(3, 5)

	fit, err := FitToBudget(tok, msgs, 10_000)
	require.NoError(t, err)
	assert.Equal(t, msgs, fit.Messages)
	assert.Zero(t, fit.Dropped)
	assert.Positive(t, fit.PromptTokens)
}

func TestFitToBudget_DropsOldestFirst(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 8192)
	msgs := []Message{
		{Role: types.RoleSystem, Content: "persona"},
		{Role: types.RoleUser, Content: strings.Repeat("a", 400)},
		{Role: types.RoleAssistant, Content: strings.Repeat("b", 400)},
		{Role: types.RoleUser, Content: "short"},
		{Role: types.RoleAssistant, Content: "short"},
		{Role: types.RoleUser, Content: "newest"},
	}

	fit, err := FitToBudget(tok, msgs, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, fit.Dropped)
	require.Len(t, fit.Messages, 4)
	assert.Equal(t, "persona", fit.Messages[0].Content)
	assert.Equal(t, types.RoleUser, fit.Messages[1].Role)
	assert.Equal(t, "newest", fit.Messages[3].Content)
}

func TestFitToBudget_KeepsPersonaAndNewestEvenOverBudget(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 8192)
	msgs := []Message{
		{Role: types.RoleSystem, Content: strings.Repeat("p", 800)},
		{Role: types.RoleUser, Content: "old"},
		{Role: types.RoleAssistant, Content: "old"},
		{Role: types.RoleUser, Content: strings.Repeat("n", 800)},
	}

	fit, err := FitToBudget(tok, msgs, 10)
	require.NoError(t, err)
	require.Len(t, fit.Messages, 2)
	assert.Equal(t, types.RoleSystem, fit.Messages[0].Role)
	assert.Equal(t, msgs[3], fit.Messages[1])
	assert.Greater(t, fit.PromptTokens, fit.Budget)
}

func TestFitToBudget_Property(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 8192)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("persona and newest turn always survive", prop.ForAll(
		func(pairs, words, budget int) bool {
			msgs := conversation(pairs, words)
			fit, err := FitToBudget(tok, msgs, budget)
			if err != nil {
				return false
			}
			kept := fit.Messages
			return len(kept) >= 2 &&
				kept[0] == msgs[0] &&
				kept[len(kept)-1] == msgs[len(msgs)-1]
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 60),
		gen.IntRange(1, 2000),
	))

	properties.Property("kept turns are an unmodified suffix after the persona", prop.ForAll(
		func(pairs, words, budget int) bool {
			msgs := conversation(pairs, words)
			fit, err := FitToBudget(tok, msgs, budget)
			if err != nil {
				return false
			}
			if len(fit.Messages)+fit.Dropped != len(msgs) {
				return false
			}
			tail := msgs[1+fit.Dropped:]
			for i, m := range fit.Messages[1:] {
				if m != tail[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 60),
		gen.IntRange(1, 2000),
	))

	properties.Property("history never resumes on an orphaned answer", prop.ForAll(
		func(pairs, words, budget int) bool {
			fit, err := FitToBudget(tok, conversation(pairs, words), budget)
			if err != nil {
				return false
			}
			return fit.Messages[1].Role == types.RoleUser
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 60),
		gen.IntRange(1, 2000),
	))

	properties.Property("truncation only happens when over budget", prop.ForAll(
		func(pairs, words, budget int) bool {
			msgs := conversation(pairs, words)
			fit, err := FitToBudget(tok, msgs, budget)
			if err != nil {
				return false
			}
			full, _ := tok.CountMessages(toTokenizerMessages(msgs))
			if full <= budget {
				return fit.Dropped == 0
			}
			return fit.Dropped > 0 || len(msgs) == 2
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 60),
		gen.IntRange(1, 2000),
	))

	properties.TestingRun(t)
}

func toTokenizerMessages(msgs []Message) []tokenizer.Message {
	out := make([]tokenizer.Message, len(msgs))
	for i, m := range msgs {
		out[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func TestBudgetedProvider_TruncatesBeforeComplete(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 8192)
	inner := new(mockProvider)
	inner.On("Name").Return("mock")
	inner.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []Message) bool {
		return len(msgs) == 2 && msgs[0].Role == types.RoleSystem && msgs[1].Content == "newest"
	})).Return(&Completion{Text: "Ahoy"}, nil).Once()

	bp := NewBudgetedProvider(inner, tok, 20, zap.NewNop())
	assert.Equal(t, 20, bp.Budget())

	c, err := bp.Complete(context.Background(), []Message{
		{Role: types.RoleSystem, Content: "persona"},
		{Role: types.RoleUser, Content: strings.Repeat("old ", 50)},
		{Role: types.RoleAssistant, Content: strings.Repeat("old ", 50)},
		{Role: types.RoleUser, Content: "newest"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ahoy", c.Text)
	inner.AssertExpectations(t)
}

func TestBudgetedProvider_DefaultBudgetAndDelegation(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 8000)
	inner := new(mockProvider)
	inner.On("Synthesize", mock.Anything, "Ahoy").Return(&Audio{Data: []byte{1}, Format: "mp3"}, nil)

	bp := NewBudgetedProvider(inner, tok, 0, nil)
	assert.Equal(t, 6000, bp.Budget())

	a, err := bp.Synthesize(context.Background(), "Ahoy")
	require.NoError(t, err)
	assert.Equal(t, "mp3", a.Format)
	inner.AssertExpectations(t)
}
