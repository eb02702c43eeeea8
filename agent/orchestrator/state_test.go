package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateReceived, StatePreprocessed, true},
		{StateReceived, StateHistoryAssembled, true},
		{StateReceived, StateCompleting, false},
		{StatePreprocessed, StateHistoryAssembled, true},
		{StateHistoryAssembled, StateCompleting, true},
		{StateCompleting, StateSynthesizing, true},
		{StateCompleting, StatePersisted, true},
		{StateSynthesizing, StatePersisted, true},
		{StatePersisted, StateFailed, false},
		{StateFailed, StateReceived, false},
		{StateSynthesizing, StateCompleting, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNonTerminalStatesCanFail(t *testing.T) {
	for s := range validTransitions {
		if s.IsTerminal() {
			assert.Empty(t, validTransitions[s], s)
			continue
		}
		assert.True(t, CanTransition(s, StateFailed), s)
	}
}

func TestTurnAdvance(t *testing.T) {
	tr := newTurn("sess-1", ModeText, zap.NewNop())
	assert.NoError(t, tr.advance(StatePreprocessed))
	assert.NoError(t, tr.advance(StateHistoryAssembled))

	err := tr.advance(StatePersisted)
	assert.Equal(t, ErrInvalidTransition{From: StateHistoryAssembled, To: StatePersisted}, err)
	assert.Equal(t, StateHistoryAssembled, tr.state)
	assert.Equal(t, []State{StateReceived, StatePreprocessed, StateHistoryAssembled}, tr.states())
}
