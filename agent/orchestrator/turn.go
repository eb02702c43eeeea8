package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode 轮次的发起方式
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
	ModeRetry Mode = "retry"
)

// turn 跟踪单个轮次的状态流转，只在持有会话锁的 goroutine 中使用
type turn struct {
	id        string
	sessionID string
	mode      Mode
	state     State
	trail     []State
	started   time.Time
	logger    *zap.Logger
}

func newTurn(sessionID string, mode Mode, logger *zap.Logger) *turn {
	id := uuid.NewString()
	return &turn{
		id:        id,
		sessionID: sessionID,
		mode:      mode,
		state:     StateReceived,
		trail:     []State{StateReceived},
		started:   time.Now(),
		logger: logger.With(
			zap.String("session_id", sessionID),
			zap.String("turn_id", id),
			zap.String("mode", string(mode)),
		),
	}
}

// advance 进入下一个状态。非法转换说明编排逻辑有缺陷，记录后返回错误。
func (t *turn) advance(to State) error {
	if !CanTransition(t.state, to) {
		err := ErrInvalidTransition{From: t.state, To: to}
		t.logger.Error("invalid turn transition", zap.Error(err))
		return err
	}
	t.logger.Debug("turn state changed",
		zap.String("from", string(t.state)),
		zap.String("state", string(to)),
	)
	t.state = to
	t.trail = append(t.trail, to)
	return nil
}

func (t *turn) elapsed() time.Duration { return time.Since(t.started) }

func (t *turn) states() []State {
	out := make([]State, len(t.trail))
	copy(out, t.trail)
	return out
}
