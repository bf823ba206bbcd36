package engine

import (
	"sync"
	"time"

	"github.com/abhisek/multiq/internal/quiz"
	"github.com/abhisek/multiq/internal/weakspot"
)

// Stage is the conversation's position in the session state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageChoosingMode
	StageChoosingLevel
	StageChoosingNumber
	StageAwaitingAnswer
	StageFeedback
	StageSettingName // admin is entering "ID NAME"
)

// Pending is an outstanding question. Exactly one of
// Question/Equation is meaningful, discriminated by Kind. The Pending
// value itself is the claim token: answer and timeout both
// compare-and-clear the session's Pending pointer under the
// conversation lock, so exactly one of them resolves the question.
type Pending struct {
	Kind     string // store.KindStandard or store.KindFindX
	Question quiz.Question
	Equation quiz.Equation
	Expected int
	IssuedAt time.Time
	Limit    time.Duration // 0 = untimed, no watcher armed
	timer    *time.Timer   // nil when untimed
}

// Session is the ephemeral per-conversation quiz state. It exists
// from mode selection until explicit finish, worklist exhaustion, or
// the consecutive-timeout cap; it is never persisted.
type Session struct {
	ID     string
	Mode   Mode
	Level  int
	Pinned int // specific-number mode only

	// Worklist and Cursor are populated only in weak-spots mode.
	Worklist []weakspot.Pair
	Cursor   int

	QuestionCount       int
	ConsecutiveTimeouts int

	Pending *Pending // nil between questions
}

// Conversation is the engine's per-user state. All mutation happens
// under mu; store calls are made outside it.
type Conversation struct {
	mu     sync.Mutex
	userID int64
	stage  Stage
	sess   *Session

	// pendingMode parks the chosen mode while the level or number
	// menu is open, before a Session exists.
	pendingMode Mode
}

// endLocked clears the session and any armed watcher. Callers hold mu.
func (c *Conversation) endLocked() {
	if c.sess != nil && c.sess.Pending != nil && c.sess.Pending.timer != nil {
		c.sess.Pending.timer.Stop()
	}
	c.sess = nil
	c.stage = StageIdle
}
