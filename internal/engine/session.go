package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/multiq/internal/quiz"
	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
	"github.com/abhisek/multiq/internal/weakspot"
)

// maxConsecutiveTimeouts ends the session: the user has walked away.
const maxConsecutiveTimeouts = 3

// startSession begins a fresh session and issues its first question.
// Any prior session for the user is discarded, watcher included.
func (e *Engine) startSession(ctx context.Context, userID int64, mode Mode, level, pinned int, worklist []weakspot.Pair) {
	if !e.requireAccess(ctx, userID) {
		return
	}

	conv := e.conversation(userID)
	conv.mu.Lock()
	conv.endLocked()
	conv.sess = &Session{
		ID:       uuid.NewString(),
		Mode:     mode,
		Level:    level,
		Pinned:   pinned,
		Worklist: worklist,
	}
	conv.mu.Unlock()

	e.log.Info("session started",
		zap.Int64("user", userID),
		zap.String("mode", mode.String()),
		zap.Int("level", level))

	e.issueQuestion(ctx, conv)
}

// startWeakSpots loads the user's worklist and starts the drill, or
// explains that there is nothing to drill yet.
func (e *Engine) startWeakSpots(ctx context.Context, userID int64) {
	worklist, err := e.tracker.Worklist(ctx, userID)
	if err != nil {
		e.log.Error("load worklist", zap.Int64("user", userID), zap.Error(err))
		return
	}
	if len(worklist) == 0 {
		e.send(ctx, userID, "No weak spots recorded yet. Make some mistakes first!", mainMenu())
		return
	}
	e.startSession(ctx, userID, ModeWeakSpots, 1, 0, worklist)
}

// issueQuestion generates and sends the session's next question,
// arming a timeout watcher for timed modes. In weak-spots mode an
// exhausted worklist finishes the session instead.
func (e *Engine) issueQuestion(ctx context.Context, conv *Conversation) {
	conv.mu.Lock()
	sess := conv.sess
	if sess == nil {
		conv.mu.Unlock()
		e.send(ctx, conv.userID, "Use the menu to start a quiz.", mainMenu())
		return
	}

	if sess.Mode == ModeWeakSpots && sess.Cursor >= len(sess.Worklist) {
		conv.mu.Unlock()
		e.finishSession(ctx, conv.userID, worklistDoneText)
		return
	}

	p := &Pending{
		IssuedAt: e.now(),
		Limit:    TimeLimit(sess.Mode, sess.Level),
	}
	switch sess.Mode {
	case ModeFindX:
		p.Kind = store.KindFindX
		e.rngMu.Lock()
		p.Equation = e.gen.Equation(sess.Level)
		e.rngMu.Unlock()
		p.Expected = p.Equation.X
	case ModeWeakSpots:
		p.Kind = store.KindStandard
		pair := sess.Worklist[sess.Cursor]
		sess.Cursor++
		p.Question = quiz.Question{A: pair.A, B: pair.B, Product: pair.A * pair.B}
		p.Expected = p.Question.Product
	default:
		p.Kind = store.KindStandard
		e.rngMu.Lock()
		p.Question = e.gen.Question(sess.Level, sess.Pinned)
		e.rngMu.Unlock()
		p.Expected = p.Question.Product
	}

	sess.QuestionCount++
	sess.Pending = p
	conv.stage = StageAwaitingAnswer
	if p.Limit > 0 {
		p.timer = time.AfterFunc(p.Limit, func() {
			e.onTimeout(context.Background(), conv, p)
		})
	}
	text := questionPrompt(sess, p)
	conv.mu.Unlock()

	e.send(ctx, conv.userID, text, nil)
}

// onTimeout fires when the answer window closes. It claims the
// pending question; if the answer path already claimed it, this is a
// no-op.
func (e *Engine) onTimeout(ctx context.Context, conv *Conversation, p *Pending) {
	conv.mu.Lock()
	sess := conv.sess
	if sess == nil || sess.Pending != p {
		conv.mu.Unlock()
		return
	}
	sess.Pending = nil
	sess.ConsecutiveTimeouts++
	capped := sess.ConsecutiveTimeouts >= maxConsecutiveTimeouts
	rec := e.record(sess, p, 0, false, p.Limit.Seconds())
	if capped {
		conv.endLocked()
	} else {
		conv.stage = StageFeedback
	}
	conv.mu.Unlock()

	e.persistResolution(ctx, conv.userID, rec, false)

	e.send(ctx, conv.userID, timeoutText(p), nil)
	if capped {
		e.log.Info("session ended by timeouts", zap.Int64("user", conv.userID))
		e.send(ctx, conv.userID, inactivityText, mainMenu())
		return
	}
	e.issueQuestion(ctx, conv)
}

// resolveAnswer races against the timeout watcher for the pending
// question. A wall-clock-late answer loses even if the watcher has
// not fired yet; the watcher keeps the claim and records the timeout.
func (e *Engine) resolveAnswer(ctx context.Context, conv *Conversation, text string) {
	submitted, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		e.send(ctx, conv.userID, notANumberText, nil)
		return
	}

	conv.mu.Lock()
	sess := conv.sess
	if sess == nil || sess.Pending == nil {
		conv.mu.Unlock()
		e.send(ctx, conv.userID, "Use the menu to start a quiz.", mainMenu())
		return
	}
	p := sess.Pending
	elapsed := e.now().Sub(p.IssuedAt)
	if p.Limit > 0 && elapsed > p.Limit {
		conv.mu.Unlock()
		e.send(ctx, conv.userID, lateAnswerText, nil)
		return
	}

	// Claim.
	if p.timer != nil {
		p.timer.Stop()
	}
	sess.Pending = nil
	sess.ConsecutiveTimeouts = 0

	verdict := quiz.Evaluate(submitted, p.Expected)

	mode := sess.Mode
	progress := ""
	if mode == ModeWeakSpots {
		progress = fmt.Sprintf("\n\nProgress: %d of %d", sess.Cursor, len(sess.Worklist))
	}
	rec := e.record(sess, p, submitted, verdict == quiz.Correct, elapsed.Seconds())
	conv.stage = StageFeedback
	conv.mu.Unlock()

	if conv.userID != e.adminID {
		e.notifyAdmin(ctx, conv.userID, fmt.Sprintf("User %d: %s = %d (%s, %s mode)",
			conv.userID, rec.Question, submitted, verdict, mode))
	}

	switch verdict {
	case quiz.Correct:
		e.persistResolution(ctx, conv.userID, rec, true)
		e.send(ctx, conv.userID, e.correctText(ctx, conv.userID, p)+progress, continueMenu())

	case quiz.TypoTolerated:
		// The streak survives and nothing is recorded, but the day
		// still counts as active.
		if err := e.activity.Bump(ctx, conv.userID, e.now()); err != nil {
			e.log.Error("bump activity", zap.Int64("user", conv.userID), zap.Error(err))
		}
		e.send(ctx, conv.userID, typoText(submitted, p.Expected), continueMenu())

	case quiz.Incorrect:
		e.persistResolution(ctx, conv.userID, rec, false)
		if p.Kind == store.KindStandard {
			err := e.tracker.RecordMiss(ctx, conv.userID, p.Question.A, p.Question.B, e.now())
			if err != nil {
				e.log.Error("record miss", zap.Int64("user", conv.userID), zap.Error(err))
			}
		}
		e.send(ctx, conv.userID, e.incorrectText(p, submitted, mode)+progress, e.incorrectMenu(p))
	}
}

// record snapshots an AnswerRecord under the conversation lock.
func (e *Engine) record(sess *Session, p *Pending, submitted int, correct bool, seconds float64) store.AnswerRecord {
	question := p.Equation.Text
	if p.Kind == store.KindStandard {
		question = fmt.Sprintf("%d × %d", p.Question.A, p.Question.B)
	}
	return store.AnswerRecord{
		SessionID:     sess.ID,
		Question:      question,
		QuestionKind:  p.Kind,
		UserAnswer:    submitted,
		CorrectAnswer: p.Expected,
		IsCorrect:     correct,
		ResponseTime:  seconds,
		Level:         sess.Level,
		Mode:          sess.Mode.String(),
		CreatedAt:     e.now(),
	}
}

// persistResolution writes the history row, cumulative stats, and the
// activity calendar for one resolved question.
func (e *Engine) persistResolution(ctx context.Context, userID int64, rec store.AnswerRecord, correct bool) {
	rec.UserID = userID
	if err := e.history.Append(ctx, rec); err != nil {
		e.log.Error("append history", zap.Int64("user", userID), zap.Error(err))
	}
	if err := e.users.UpdateStats(ctx, userID, correct, e.now()); err != nil {
		e.log.Error("update stats", zap.Int64("user", userID), zap.Error(err))
	}
	if err := e.activity.Bump(ctx, userID, e.now()); err != nil {
		e.log.Error("bump activity", zap.Int64("user", userID), zap.Error(err))
	}
}

// correctText congratulates and, on every fifth streak step, adds a
// motivational line.
func (e *Engine) correctText(ctx context.Context, userID int64, p *Pending) string {
	var text string
	if p.Kind == store.KindFindX {
		text = fmt.Sprintf("Correct! x = %d", p.Expected)
	} else {
		text = fmt.Sprintf("Correct! %d × %d = %d", p.Question.A, p.Question.B, p.Expected)
	}

	u, err := e.users.Get(ctx, userID)
	if err != nil || u == nil {
		return text
	}
	if u.CurrentStreak > 0 && u.CurrentStreak%5 == 0 {
		e.rngMu.Lock()
		m := e.adv.MotivationalMessage(u.Accuracy(), u.CurrentStreak)
		e.rngMu.Unlock()
		text += "\n\n" + m
	}
	return text
}

func (e *Engine) incorrectText(p *Pending, submitted int, mode Mode) string {
	if p.Kind == store.KindFindX {
		return fmt.Sprintf("Wrong!\n\n%s\nThe answer: x = %d\n\nSolution:\n%s",
			p.Equation.Text, p.Expected, p.Equation.Explanation)
	}
	text := wrongAnswerText(p.Question.A, p.Question.B, submitted, p.Expected)
	if mode == ModeTraining {
		e.rngMu.Lock()
		hint := e.adv.Hint(p.Question.A, p.Question.B)
		e.rngMu.Unlock()
		text += "\n\n" + hint
	}
	return text
}

func (e *Engine) incorrectMenu(p *Pending) []transport.Choice {
	if p.Kind == store.KindFindX {
		return afterWrongMenu(p.Equation.Known, p.Equation.Known)
	}
	return afterWrongMenu(p.Question.A, p.Question.B)
}

// finishSession ends the current session and shows the profile card.
// prefix, when non-empty, leads the summary (worklist completion).
func (e *Engine) finishSession(ctx context.Context, userID int64, prefix string) {
	conv := e.conversation(userID)
	conv.mu.Lock()
	answered := 0
	if conv.sess != nil {
		answered = conv.sess.QuestionCount
	}
	conv.endLocked()
	conv.mu.Unlock()

	u, err := e.users.Get(ctx, userID)
	if err != nil || u == nil {
		e.send(ctx, userID, "Session finished.", mainMenu())
		return
	}

	e.rngMu.Lock()
	motivation := e.adv.MotivationalMessage(u.Accuracy(), u.CurrentStreak)
	e.rngMu.Unlock()

	var sb strings.Builder
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "SESSION FINISHED\n\nQuestions this session: %d\n\n", answered)
	sb.WriteString(statsText(u, motivation))
	e.send(ctx, userID, sb.String(), mainMenu())
}
