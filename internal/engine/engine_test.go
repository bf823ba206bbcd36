package engine

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
	"github.com/abhisek/multiq/internal/weakspot"
)

type recorder struct {
	mu   sync.Mutex
	msgs []transport.Message
}

func (r *recorder) Send(_ context.Context, m transport.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recorder) all() []transport.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Message(nil), r.msgs...)
}

func (r *recorder) contains(sub string) bool {
	for _, m := range r.all() {
		if strings.Contains(m.Text, sub) {
			return true
		}
	}
	return false
}

type fixture struct {
	engine *Engine
	store  *store.Store
	sender *recorder
	now    *time.Time
}

const (
	testUser  int64 = 100
	testAdmin int64 = 1
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sender := &recorder{}
	eng := New(Options{
		Store:   st,
		Sender:  sender,
		AdminID: testAdmin,
		Rand:    rand.New(rand.NewSource(42)),
		Clock:   func() time.Time { return now },
	})

	ctx := context.Background()
	_, _, err = st.Users().GetOrCreate(ctx, testUser, "learner", "Lena")
	require.NoError(t, err)
	require.NoError(t, st.Users().SetWhitelisted(ctx, testUser, true))

	return &fixture{engine: eng, store: st, sender: sender, now: &now}
}

func (f *fixture) pending(t *testing.T) *Pending {
	t.Helper()
	conv := f.engine.conversation(testUser)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	require.NotNil(t, conv.sess, "no active session")
	require.NotNil(t, conv.sess.Pending, "no pending question")
	return conv.sess.Pending
}

func (f *fixture) answer(val int) {
	f.engine.resolveAnswer(context.Background(), f.engine.conversation(testUser), fmt.Sprintf("%d", val))
}

func TestTimeoutThenAnswerRecordsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.engine.conversation(testUser)

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0, []weakspot.Pair{{A: 6, B: 7}})
	p := f.pending(t)

	f.engine.onTimeout(ctx, conv, p)

	// The worklist is exhausted, so the session ended after the
	// timeout; a straggler answer must not produce a second record.
	f.answer(42)

	n, err := f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	u, err := f.store.Users().Get(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, u.WrongAnswers)
	require.Equal(t, 0, u.CorrectAnswers)
}

func TestAnswerThenTimeoutRecordsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.engine.conversation(testUser)

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0, []weakspot.Pair{{A: 6, B: 7}})
	p := f.pending(t)

	f.answer(42)

	// The watcher firing after the answer claimed the question must
	// be a no-op.
	f.engine.onTimeout(ctx, conv, p)

	n, err := f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	u, err := f.store.Users().Get(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, u.CorrectAnswers)
	require.Equal(t, 0, u.WrongAnswers)
}

func TestConsecutiveTimeoutsEndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.engine.conversation(testUser)

	f.engine.startSession(ctx, testUser, ModeRandom, 1, 0, nil)

	for i := 0; i < 3; i++ {
		f.engine.onTimeout(ctx, conv, f.pending(t))
	}

	conv.mu.Lock()
	require.Nil(t, conv.sess)
	require.Equal(t, StageIdle, conv.stage)
	conv.mu.Unlock()

	require.True(t, f.sender.contains("missed 3 questions in a row"))

	n, err := f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestAnswerResetsTimeoutCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.engine.conversation(testUser)

	f.engine.startSession(ctx, testUser, ModeRandom, 1, 0, nil)

	f.engine.onTimeout(ctx, conv, f.pending(t))
	f.engine.onTimeout(ctx, conv, f.pending(t))

	p := f.pending(t)
	f.answer(p.Expected)

	conv.mu.Lock()
	require.NotNil(t, conv.sess)
	require.Equal(t, 0, conv.sess.ConsecutiveTimeouts)
	conv.mu.Unlock()
}

func TestWorklistExhaustionFinishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worklist := []weakspot.Pair{{A: 2, B: 3}, {A: 4, B: 5}}
	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0, worklist)

	f.answer(6)
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokContinue})
	f.answer(20)
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokContinue})

	require.True(t, f.sender.contains("All weak spots practiced"))

	conv := f.engine.conversation(testUser)
	conv.mu.Lock()
	require.Nil(t, conv.sess)
	conv.mu.Unlock()
}

func TestTypoToleratedKeepsStreakAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0,
		[]weakspot.Pair{{A: 6, B: 7}, {A: 6, B: 7}})

	f.answer(42)
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokContinue})
	f.answer(41) // off by one

	require.True(t, f.sender.contains("looks like a typo"))

	n, err := f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	u, err := f.store.Users().Get(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, u.CurrentStreak)
	require.Equal(t, 1, u.TotalQuestions)
}

func TestWrongAnswerRecordsWeakSpotAndConfusion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0, []weakspot.Pair{{A: 6, B: 7}})

	f.answer(24) // 6 × 4, a classic mix-up

	require.True(t, f.sender.contains("mix-up"))
	require.True(t, f.sender.contains("6 × 4 = 24"))

	spots, err := f.store.WeakSpots().TopN(ctx, testUser, 10)
	require.NoError(t, err)
	require.Len(t, spots, 1)
	require.Equal(t, 6, spots[0].A)
	require.Equal(t, 7, spots[0].B)
	require.Equal(t, 1, spots[0].Count)
}

func TestLateAnswerLosesToUnfiredWatcher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.engine.conversation(testUser)

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0, []weakspot.Pair{{A: 6, B: 7}})
	p := f.pending(t)

	*f.now = f.now.Add(p.Limit + time.Second)

	f.answer(42)

	// The answer was rejected and the question is still pending for
	// the watcher to claim.
	require.True(t, f.sender.contains("Time's up for that one"))
	require.Same(t, p, f.pending(t))

	n, err := f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	f.engine.onTimeout(ctx, conv, p)
	n, err = f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNonNumericAnswerReprompts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0, []weakspot.Pair{{A: 6, B: 7}})
	p := f.pending(t)

	f.engine.resolveAnswer(ctx, f.engine.conversation(testUser), "forty-two")

	require.True(t, f.sender.contains("Numbers only"))
	require.Same(t, p, f.pending(t))
}

func TestSniperModeToleratesNearMiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeSniper, 1, 0, nil)
	p := f.pending(t)
	require.Nil(t, p.timer)
	require.Equal(t, time.Duration(0), p.Limit)

	// Typo tolerance applies in every mode.
	f.answer(p.Expected + 1)

	require.True(t, f.sender.contains("looks like a typo"))
	u, err := f.store.Users().Get(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 0, u.WrongAnswers)
	require.Equal(t, 0, u.TotalQuestions)
}

func TestAccessGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: 200, Handle: "guest", Name: "Guest", Command: "start",
	})
	require.True(t, f.sender.contains("invite-only"))

	require.NoError(t, f.store.Users().SetWhitelisted(ctx, 200, true))
	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCallback, UserID: 200, Token: TokCheckAccess,
	})
	require.True(t, f.sender.contains("Access granted"))
}

func TestAdminBypassesWhitelist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: testAdmin, Handle: "admin", Name: "Admin", Command: "start",
	})
	require.True(t, f.sender.contains("Welcome to the multiplication trainer"))
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: testAdmin, Command: "setname",
		Args: fmt.Sprintf("%d Champion", testUser),
	})
	u, err := f.store.Users().Get(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, "Champion", u.DisplayName())

	_, _, err = f.store.Users().GetOrCreate(ctx, 300, "newbie", "Newbie")
	require.NoError(t, err)
	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: testAdmin, Command: "addwhite", Args: "300",
	})
	ids, err := f.store.Users().WhitelistedIDs(ctx, true)
	require.NoError(t, err)
	require.Contains(t, ids, int64(300))

	// Non-admin denied.
	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: testUser, Command: "addwhite", Args: "400",
	})
	require.True(t, f.sender.contains(adminOnlyText))
}

func (r *recorder) countFor(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.UserID == userID {
			n++
		}
	}
	return n
}

func TestAnswerNotificationsGatePerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeWeakSpots, 1, 0,
		[]weakspot.Pair{{A: 6, B: 7}, {A: 2, B: 3}, {A: 4, B: 5}})
	f.answer(42)
	require.True(t, f.sender.contains("User 100: 6 × 7 = 42"))

	// Muting this user silences notifications about them.
	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: testAdmin, Command: "notify",
		Args: fmt.Sprintf("%d off", testUser),
	})
	before := f.sender.countFor(testAdmin)

	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokContinue})
	f.answer(6)
	require.Equal(t, before, f.sender.countFor(testAdmin))

	// Unmuting everyone restores them.
	f.engine.HandleEvent(ctx, transport.Event{
		Kind: transport.EventCommand, UserID: testAdmin, Command: "notify", Args: "all on",
	})
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokContinue})
	f.answer(20)
	require.True(t, f.sender.contains("User 100: 4 × 5 = 20"))
}

func TestFindXSessionFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokFindX})
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: levelToken(2)})

	p := f.pending(t)
	require.Equal(t, store.KindFindX, p.Kind)
	require.Equal(t, 30*time.Second, p.Limit)

	f.answer(p.Expected)
	require.True(t, f.sender.contains(fmt.Sprintf("Correct! x = %d", p.Expected)))

	n, err := f.store.History().CountForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestWrongFindXShowsSolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeFindX, 3, 0, nil)
	p := f.pending(t)

	f.answer(p.Expected + 1000)

	require.True(t, f.sender.contains("Solution:"))

	// Equation misses never feed the multiplication weak-spot table.
	spots, err := f.store.WeakSpots().TopN(ctx, testUser, 10)
	require.NoError(t, err)
	require.Empty(t, spots)
}

func TestSpecificNumberModePinsOperand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokStartQuiz})
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokModeSpecific})
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: numberToken(7)})

	for i := 0; i < 5; i++ {
		p := f.pending(t)
		require.True(t, p.Question.A == 7 || p.Question.B == 7)
		f.answer(p.Expected)
		f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokContinue})
	}
}

func TestLightningUsesFiveSecondWindow(t *testing.T) {
	f := newFixture(t)
	f.engine.startSession(context.Background(), testUser, ModeLightning, 1, 0, nil)
	require.Equal(t, 5*time.Second, f.pending(t).Limit)
}

func TestFinishShowsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.startSession(ctx, testUser, ModeRandom, 1, 0, nil)
	f.answer(f.pending(t).Expected)
	f.engine.HandleEvent(ctx, transport.Event{Kind: transport.EventCallback, UserID: testUser, Token: TokFinish})

	require.True(t, f.sender.contains("SESSION FINISHED"))
	require.True(t, f.sender.contains("Questions this session: 1"))

	conv := f.engine.conversation(testUser)
	conv.mu.Lock()
	require.Nil(t, conv.sess)
	conv.mu.Unlock()
}
