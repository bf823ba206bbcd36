// Package engine drives quiz conversations: it interprets normalized
// transport events, runs the per-user session state machine, races
// answers against timeout watchers, and persists outcomes.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/multiq/internal/advisor"
	"github.com/abhisek/multiq/internal/quiz"
	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
	"github.com/abhisek/multiq/internal/weakspot"
)

// Options configures a new Engine. Rand and Clock default to real
// randomness and wall time; tests inject both.
type Options struct {
	Store   *store.Store
	Sender  transport.Sender
	Logger  *zap.Logger
	AdminID int64
	Rand    *rand.Rand
	Clock   func() time.Time
}

// Engine owns all live conversations. One instance serves every user;
// per-conversation state is guarded by the conversation's own mutex,
// and store writes happen outside any lock.
type Engine struct {
	users    store.UserRepo
	history  store.HistoryRepo
	activity store.ActivityRepo
	notifs   store.NotifRepo
	tracker  *weakspot.Tracker

	rngMu sync.Mutex // guards gen and adv, which share a *rand.Rand
	gen   *quiz.Generator
	adv   *advisor.Advisor

	sender  transport.Sender
	log     *zap.Logger
	adminID int64
	now     func() time.Time

	mu    sync.Mutex
	convs map[int64]*Conversation

	// OnSnooze and OnRemindersDisabled, when set, are invoked for the
	// reminder actions. The reminder scheduler wires itself in here.
	OnSnooze            func(userID int64)
	OnRemindersDisabled func(userID int64)
}

// New builds an Engine over the given store and outbound sender.
func New(opts Options) *Engine {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		users:    opts.Store.Users(),
		history:  opts.Store.History(),
		activity: opts.Store.Activity(),
		notifs:   opts.Store.Notifications(),
		tracker:  weakspot.NewTracker(opts.Store.WeakSpots()),
		gen:      quiz.NewGenerator(rng),
		adv:      advisor.New(rng),
		sender:   opts.Sender,
		log:      log,
		adminID:  opts.AdminID,
		now:      now,
		convs:    make(map[int64]*Conversation),
	}
}

func (e *Engine) conversation(userID int64) *Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.convs[userID]
	if !ok {
		c = &Conversation{userID: userID, stage: StageIdle}
		e.convs[userID] = c
	}
	return c
}

func (e *Engine) send(ctx context.Context, userID int64, text string, choices []transport.Choice) {
	err := e.sender.Send(ctx, transport.Message{UserID: userID, Text: text, Choices: choices})
	if err != nil {
		e.log.Warn("send failed", zap.Int64("user", userID), zap.Error(err))
	}
}

// HandleEvent is the single entry point for inbound user actions.
func (e *Engine) HandleEvent(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventCommand:
		e.handleCommand(ctx, ev)
	case transport.EventCallback:
		e.handleCallback(ctx, ev)
	case transport.EventAnswer:
		e.handleText(ctx, ev)
	}
}

func (e *Engine) handleCommand(ctx context.Context, ev transport.Event) {
	switch ev.Command {
	case "start":
		e.cmdStart(ctx, ev)
	case "stats":
		if e.requireAccess(ctx, ev.UserID) {
			e.sendStats(ctx, ev.UserID)
		}
	case "setname":
		e.cmdSetName(ctx, ev)
	case "addwhite":
		e.cmdWhitelist(ctx, ev, true)
	case "removewhite":
		e.cmdWhitelist(ctx, ev, false)
	case "whitelist":
		e.cmdListWhitelist(ctx, ev)
	case "notify":
		e.cmdNotify(ctx, ev)
	default:
		e.send(ctx, ev.UserID, "Unknown command. Try /start.", nil)
	}
}

func (e *Engine) cmdStart(ctx context.Context, ev transport.Event) {
	u, created, err := e.users.GetOrCreate(ctx, ev.UserID, ev.Handle, ev.Name)
	if err != nil {
		e.log.Error("get or create user", zap.Int64("user", ev.UserID), zap.Error(err))
		return
	}
	if created {
		e.log.Info("new user", zap.Int64("user", ev.UserID), zap.String("handle", ev.Handle))
		e.notifyAdmin(ctx, ev.UserID, fmt.Sprintf("New user: %s (id %d)", u.DisplayName(), ev.UserID))
	}
	if !e.hasAccess(u) {
		e.send(ctx, ev.UserID, accessDeniedText,
			[]transport.Choice{{Label: "Check access", Token: TokCheckAccess}})
		return
	}

	conv := e.conversation(ev.UserID)
	conv.mu.Lock()
	conv.endLocked()
	conv.mu.Unlock()

	e.send(ctx, ev.UserID, welcomeText(u.DisplayName()), mainMenu())
}

func (e *Engine) hasAccess(u *store.User) bool {
	return u != nil && (u.Whitelisted || u.ID == e.adminID)
}

// requireAccess loads the user and sends the denial when the account
// is unknown or not whitelisted.
func (e *Engine) requireAccess(ctx context.Context, userID int64) bool {
	u, err := e.users.Get(ctx, userID)
	if err != nil {
		e.log.Error("load user", zap.Int64("user", userID), zap.Error(err))
		return false
	}
	if !e.hasAccess(u) {
		e.send(ctx, userID, accessDeniedText,
			[]transport.Choice{{Label: "Check access", Token: TokCheckAccess}})
		return false
	}
	return true
}

func (e *Engine) cmdSetName(ctx context.Context, ev transport.Event) {
	if ev.UserID != e.adminID {
		e.send(ctx, ev.UserID, adminOnlyText, nil)
		return
	}
	args := strings.TrimSpace(ev.Args)
	if args == "" {
		conv := e.conversation(ev.UserID)
		conv.mu.Lock()
		conv.stage = StageSettingName
		conv.mu.Unlock()
		e.send(ctx, ev.UserID, "Send: ID NAME", nil)
		return
	}
	e.applySetName(ctx, ev.UserID, args)
}

func (e *Engine) applySetName(ctx context.Context, adminID int64, args string) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) != 2 {
		e.send(ctx, adminID, "Format: ID NAME", nil)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		e.send(ctx, adminID, "Format: ID NAME", nil)
		return
	}
	name := strings.TrimSpace(parts[1])
	if err := e.users.SetCustomName(ctx, id, name); err != nil {
		e.log.Error("set custom name", zap.Int64("target", id), zap.Error(err))
		e.send(ctx, adminID, "Could not set the name.", nil)
		return
	}
	e.send(ctx, adminID, fmt.Sprintf("User %d is now %q.", id, name), nil)
}

func (e *Engine) cmdWhitelist(ctx context.Context, ev transport.Event, allow bool) {
	if ev.UserID != e.adminID {
		e.send(ctx, ev.UserID, adminOnlyText, nil)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(ev.Args), 10, 64)
	if err != nil {
		e.send(ctx, ev.UserID, "Pass a numeric user ID.", nil)
		return
	}
	if err := e.users.SetWhitelisted(ctx, id, allow); err != nil {
		e.log.Error("set whitelist", zap.Int64("target", id), zap.Bool("allow", allow), zap.Error(err))
		e.send(ctx, ev.UserID, "Whitelist update failed.", nil)
		return
	}
	verb := "added to"
	if !allow {
		verb = "removed from"
	}
	e.send(ctx, ev.UserID, fmt.Sprintf("User %d %s the whitelist.", id, verb), nil)
	if allow {
		e.send(ctx, id, "You're in! Hit /start to begin.", nil)
	}
}

func (e *Engine) cmdListWhitelist(ctx context.Context, ev transport.Event) {
	if ev.UserID != e.adminID {
		e.send(ctx, ev.UserID, adminOnlyText, nil)
		return
	}
	ids, err := e.users.WhitelistedIDs(ctx, true)
	if err != nil {
		e.log.Error("list whitelist", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		e.send(ctx, ev.UserID, "Whitelist is empty.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("Whitelisted:\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "• %d\n", id)
	}
	e.send(ctx, ev.UserID, sb.String(), nil)
}

// cmdNotify toggles activity notifications about one user, or about
// everyone at once.
func (e *Engine) cmdNotify(ctx context.Context, ev transport.Event) {
	if ev.UserID != e.adminID {
		e.send(ctx, ev.UserID, adminOnlyText, nil)
		return
	}
	const usage = "Usage: /notify <id|all> on|off"
	fields := strings.Fields(ev.Args)
	if len(fields) != 2 {
		e.send(ctx, ev.UserID, usage, nil)
		return
	}
	var enabled bool
	switch fields[1] {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		e.send(ctx, ev.UserID, usage, nil)
		return
	}
	state := "on"
	if !enabled {
		state = "off"
	}

	if fields[0] == "all" {
		if err := e.notifs.SetAll(ctx, enabled); err != nil {
			e.log.Error("set all notifications", zap.Error(err))
			return
		}
		e.send(ctx, ev.UserID, fmt.Sprintf("Notifications about all users are %s.", state), nil)
		return
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		e.send(ctx, ev.UserID, usage, nil)
		return
	}
	if err := e.notifs.Set(ctx, id, enabled); err != nil {
		e.log.Error("set notifications", zap.Int64("target", id), zap.Error(err))
		return
	}
	e.send(ctx, ev.UserID, fmt.Sprintf("Notifications about user %d are %s.", id, state), nil)
}

// notifyAdmin reports activity about subjectID to the admin, unless
// notifications about that user are switched off.
func (e *Engine) notifyAdmin(ctx context.Context, subjectID int64, text string) {
	if e.adminID == 0 {
		return
	}
	enabled, err := e.notifs.Enabled(ctx, subjectID)
	if err != nil {
		e.log.Warn("notification settings", zap.Int64("subject", subjectID), zap.Error(err))
		return
	}
	if enabled {
		e.send(ctx, e.adminID, text, nil)
	}
}

func (e *Engine) handleCallback(ctx context.Context, ev transport.Event) {
	tok := ev.Token

	// Parameterized tokens first.
	switch {
	case strings.HasPrefix(tok, "level_"):
		e.onLevelChosen(ctx, ev.UserID, strings.TrimPrefix(tok, "level_"))
		return
	case strings.HasPrefix(tok, "number_"):
		e.onNumberChosen(ctx, ev.UserID, strings.TrimPrefix(tok, "number_"))
		return
	case strings.HasPrefix(tok, "show_table_"):
		e.onShowTable(ctx, ev.UserID, strings.TrimPrefix(tok, "show_table_"), true)
		return
	case strings.HasPrefix(tok, "table_"):
		e.onShowTable(ctx, ev.UserID, strings.TrimPrefix(tok, "table_"), false)
		return
	case strings.HasPrefix(tok, "hint_"):
		e.onHint(ctx, ev.UserID, strings.TrimPrefix(tok, "hint_"))
		return
	}

	switch tok {
	case TokCheckAccess:
		if e.requireAccess(ctx, ev.UserID) {
			e.send(ctx, ev.UserID, "Access granted. Welcome!", mainMenu())
		}
	case TokStartQuiz:
		e.toStage(ev.UserID, StageChoosingMode)
		e.send(ctx, ev.UserID, "Pick a quiz mode:", modeMenu())
	case TokModeRandom:
		e.beginModeAtLevelMenu(ctx, ev.UserID, ModeRandom)
	case TokFindX:
		e.beginModeAtLevelMenu(ctx, ev.UserID, ModeFindX)
	case TokModeSpecific:
		e.beginNumberMenu(ctx, ev.UserID)
	case TokModeWeak:
		e.startWeakSpots(ctx, ev.UserID)
	case TokLightning:
		e.startSession(ctx, ev.UserID, ModeLightning, 1, 0, nil)
	case TokSniper:
		e.startSession(ctx, ev.UserID, ModeSniper, 1, 0, nil)
	case TokTraining:
		e.startSession(ctx, ev.UserID, ModeTraining, 1, 0, nil)
	case TokContinue:
		e.issueQuestion(ctx, e.conversation(ev.UserID))
	case TokFinish:
		e.finishSession(ctx, ev.UserID, "")
	case TokViewTable:
		e.send(ctx, ev.UserID, "Which table?", tableMenu())
	case TokMyStats:
		e.sendStats(ctx, ev.UserID)
	case TokCalendar:
		e.sendCalendar(ctx, ev.UserID)
	case TokAnalysis:
		e.sendAnalysis(ctx, ev.UserID)
	case TokLeaderboard:
		e.sendLeaderboard(ctx, ev.UserID)
	case TokInfo:
		e.send(ctx, ev.UserID, infoText, mainMenu())
	case TokBackMain:
		e.toStage(ev.UserID, StageIdle)
		e.send(ctx, ev.UserID, "Main menu:", mainMenu())
	case TokBackMode:
		e.toStage(ev.UserID, StageChoosingMode)
		e.send(ctx, ev.UserID, "Pick a quiz mode:", modeMenu())
	case TokDisableRem:
		if err := e.users.SetReminderEnabled(ctx, ev.UserID, false); err != nil {
			e.log.Error("disable reminders", zap.Int64("user", ev.UserID), zap.Error(err))
			return
		}
		if e.OnRemindersDisabled != nil {
			e.OnRemindersDisabled(ev.UserID)
		}
		e.send(ctx, ev.UserID, "Reminders are off. You can ask the admin to re-enable them.", nil)
	case TokSnooze:
		if e.OnSnooze != nil {
			e.OnSnooze(ev.UserID)
		}
		e.send(ctx, ev.UserID, "Snoozed for an hour. See you soon!", nil)
	default:
		e.log.Debug("unknown callback", zap.String("token", tok), zap.Int64("user", ev.UserID))
	}
}

func (e *Engine) toStage(userID int64, s Stage) {
	conv := e.conversation(userID)
	conv.mu.Lock()
	conv.stage = s
	conv.mu.Unlock()
}

// pendingMode remembers which mode a level or number menu belongs to
// by parking a sessionless mode choice on the conversation.
func (e *Engine) beginModeAtLevelMenu(ctx context.Context, userID int64, m Mode) {
	conv := e.conversation(userID)
	conv.mu.Lock()
	conv.stage = StageChoosingLevel
	conv.pendingMode = m
	conv.mu.Unlock()
	e.send(ctx, userID, "Pick a level:", levelMenu())
}

func (e *Engine) beginNumberMenu(ctx context.Context, userID int64) {
	conv := e.conversation(userID)
	conv.mu.Lock()
	conv.stage = StageChoosingNumber
	conv.pendingMode = ModeSpecific
	conv.mu.Unlock()
	e.send(ctx, userID, "Which number do you want to drill?", numberMenu())
}

func (e *Engine) onLevelChosen(ctx context.Context, userID int64, raw string) {
	level, err := strconv.Atoi(raw)
	if err != nil || level < 1 || level > 3 {
		return
	}
	conv := e.conversation(userID)
	conv.mu.Lock()
	mode := conv.pendingMode
	stage := conv.stage
	conv.mu.Unlock()
	if stage != StageChoosingLevel {
		return
	}
	e.startSession(ctx, userID, mode, level, 0, nil)
}

func (e *Engine) onNumberChosen(ctx context.Context, userID int64, raw string) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 2 || n > 9 {
		return
	}
	conv := e.conversation(userID)
	conv.mu.Lock()
	stage := conv.stage
	conv.mu.Unlock()
	if stage != StageChoosingNumber {
		return
	}
	e.startSession(ctx, userID, ModeSpecific, 1, n, nil)
}

func (e *Engine) onShowTable(ctx context.Context, userID int64, raw string, inQuiz bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 10 {
		return
	}
	if inQuiz {
		e.send(ctx, userID, quiz.Table(n), continueMenu())
		return
	}
	e.send(ctx, userID, quiz.Table(n), tableMenu())
}

func (e *Engine) onHint(ctx context.Context, userID int64, raw string) {
	parts := strings.SplitN(raw, "_", 2)
	if len(parts) != 2 {
		return
	}
	a, err1 := strconv.Atoi(parts[0])
	b, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return
	}
	e.rngMu.Lock()
	hint := e.adv.Hint(a, b)
	e.rngMu.Unlock()
	e.send(ctx, userID, hint, continueMenu())
}

func (e *Engine) handleText(ctx context.Context, ev transport.Event) {
	conv := e.conversation(ev.UserID)

	conv.mu.Lock()
	if conv.stage == StageSettingName && ev.UserID == e.adminID {
		conv.stage = StageIdle
		conv.mu.Unlock()
		e.applySetName(ctx, ev.UserID, ev.Text)
		return
	}
	if conv.stage != StageAwaitingAnswer || conv.sess == nil || conv.sess.Pending == nil {
		conv.mu.Unlock()
		e.send(ctx, ev.UserID, "Use the menu to start a quiz.", mainMenu())
		return
	}
	conv.mu.Unlock()

	e.resolveAnswer(ctx, conv, ev.Text)
}
