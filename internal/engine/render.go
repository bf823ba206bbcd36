package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/multiq/internal/quiz"
	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
)

// Callback tokens. These are the engine's public vocabulary: any
// transport (TUI menu, bot keyboard, reminder nudge buttons) selects
// actions by echoing one of these back.
const (
	TokStartQuiz    = "start_quiz"
	TokLightning    = "lightning_mode"
	TokSniper       = "sniper_mode"
	TokTraining     = "training_mode"
	TokFindX        = "find_x_mode"
	TokViewTable    = "view_table"
	TokMyStats      = "my_stats"
	TokCalendar     = "activity_calendar"
	TokAnalysis     = "ai_analysis"
	TokLeaderboard  = "leaderboard"
	TokInfo         = "info"
	TokBackMain     = "back_main"
	TokBackMode     = "back_mode"
	TokModeRandom   = "mode_random"
	TokModeSpecific = "mode_specific"
	TokModeWeak     = "mode_weak_spots"
	TokContinue     = "continue_quiz"
	TokFinish       = "finish_quiz"
	TokCheckAccess  = "check_access"
	TokDisableRem   = "disable_reminders"
	TokSnooze       = "snooze_reminder"
)

func levelToken(level int) string  { return fmt.Sprintf("level_%d", level) }
func numberToken(n int) string     { return fmt.Sprintf("number_%d", n) }
func tableToken(n int) string      { return fmt.Sprintf("table_%d", n) }
func showTableToken(n int) string  { return fmt.Sprintf("show_table_%d", n) }
func hintToken(a, b int) string    { return fmt.Sprintf("hint_%d_%d", a, b) }

func mainMenu() []transport.Choice {
	return []transport.Choice{
		{Label: "Find X", Token: TokFindX},
		{Label: "Start quiz", Token: TokStartQuiz},
		{Label: "Lightning mode", Token: TokLightning},
		{Label: "Sniper mode", Token: TokSniper},
		{Label: "Training mode", Token: TokTraining},
		{Label: "Multiplication tables", Token: TokViewTable},
		{Label: "My statistics", Token: TokMyStats},
		{Label: "Activity calendar", Token: TokCalendar},
		{Label: "Analyze my mistakes", Token: TokAnalysis},
		{Label: "Leaderboard", Token: TokLeaderboard},
		{Label: "About", Token: TokInfo},
	}
}

func modeMenu() []transport.Choice {
	return []transport.Choice{
		{Label: "Random problems", Token: TokModeRandom},
		{Label: "A specific number", Token: TokModeSpecific},
		{Label: "Train weak spots", Token: TokModeWeak},
		{Label: "Back", Token: TokBackMain},
	}
}

func levelMenu() []transport.Choice {
	return []transport.Choice{
		{Label: "Level 1: 2-9 × 2-9", Token: levelToken(1)},
		{Label: "Level 2: 10-99 × 2-9", Token: levelToken(2)},
		{Label: "Level 3: 10-99 × 10-99", Token: levelToken(3)},
		{Label: "Back", Token: TokBackMode},
	}
}

func numberMenu() []transport.Choice {
	choices := make([]transport.Choice, 0, 9)
	for i := 2; i <= 9; i++ {
		choices = append(choices, transport.Choice{Label: fmt.Sprintf("%d", i), Token: numberToken(i)})
	}
	return append(choices, transport.Choice{Label: "Back", Token: TokBackMode})
}

func tableMenu() []transport.Choice {
	choices := make([]transport.Choice, 0, 9)
	for i := 2; i <= 9; i++ {
		choices = append(choices, transport.Choice{Label: fmt.Sprintf("Table of %d", i), Token: tableToken(i)})
	}
	return append(choices, transport.Choice{Label: "Back", Token: TokBackMain})
}

func continueMenu() []transport.Choice {
	return []transport.Choice{
		{Label: "Next question", Token: TokContinue},
		{Label: "Finish", Token: TokFinish},
	}
}

// afterWrongMenu offers the relevant table and a hint alongside the
// usual continue choices. The table number prefers a single-digit
// operand, as tables only go up to 9.
func afterWrongMenu(a, b int) []transport.Choice {
	tableNum := a
	if a > 9 && b <= 9 {
		tableNum = b
	}
	return []transport.Choice{
		{Label: fmt.Sprintf("Table of %d", tableNum), Token: showTableToken(tableNum)},
		{Label: "Hint", Token: hintToken(a, b)},
		{Label: "Next question", Token: TokContinue},
		{Label: "Finish", Token: TokFinish},
	}
}

func welcomeText(name string) string {
	return fmt.Sprintf(`Hi, %s!

Welcome to the multiplication trainer.

What I can do:
• Quizzes across three difficulty levels
• Lightning mode (5 seconds per question)
• Sniper mode (no timer, one shot)
• Training mode (no timer, with hints)
• Find X: solve for the unknown
• Multiplication table browser
• Statistics, activity calendar, leaderboard
• Weak-spot analysis and adaptive drills
• Daily reminders

Pick whatever you like!`, name)
}

const infoText = `ABOUT

A trainer for mastering the multiplication tables.

• 3 difficulty levels
• 4 special modes
• Mistake analysis and adaptive drills
• Activity calendar
• Daily reminders
• Leaderboard

Good luck!`

const accessDeniedText = `This trainer is invite-only for now.

Ask the administrator to whitelist your ID, then check access again.`

const adminOnlyText = "Admins only!"

// questionPrompt renders the outbound text for a freshly issued
// question.
func questionPrompt(sess *Session, p *Pending) string {
	var timer string
	switch {
	case sess.Mode == ModeSniper:
		timer = "No timer. Aim carefully!"
	case sess.Mode == ModeTraining:
		timer = "No timer!"
	default:
		timer = fmt.Sprintf("%d seconds!", int(p.Limit/time.Second))
	}

	if p.Kind == store.KindFindX {
		return fmt.Sprintf("QUESTION #%d\n\n%s\n\n%s\n\nWhat is x?",
			sess.QuestionCount, p.Equation.Text, timer)
	}
	return fmt.Sprintf("QUESTION #%d\n\n%d × %d = ?\n\n%s\n\nType your answer:",
		sess.QuestionCount, p.Question.A, p.Question.B, timer)
}

// timeoutText renders the time's-up feedback for a claimed timeout.
func timeoutText(p *Pending) string {
	if p.Kind == store.KindFindX {
		return fmt.Sprintf("TIME'S UP!\n\n%s\nThe answer: x = %d\n\nNext question coming...",
			p.Equation.Text, p.Expected)
	}
	return fmt.Sprintf("TIME'S UP!\n\n%d × %d = ?\nThe answer: %d\n\nNext question coming...",
		p.Question.A, p.Question.B, p.Expected)
}

const inactivityText = `Quiz paused due to inactivity.

You missed 3 questions in a row. Come back when you're ready!`

const worklistDoneText = "All weak spots practiced — well done!"

const lateAnswerText = "Time's up for that one!"

const notANumberText = "Numbers only, please!"

// wrongAnswerText builds the explanation for an incorrect standard
// answer, surfacing a likely confused fact when one exists.
func wrongAnswerText(a, b, submitted, expected int) string {
	var sb strings.Builder
	sb.WriteString("Wrong!\n\n")
	fmt.Fprintf(&sb, "The right answer: %d × %d = %d\n\n", a, b, expected)

	if c, ok := quiz.DetectConfusion(a, b, submitted); ok {
		sb.WriteString("Looks like a mix-up!\n")
		fmt.Fprintf(&sb, "%d × %d = %d\n", c.A, c.B, c.Product)
		fmt.Fprintf(&sb, "But we needed: %d × %d = %d\n\n", a, b, expected)
	}

	fmt.Fprintf(&sb, "Remember: %d × %d = %d", a, b, expected)
	return sb.String()
}

func typoText(submitted, expected int) string {
	return fmt.Sprintf(`Oops! That looks like a typo.

You typed: %d
It should be: %d

Your streak is safe, but the answer doesn't count. Moving on?`,
		submitted, expected)
}

// calendarText renders a 30-day activity grid, most recent day last.
func calendarText(cal map[string]int, now time.Time) string {
	if len(cal) == 0 {
		return "ACTIVITY CALENDAR\n\nNo data yet."
	}

	var sb strings.Builder
	sb.WriteString("ACTIVITY (last 30 days)\n")
	for i := 29; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		count := cal[day.Format(store.DateFormat)]
		var cell string
		switch {
		case count == 0:
			cell = "·"
		case count < 10:
			cell = "▪"
		case count < 20:
			cell = "▪▪"
		default:
			cell = "▪▪▪"
		}
		if i%7 == 6 {
			fmt.Fprintf(&sb, "\n%s %s", day.Format("02.01"), cell)
		} else {
			sb.WriteString(" " + cell)
		}
	}

	days, total := 0, 0
	for _, c := range cal {
		days++
		total += c
	}
	fmt.Fprintf(&sb, "\n\nSummary:\n• Active days: %d\n• Questions: %d\n\n· 0 | ▪ 1-9 | ▪▪ 10-19 | ▪▪▪ 20+", days, total)
	return sb.String()
}

// statsText renders the profile card shown by the stats view and at
// session finish.
func statsText(u *store.User, motivation string) string {
	return fmt.Sprintf(`STATISTICS: %s

Since %s, last active %s

• Questions: %d
• Correct: %d
• Accuracy: %.1f%%

Records:
• Best streak: %d
• Current streak: %d

%s`,
		u.DisplayName(),
		u.StartDate.Format("2006-01-02"),
		u.LastActivity.Format("2006-01-02 15:04"),
		u.TotalQuestions, u.CorrectAnswers, u.Accuracy(),
		u.BestStreak, u.CurrentStreak,
		motivation)
}

func leaderboardText(users []store.User) string {
	if len(users) == 0 {
		return "LEADERBOARD\n\nEmpty so far."
	}
	var sb strings.Builder
	sb.WriteString("TOP 10\n\n")
	for i, u := range users {
		fmt.Fprintf(&sb, "%d. %s\n   correct %d | best streak %d | %.0f%%\n\n",
			i+1, u.DisplayName(), u.CorrectAnswers, u.BestStreak, u.Accuracy())
	}
	return strings.TrimRight(sb.String(), "\n")
}
