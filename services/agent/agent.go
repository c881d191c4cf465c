package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"flow-api/domain"
)

// Actions the agent understands.
const (
	ActionStatusRequest = "input.status_request"
	ActionGoalRequest   = "input.goal_request"
	ActionHabitReport   = "input.habit_report"
	ActionHabitCommit   = "input.habit_commit"
	ActionHabitStatus   = "input.habit_status"
	ActionTaskAdd       = "input.task_add"
	ActionTaskView      = "input.task_view"
	ActionTaskRate      = "input.task_rate"
)

// Store is the slice of persistence the agent needs.
type Store interface {
	ActiveHabits(ctx context.Context, userID int64) ([]*domain.Habit, error)
	GetHabitDay(ctx context.Context, userID int64, id string) (*domain.HabitDay, error)
	PutHabitDay(ctx context.Context, userID int64, hd *domain.HabitDay) error
	HabitDaysInRange(ctx context.Context, userID int64, habitIDs []int64, startISO, endISO string) (map[string]*domain.HabitDay, error)
	RecentTasks(ctx context.Context, userID int64, limit int) ([]*domain.Task, error)
	PutTask(ctx context.Context, userID int64, t *domain.Task) error
	GetGoal(ctx context.Context, userID int64, id string) (*domain.Goal, error)
	PutProductivity(ctx context.Context, userID int64, p *domain.Productivity) error
}

// ConversationAgent resolves agent actions against one user's records.
type ConversationAgent struct {
	store Store
	user  *domain.User
	kind  Kind
	log   *log.Logger
}

// New creates an agent bound to the given user and conversational surface.
func New(store Store, user *domain.User, kind Kind, logger *log.Logger) *ConversationAgent {
	return &ConversationAgent{store: store, user: user, kind: kind, log: logger}
}

// RespondToAction produces the speech reply and structured payload for one
// resolved action. Unknown actions yield empty speech so the handler can
// substitute its fallback line.
func (ca *ConversationAgent) RespondToAction(ctx context.Context, action string, params map[string]any) (string, map[string]any) {
	if ca.user == nil {
		return "You'll need to connect your account first.", nil
	}
	localNow := time.Now().In(ca.user.Location())
	switch action {
	case ActionStatusRequest:
		return ca.status(ctx, localNow)
	case ActionGoalRequest:
		return ca.goals(ctx, localNow)
	case ActionHabitReport:
		return ca.reportHabit(ctx, localNow, paramString(params, "habit"), false)
	case ActionHabitCommit:
		return ca.reportHabit(ctx, localNow, paramString(params, "habit"), true)
	case ActionHabitStatus:
		return ca.habitStatus(ctx, localNow)
	case ActionTaskAdd:
		return ca.addTask(ctx, localNow, paramString(params, "task_name"))
	case ActionTaskView:
		return ca.viewTasks(ctx)
	case ActionTaskRate:
		return ca.rateDay(ctx, localNow, params)
	default:
		ca.log.Debugf("agent: unhandled action %q", action)
		return "", nil
	}
}

func (ca *ConversationAgent) status(ctx context.Context, localNow time.Time) (string, map[string]any) {
	today := domain.ISODateStr(localNow)
	habits, err := ca.store.ActiveHabits(ctx, ca.user.ID)
	if err != nil {
		return "", nil
	}
	ids := make([]int64, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	days, err := ca.store.HabitDaysInRange(ctx, ca.user.ID, ids, today, today)
	if err != nil {
		return "", nil
	}
	done := []string{}
	for _, h := range habits {
		if hd := days[domain.HabitDayID(h.ID, today)]; hd != nil && hd.Done {
			done = append(done, h.Name)
		}
	}
	tasks, err := ca.store.RecentTasks(ctx, ca.user.ID, 20)
	if err != nil {
		return "", nil
	}
	remaining := 0
	for _, t := range tasks {
		if !t.Done() && !t.Archived {
			remaining++
		}
	}
	speech := fmt.Sprintf("You've completed %d of %d habits today", len(done), len(habits))
	if len(done) > 0 {
		speech += " (" + strings.Join(done, ", ") + ")"
	}
	speech += fmt.Sprintf(", with %d tasks still open.", remaining)
	return speech, map[string]any{
		"habits_done":  len(done),
		"habits_total": len(habits),
		"tasks_open":   remaining,
	}
}

func (ca *ConversationAgent) goals(ctx context.Context, localNow time.Time) (string, map[string]any) {
	_, monthlyID := domain.CurrentGoalIDs(localNow)
	goal, err := ca.store.GetGoal(ctx, ca.user.ID, monthlyID)
	if err != nil || goal == nil || len(goal.Text) == 0 {
		return "You haven't set any goals this month.", nil
	}
	lines := make([]string, len(goal.Text))
	for i, text := range goal.Text {
		lines[i] = fmt.Sprintf("%d: %s", i+1, text)
	}
	return "Here are your goals for this month. " + strings.Join(lines, ". "),
		map[string]any{"goal": goal}
}

func (ca *ConversationAgent) reportHabit(ctx context.Context, localNow time.Time, name string, commit bool) (string, map[string]any) {
	if name == "" {
		return "Which habit do you mean?", nil
	}
	habits, err := ca.store.ActiveHabits(ctx, ca.user.ID)
	if err != nil {
		return "", nil
	}
	var habit *domain.Habit
	for _, h := range habits {
		if strings.EqualFold(h.Name, name) || strings.Contains(strings.ToLower(h.Name), strings.ToLower(name)) {
			habit = h
			break
		}
	}
	if habit == nil {
		return fmt.Sprintf("I couldn't find a habit called %s.", name), nil
	}
	today := domain.ISODateStr(localNow)
	id := domain.HabitDayID(habit.ID, today)
	hd, err := ca.store.GetHabitDay(ctx, ca.user.ID, id)
	if err != nil {
		return "", nil
	}
	if hd == nil {
		hd = domain.NewHabitDay(habit.ID, today)
	}
	var speech string
	if commit {
		hd.Commit()
		speech = domain.HabitCommitReply()
	} else {
		hd.Done = true
		speech = domain.HabitDoneReply()
	}
	if err := ca.store.PutHabitDay(ctx, ca.user.ID, hd); err != nil {
		return "", nil
	}
	return speech, map[string]any{"habitday": hd}
}

func (ca *ConversationAgent) addTask(ctx context.Context, localNow time.Time, title string) (string, map[string]any) {
	if title == "" {
		return "What should the task say?", nil
	}
	task := domain.NewTask(title, domain.DefaultDue(localNow))
	if err := ca.store.PutTask(ctx, ca.user.ID, task); err != nil {
		return "", nil
	}
	return fmt.Sprintf("Added task: %s.", title), map[string]any{"task": task}
}

func (ca *ConversationAgent) habitStatus(ctx context.Context, localNow time.Time) (string, map[string]any) {
	today := domain.ISODateStr(localNow)
	habits, err := ca.store.ActiveHabits(ctx, ca.user.ID)
	if err != nil {
		return "", nil
	}
	if len(habits) == 0 {
		return "You don't have any active habits yet.", nil
	}
	ids := make([]int64, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	days, err := ca.store.HabitDaysInRange(ctx, ca.user.ID, ids, today, today)
	if err != nil {
		return "", nil
	}
	pending := []string{}
	for _, h := range habits {
		if hd := days[domain.HabitDayID(h.ID, today)]; hd == nil || !hd.Done {
			pending = append(pending, h.Name)
		}
	}
	if len(pending) == 0 {
		return "All habits done for today. Nice work!",
			map[string]any{"habits_total": len(habits), "habits_pending": 0}
	}
	return fmt.Sprintf("Still to do today: %s.", strings.Join(pending, ", ")),
		map[string]any{"habits_total": len(habits), "habits_pending": len(pending)}
}

func (ca *ConversationAgent) rateDay(ctx context.Context, localNow time.Time, params map[string]any) (string, map[string]any) {
	score, ok := paramInt(params, "rating")
	if !ok {
		return "How would you rate your day, from 1 to 10?", nil
	}
	p := &domain.Productivity{Date: domain.ISODateStr(localNow), Score: score}
	if err := ca.store.PutProductivity(ctx, ca.user.ID, p); err != nil {
		return "", nil
	}
	return fmt.Sprintf("Got it, logged a %d for today.", score),
		map[string]any{"productivity": p}
}

func (ca *ConversationAgent) viewTasks(ctx context.Context) (string, map[string]any) {
	tasks, err := ca.store.RecentTasks(ctx, ca.user.ID, 20)
	if err != nil {
		return "", nil
	}
	open := []string{}
	for _, t := range tasks {
		if !t.Done() && !t.Archived {
			open = append(open, t.Title)
		}
	}
	if len(open) == 0 {
		return "Your list is clear.", nil
	}
	return fmt.Sprintf("You have %d open tasks: %s.", len(open), strings.Join(open, ", ")),
		map[string]any{"tasks_open": len(open)}
}

func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	v, _ := params[key].(string)
	return strings.TrimSpace(v)
}

// paramInt tolerates both JSON numbers and numeric strings, which is how the
// platforms deliver slot values.
func paramInt(params map[string]any, key string) (int, bool) {
	if params == nil {
		return 0, false
	}
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
