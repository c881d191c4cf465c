package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"flow-api/domain"
)

// GetProject looks up one project; absent ids yield (nil, nil).
func (s *Store) GetProject(ctx context.Context, userID, id int64) (*domain.Project, error) {
	var p domain.Project
	ok, err := s.get(ctx, partition(userID), numericRowKey(kindProject, id), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// FetchProjects returns all of the user's projects, oldest first.
func (s *Store) FetchProjects(ctx context.Context, userID int64) ([]*domain.Project, error) {
	projects := []*domain.Project{}
	err := s.queryKind(ctx, partition(userID), kindProject, func(data []byte) error {
		var p domain.Project
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		projects = append(projects, &p)
		return nil
	})
	return projects, err
}

// ActiveProjects returns unarchived projects, starred first.
func (s *Store) ActiveProjects(ctx context.Context, userID int64) ([]*domain.Project, error) {
	all, err := s.FetchProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := []*domain.Project{}
	for _, p := range all {
		if !p.Archived {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Starred && !active[j].Starred
	})
	return active, nil
}

// PutProject upserts a project in the user's partition.
func (s *Store) PutProject(ctx context.Context, userID int64, p *domain.Project) error {
	return s.put(ctx, partition(userID), numericRowKey(kindProject, p.ID), p)
}

// GetTask looks up one task; absent ids yield (nil, nil).
func (s *Store) GetTask(ctx context.Context, userID, id int64) (*domain.Task, error) {
	var t domain.Task
	ok, err := s.get(ctx, partition(userID), numericRowKey(kindTask, id), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// RecentTasks returns the most recently created tasks, newest first.
func (s *Store) RecentTasks(ctx context.Context, userID int64, limit int) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	err := s.queryKind(ctx, partition(userID), kindTask, func(data []byte) error {
		var t domain.Task
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		tasks = append(tasks, &t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Task ids are time ordered, so reverse RowKey order is newest first.
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// TasksDueInRange returns tasks with a due time inside [start, end).
func (s *Store) TasksDueInRange(ctx context.Context, userID int64, start, end time.Time, limit int) ([]*domain.Task, error) {
	due := []*domain.Task{}
	err := s.queryKind(ctx, partition(userID), kindTask, func(data []byte) error {
		var t domain.Task
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		if !dueInRange(&t, start, end) {
			return nil
		}
		due = append(due, &t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Due.Before(*due[j].Due) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// dueInRange reports whether the task's due time falls in [start, end).
func dueInRange(t *domain.Task, start, end time.Time) bool {
	return t.Due != nil && !t.Due.Before(start) && t.Due.Before(end)
}

// PutTask upserts a task in the user's partition.
func (s *Store) PutTask(ctx context.Context, userID int64, t *domain.Task) error {
	return s.put(ctx, partition(userID), numericRowKey(kindTask, t.ID), t)
}

// PutTasks upserts tasks one by one, best effort, and reports how many
// landed.
func (s *Store) PutTasks(ctx context.Context, userID int64, tasks []*domain.Task) (int, error) {
	created := 0
	var lastErr error
	for _, t := range tasks {
		if err := s.PutTask(ctx, userID, t); err != nil {
			lastErr = err
			continue
		}
		created++
	}
	if created > 0 {
		return created, nil
	}
	return created, lastErr
}

// GetHabit looks up one habit; absent ids yield (nil, nil).
func (s *Store) GetHabit(ctx context.Context, userID, id int64) (*domain.Habit, error) {
	var h domain.Habit
	ok, err := s.get(ctx, partition(userID), numericRowKey(kindHabit, id), &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

// AllHabits returns every habit, oldest first.
func (s *Store) AllHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	habits := []*domain.Habit{}
	err := s.queryKind(ctx, partition(userID), kindHabit, func(data []byte) error {
		var h domain.Habit
		if err := json.Unmarshal(data, &h); err != nil {
			return err
		}
		habits = append(habits, &h)
		return nil
	})
	return habits, err
}

// ActiveHabits returns unarchived habits, oldest first.
func (s *Store) ActiveHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	all, err := s.AllHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := []*domain.Habit{}
	for _, h := range all {
		if !h.Archived {
			active = append(active, h)
		}
	}
	return active, nil
}

// PutHabit upserts a habit in the user's partition.
func (s *Store) PutHabit(ctx context.Context, userID int64, h *domain.Habit) error {
	return s.put(ctx, partition(userID), numericRowKey(kindHabit, h.ID), h)
}

// GetHabitDay looks up a (habit, day) record; untouched days yield (nil, nil).
func (s *Store) GetHabitDay(ctx context.Context, userID int64, id string) (*domain.HabitDay, error) {
	var hd domain.HabitDay
	ok, err := s.get(ctx, partition(userID), stringRowKey(kindHabitDay, id), &hd)
	if err != nil || !ok {
		return nil, err
	}
	return &hd, nil
}

// HabitDaysInRange returns stored habit-day records for the given habits
// between startISO and endISO inclusive, keyed by HabitDayID. Days without
// interaction have no entry; callers render those as explicit nulls.
func (s *Store) HabitDaysInRange(ctx context.Context, userID int64, habitIDs []int64, startISO, endISO string) (map[string]*domain.HabitDay, error) {
	found := map[string]*domain.HabitDay{}
	for _, habitID := range habitIDs {
		from := domain.HabitDayID(habitID, startISO)
		to := domain.HabitDayID(habitID, endISO)
		err := s.queryRange(ctx, partition(userID), kindHabitDay, from, to, func(data []byte) error {
			var hd domain.HabitDay
			if err := json.Unmarshal(data, &hd); err != nil {
				return err
			}
			found[hd.ID] = &hd
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

// PutHabitDay upserts a habit-day record in the user's partition.
func (s *Store) PutHabitDay(ctx context.Context, userID int64, hd *domain.HabitDay) error {
	return s.put(ctx, partition(userID), stringRowKey(kindHabitDay, hd.ID), hd)
}

// GetGoal looks up a goal by period id; absent periods yield (nil, nil).
func (s *Store) GetGoal(ctx context.Context, userID int64, id string) (*domain.Goal, error) {
	var g domain.Goal
	ok, err := s.get(ctx, partition(userID), stringRowKey(kindGoal, id), &g)
	if err != nil || !ok {
		return nil, err
	}
	return &g, nil
}

// RecentGoals returns goals most recently created first.
func (s *Store) RecentGoals(ctx context.Context, userID int64, limit int) ([]*domain.Goal, error) {
	goals := []*domain.Goal{}
	err := s.queryKind(ctx, partition(userID), kindGoal, func(data []byte) error {
		var g domain.Goal
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		goals = append(goals, &g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].Created.After(goals[j].Created) })
	if limit > 0 && len(goals) > limit {
		goals = goals[:limit]
	}
	return goals, nil
}

// YearGoals returns the annual and monthly goals whose period falls in the
// given year.
func (s *Store) YearGoals(ctx context.Context, userID int64, year int) ([]*domain.Goal, error) {
	annual, _ := domain.CurrentGoalIDs(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	goals := []*domain.Goal{}
	err := s.queryRange(ctx, partition(userID), kindGoal, annual, annual+"13", func(data []byte) error {
		var g domain.Goal
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		goals = append(goals, &g)
		return nil
	})
	return goals, err
}

// PutGoal upserts a goal in the user's partition.
func (s *Store) PutGoal(ctx context.Context, userID int64, g *domain.Goal) error {
	return s.put(ctx, partition(userID), stringRowKey(kindGoal, g.ID), g)
}

// GetEvent looks up one event; absent ids yield (nil, nil).
func (s *Store) GetEvent(ctx context.Context, userID, id int64) (*domain.Event, error) {
	var e domain.Event
	ok, err := s.get(ctx, partition(userID), numericRowKey(kindEvent, id), &e)
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

// FetchEvents pages through the user's events ordered by start date.
func (s *Store) FetchEvents(ctx context.Context, userID int64, limit, offset int) ([]*domain.Event, error) {
	events := []*domain.Event{}
	err := s.queryKind(ctx, partition(userID), kindEvent, func(data []byte) error {
		var e domain.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		events = append(events, &e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].DateStart < events[j].DateStart })
	if offset > 0 {
		if offset >= len(events) {
			return []*domain.Event{}, nil
		}
		events = events[offset:]
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// PutEvent upserts an event in the user's partition.
func (s *Store) PutEvent(ctx context.Context, userID int64, e *domain.Event) error {
	return s.put(ctx, partition(userID), numericRowKey(kindEvent, e.ID), e)
}

// PutEvents upserts events one by one, best effort. It reports how many
// landed and how many failed; a partially failed batch is not rolled back.
func (s *Store) PutEvents(ctx context.Context, userID int64, events []*domain.Event) (created, failed int, err error) {
	var lastErr error
	for _, e := range events {
		if perr := s.PutEvent(ctx, userID, e); perr != nil {
			failed++
			lastErr = perr
			continue
		}
		created++
	}
	if created == 0 && lastErr != nil {
		return created, failed, lastErr
	}
	return created, failed, nil
}

// GetJournal looks up the journal for one ISO day; absent days yield (nil, nil).
func (s *Store) GetJournal(ctx context.Context, userID int64, dayISO string) (*domain.MiniJournal, error) {
	var j domain.MiniJournal
	ok, err := s.get(ctx, partition(userID), stringRowKey(kindJournal, dayISO), &j)
	if err != nil || !ok {
		return nil, err
	}
	return &j, nil
}

// GetJournals performs point lookups for each requested day. The result is
// aligned with days: a day without a journal yields a nil slot.
func (s *Store) GetJournals(ctx context.Context, userID int64, days []string) ([]*domain.MiniJournal, error) {
	journals := make([]*domain.MiniJournal, len(days))
	for i, day := range days {
		j, err := s.GetJournal(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		journals[i] = j
	}
	return journals, nil
}

// PutJournal upserts the day's journal in the user's partition.
func (s *Store) PutJournal(ctx context.Context, userID int64, j *domain.MiniJournal) error {
	return s.put(ctx, partition(userID), stringRowKey(kindJournal, j.ID), j)
}

// AllJournalTags returns every tag the user has created.
func (s *Store) AllJournalTags(ctx context.Context, userID int64) ([]*domain.JournalTag, error) {
	tags := []*domain.JournalTag{}
	err := s.queryKind(ctx, partition(userID), kindJournalTag, func(data []byte) error {
		var t domain.JournalTag
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		tags = append(tags, &t)
		return nil
	})
	return tags, err
}

// PutJournalTag upserts a tag; the deterministic id makes this idempotent.
func (s *Store) PutJournalTag(ctx context.Context, userID int64, t *domain.JournalTag) error {
	return s.put(ctx, partition(userID), stringRowKey(kindJournalTag, t.ID), t)
}

// GetReadable looks up one readable; absent ids yield (nil, nil).
func (s *Store) GetReadable(ctx context.Context, userID int64, id string) (*domain.Readable, error) {
	var r domain.Readable
	ok, err := s.get(ctx, partition(userID), stringRowKey(kindReadable, id), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// UnreadReadables returns unread items, newest first.
func (s *Store) UnreadReadables(ctx context.Context, userID int64) ([]*domain.Readable, error) {
	unread := []*domain.Readable{}
	err := s.queryKind(ctx, partition(userID), kindReadable, func(data []byte) error {
		var r domain.Readable
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if !r.Read {
			unread = append(unread, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(unread, func(i, j int) bool { return unread[i].Created.After(unread[j].Created) })
	return unread, nil
}

// PutReadable upserts a readable in the user's partition.
func (s *Store) PutReadable(ctx context.Context, userID int64, r *domain.Readable) error {
	return s.put(ctx, partition(userID), stringRowKey(kindReadable, r.ID), r)
}

// PutReadables upserts synced items one by one, best effort, and reports
// how many landed.
func (s *Store) PutReadables(ctx context.Context, userID int64, readables []*domain.Readable) (int, error) {
	saved := 0
	var lastErr error
	for _, r := range readables {
		if err := s.PutReadable(ctx, userID, r); err != nil {
			lastErr = err
			continue
		}
		saved++
	}
	if saved > 0 {
		return saved, nil
	}
	return saved, lastErr
}

// DeleteReadable removes a readable; deleting an absent row is a no-op.
func (s *Store) DeleteReadable(ctx context.Context, userID int64, id string) error {
	return s.delete(ctx, partition(userID), stringRowKey(kindReadable, id))
}

// ProductivityRange returns per-day scores between startISO and endISO
// inclusive, in date order.
func (s *Store) ProductivityRange(ctx context.Context, userID int64, startISO, endISO string) ([]*domain.Productivity, error) {
	records := []*domain.Productivity{}
	err := s.queryRange(ctx, partition(userID), kindProductivity, startISO, endISO, func(data []byte) error {
		var p domain.Productivity
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		records = append(records, &p)
		return nil
	})
	return records, err
}

// PutProductivity upserts one day's score in the user's partition.
func (s *Store) PutProductivity(ctx context.Context, userID int64, p *domain.Productivity) error {
	return s.put(ctx, partition(userID), stringRowKey(kindProductivity, p.Date), p)
}
