package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"flow-api/domain"
)

// fakeStore is an in-memory Storage used by handler tests. Every map is
// keyed by user id first, mirroring the per-user partitioning of the real
// store.
type fakeStore struct {
	mu sync.Mutex

	users        map[int64]*domain.User
	projects     map[int64]map[int64]*domain.Project
	tasks        map[int64]map[int64]*domain.Task
	habits       map[int64]map[int64]*domain.Habit
	habitdays    map[int64]map[string]*domain.HabitDay
	goals        map[int64]map[string]*domain.Goal
	events       map[int64]map[int64]*domain.Event
	journals     map[int64]map[string]*domain.MiniJournal
	journaltags  map[int64]map[string]*domain.JournalTag
	readables    map[int64]map[string]*domain.Readable
	productivity map[int64]map[string]*domain.Productivity

	err error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[int64]*domain.User{},
		projects:     map[int64]map[int64]*domain.Project{},
		tasks:        map[int64]map[int64]*domain.Task{},
		habits:       map[int64]map[int64]*domain.Habit{},
		habitdays:    map[int64]map[string]*domain.HabitDay{},
		goals:        map[int64]map[string]*domain.Goal{},
		events:       map[int64]map[int64]*domain.Event{},
		journals:     map[int64]map[string]*domain.MiniJournal{},
		journaltags:  map[int64]map[string]*domain.JournalTag{},
		readables:    map[int64]map[string]*domain.Readable{},
		productivity: map[int64]map[string]*domain.Productivity{},
	}
}

func (f *fakeStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], f.err
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, f.err
		}
	}
	return nil, f.err
}

func (f *fakeStore) PutUser(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return f.err
}

func (f *fakeStore) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	users := []*domain.User{}
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(users) >= limit {
			break
		}
		users = append(users, f.users[id])
	}
	return users, f.err
}

func (f *fakeStore) UsersWithIntegration(ctx context.Context, prop string) ([]*domain.User, error) {
	all, err := f.ListUsers(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	matched := []*domain.User{}
	for _, u := range all {
		if u.IntegrationProp(prop, "") != "" {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func (f *fakeStore) GetProject(ctx context.Context, userID, id int64) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[userID][id], f.err
}

func (f *fakeStore) FetchProjects(ctx context.Context, userID int64) ([]*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	projects := []*domain.Project{}
	for _, p := range f.projects[userID] {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, f.err
}

func (f *fakeStore) ActiveProjects(ctx context.Context, userID int64) ([]*domain.Project, error) {
	all, err := f.FetchProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := []*domain.Project{}
	for _, p := range all {
		if !p.Archived {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Starred && !active[j].Starred })
	return active, nil
}

func (f *fakeStore) PutProject(ctx context.Context, userID int64, p *domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projects[userID] == nil {
		f.projects[userID] = map[int64]*domain.Project{}
	}
	f.projects[userID][p.ID] = p
	return f.err
}

func (f *fakeStore) GetTask(ctx context.Context, userID, id int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[userID][id], f.err
}

func (f *fakeStore) RecentTasks(ctx context.Context, userID int64, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := []*domain.Task{}
	for _, t := range f.tasks[userID] {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, f.err
}

func (f *fakeStore) TasksDueInRange(ctx context.Context, userID int64, start, end time.Time, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := []*domain.Task{}
	for _, t := range f.tasks[userID] {
		if t.Due == nil || t.Due.Before(start) || !t.Due.Before(end) {
			continue
		}
		tasks = append(tasks, t)
		if limit > 0 && len(tasks) >= limit {
			break
		}
	}
	return tasks, f.err
}

func (f *fakeStore) PutTask(ctx context.Context, userID int64, t *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasks[userID] == nil {
		f.tasks[userID] = map[int64]*domain.Task{}
	}
	f.tasks[userID][t.ID] = t
	return f.err
}

func (f *fakeStore) PutTasks(ctx context.Context, userID int64, tasks []*domain.Task) (int, error) {
	for _, t := range tasks {
		if err := f.PutTask(ctx, userID, t); err != nil {
			return 0, err
		}
	}
	return len(tasks), nil
}

func (f *fakeStore) GetHabit(ctx context.Context, userID, id int64) (*domain.Habit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.habits[userID][id], f.err
}

func (f *fakeStore) AllHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	habits := []*domain.Habit{}
	for _, h := range f.habits[userID] {
		habits = append(habits, h)
	}
	sort.Slice(habits, func(i, j int) bool { return habits[i].ID < habits[j].ID })
	return habits, f.err
}

func (f *fakeStore) ActiveHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	all, err := f.AllHabits(ctx, userID)
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

func (f *fakeStore) PutHabit(ctx context.Context, userID int64, h *domain.Habit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.habits[userID] == nil {
		f.habits[userID] = map[int64]*domain.Habit{}
	}
	f.habits[userID][h.ID] = h
	return f.err
}

func (f *fakeStore) GetHabitDay(ctx context.Context, userID int64, id string) (*domain.HabitDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.habitdays[userID][id], f.err
}

func (f *fakeStore) HabitDaysInRange(ctx context.Context, userID int64, habitIDs []int64, startISO, endISO string) (map[string]*domain.HabitDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := map[string]*domain.HabitDay{}
	for _, habitID := range habitIDs {
		for _, day := range domain.DaysInRange(startISO, endISO) {
			id := domain.HabitDayID(habitID, day)
			if hd, ok := f.habitdays[userID][id]; ok {
				found[id] = hd
			}
		}
	}
	return found, f.err
}

func (f *fakeStore) PutHabitDay(ctx context.Context, userID int64, hd *domain.HabitDay) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.habitdays[userID] == nil {
		f.habitdays[userID] = map[string]*domain.HabitDay{}
	}
	f.habitdays[userID][hd.ID] = hd
	return f.err
}

func (f *fakeStore) GetGoal(ctx context.Context, userID int64, id string) (*domain.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.goals[userID][id], f.err
}

func (f *fakeStore) RecentGoals(ctx context.Context, userID int64, limit int) ([]*domain.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	goals := []*domain.Goal{}
	for _, g := range f.goals[userID] {
		goals = append(goals, g)
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID > goals[j].ID })
	if limit > 0 && len(goals) > limit {
		goals = goals[:limit]
	}
	return goals, f.err
}

func (f *fakeStore) YearGoals(ctx context.Context, userID int64, year int) ([]*domain.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strconv.Itoa(year)
	goals := []*domain.Goal{}
	for _, g := range f.goals[userID] {
		if strings.HasPrefix(g.ID, prefix) {
			goals = append(goals, g)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	return goals, f.err
}

func (f *fakeStore) PutGoal(ctx context.Context, userID int64, g *domain.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goals[userID] == nil {
		f.goals[userID] = map[string]*domain.Goal{}
	}
	f.goals[userID][g.ID] = g
	return f.err
}

func (f *fakeStore) GetEvent(ctx context.Context, userID, id int64) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[userID][id], f.err
}

func (f *fakeStore) FetchEvents(ctx context.Context, userID int64, limit, offset int) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := []*domain.Event{}
	for _, e := range f.events[userID] {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].DateStart < events[j].DateStart })
	if offset >= len(events) {
		return []*domain.Event{}, f.err
	}
	events = events[offset:]
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, f.err
}

func (f *fakeStore) PutEvent(ctx context.Context, userID int64, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events[userID] == nil {
		f.events[userID] = map[int64]*domain.Event{}
	}
	f.events[userID][e.ID] = e
	return f.err
}

func (f *fakeStore) PutEvents(ctx context.Context, userID int64, events []*domain.Event) (int, int, error) {
	created := 0
	for _, e := range events {
		if err := f.PutEvent(ctx, userID, e); err != nil {
			return created, len(events) - created, err
		}
		created++
	}
	return created, 0, nil
}

func (f *fakeStore) GetJournal(ctx context.Context, userID int64, dayISO string) (*domain.MiniJournal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.journals[userID][dayISO], f.err
}

func (f *fakeStore) GetJournals(ctx context.Context, userID int64, days []string) ([]*domain.MiniJournal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	journals := make([]*domain.MiniJournal, len(days))
	for i, day := range days {
		journals[i] = f.journals[userID][day]
	}
	return journals, f.err
}

func (f *fakeStore) PutJournal(ctx context.Context, userID int64, j *domain.MiniJournal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.journals[userID] == nil {
		f.journals[userID] = map[string]*domain.MiniJournal{}
	}
	f.journals[userID][j.ID] = j
	return f.err
}

func (f *fakeStore) AllJournalTags(ctx context.Context, userID int64) ([]*domain.JournalTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags := []*domain.JournalTag{}
	for _, tag := range f.journaltags[userID] {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, f.err
}

func (f *fakeStore) PutJournalTag(ctx context.Context, userID int64, tag *domain.JournalTag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.journaltags[userID] == nil {
		f.journaltags[userID] = map[string]*domain.JournalTag{}
	}
	f.journaltags[userID][tag.ID] = tag
	return f.err
}

func (f *fakeStore) GetReadable(ctx context.Context, userID int64, id string) (*domain.Readable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readables[userID][id], f.err
}

func (f *fakeStore) UnreadReadables(ctx context.Context, userID int64) ([]*domain.Readable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unread := []*domain.Readable{}
	for _, r := range f.readables[userID] {
		if !r.Read {
			unread = append(unread, r)
		}
	}
	sort.Slice(unread, func(i, j int) bool { return unread[i].ID < unread[j].ID })
	return unread, f.err
}

func (f *fakeStore) PutReadable(ctx context.Context, userID int64, r *domain.Readable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readables[userID] == nil {
		f.readables[userID] = map[string]*domain.Readable{}
	}
	f.readables[userID][r.ID] = r
	return f.err
}

func (f *fakeStore) PutReadables(ctx context.Context, userID int64, readables []*domain.Readable) (int, error) {
	for _, r := range readables {
		if err := f.PutReadable(ctx, userID, r); err != nil {
			return 0, err
		}
	}
	return len(readables), nil
}

func (f *fakeStore) DeleteReadable(ctx context.Context, userID int64, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.readables[userID], id)
	return f.err
}

func (f *fakeStore) ProductivityRange(ctx context.Context, userID int64, startISO, endISO string) ([]*domain.Productivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Productivity{}
	for _, p := range f.productivity[userID] {
		if p.Date >= startISO && p.Date <= endISO {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, f.err
}

func (f *fakeStore) PutProductivity(ctx context.Context, userID int64, p *domain.Productivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productivity[userID] == nil {
		f.productivity[userID] = map[string]*domain.Productivity{}
	}
	f.productivity[userID][p.Date] = p
	return f.err
}

// fakeQueue collects enqueued sync jobs.
type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.SyncJob
	err  error
}

func (f *fakeQueue) EnqueueSyncJobs(ctx context.Context, jobs []domain.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, jobs...)
	return nil
}

func (f *fakeQueue) DequeueSyncJobs(ctx context.Context, max int) ([]domain.QueuedSyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.QueuedSyncJob{}
	for i, job := range f.jobs {
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, domain.QueuedSyncJob{Job: job, MessageID: strconv.Itoa(i), PopReceipt: "r"})
	}
	return out, nil
}

func (f *fakeQueue) DeleteSyncJob(ctx context.Context, job domain.QueuedSyncJob) error {
	return nil
}

func (f *fakeQueue) Jobs() []domain.SyncJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SyncJob, len(f.jobs))
	copy(out, f.jobs)
	return out
}

// fakePocket records mirror calls and serves canned sync results.
type fakePocket struct {
	mu          sync.Mutex
	actions     []string
	syncResult  []*domain.Readable
	syncSince   int64
	watermark   int64
	requestCode string
	accessToken string
	err         error
}

func (f *fakePocket) Sync(ctx context.Context, accessToken string, since int64) ([]*domain.Readable, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncSince = since
	return f.syncResult, f.watermark, f.err
}

func (f *fakePocket) UpdateArticle(ctx context.Context, accessToken, itemID, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+":"+itemID)
	return f.err
}

func (f *fakePocket) RequestToken(ctx context.Context, redirectURI string) (string, string, error) {
	return f.requestCode, "https://getpocket.com/auth/authorize?request_token=" + f.requestCode, f.err
}

func (f *fakePocket) AccessToken(ctx context.Context, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if code == "" {
		return "", errors.New("missing code")
	}
	return f.accessToken, nil
}

func (f *fakePocket) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.actions))
	copy(out, f.actions)
	return out
}

type fakeShelf struct {
	readables []*domain.Readable
	err       error
}

func (f *fakeShelf) BooksOnShelf(ctx context.Context, u *domain.User, shelf string) ([]*domain.Readable, error) {
	return f.readables, f.err
}

// testDeps builds a Deps value backed by the fakes and a miniredis-based
// session store.
func testDeps(t *testing.T) (Deps, *fakeStore, *fakeQueue, *fakePocket) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	store := newFakeStore()
	queue := &fakeQueue{}
	pocket := &fakePocket{}
	logger := log.New()
	logger.SetOutput(io.Discard)

	return Deps{
		Store:    store,
		Queue:    queue,
		Sessions: NewSessions(rc, time.Hour),
		Deduper:  NewRedisDeduper(rc, time.Hour),
		Pocket:   pocket,
		Shelf:    &fakeShelf{},
		Log:      logger,

		AdminEmail: "admin@example.com",
		CronKey:    "cron-secret",
	}, store, queue, pocket
}

func testUser(t *testing.T, store *fakeStore) *domain.User {
	t.Helper()
	u := domain.NewUser("a@example.com", "A")
	if err := store.PutUser(context.Background(), u); err != nil {
		t.Fatalf("put user: %v", err)
	}
	return u
}

// formContext builds an echo context carrying form-encoded fields.
func formContext(t *testing.T, method, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var req *http.Request
	switch {
	case form != nil && method == http.MethodGet:
		// ParseForm only reads the body for POST/PUT/PATCH, so GET params
		// must travel in the query string to be visible to the handler.
		req = httptest.NewRequest(method, target+"?"+form.Encode(), nil)
	case form != nil:
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	default:
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}
