package api

import (
	"context"
	"time"

	"flow-api/domain"
)

// Storage abstracts persistence for handlers. Every method is scoped to the
// owning user's partition; there is no way to address another user's rows.
type Storage interface {
	// users
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	PutUser(ctx context.Context, u *domain.User) error
	ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error)
	UsersWithIntegration(ctx context.Context, prop string) ([]*domain.User, error)

	// projects
	GetProject(ctx context.Context, userID, id int64) (*domain.Project, error)
	FetchProjects(ctx context.Context, userID int64) ([]*domain.Project, error)
	ActiveProjects(ctx context.Context, userID int64) ([]*domain.Project, error)
	PutProject(ctx context.Context, userID int64, p *domain.Project) error

	// tasks
	GetTask(ctx context.Context, userID, id int64) (*domain.Task, error)
	RecentTasks(ctx context.Context, userID int64, limit int) ([]*domain.Task, error)
	TasksDueInRange(ctx context.Context, userID int64, start, end time.Time, limit int) ([]*domain.Task, error)
	PutTask(ctx context.Context, userID int64, t *domain.Task) error
	PutTasks(ctx context.Context, userID int64, tasks []*domain.Task) (int, error)

	// habits
	GetHabit(ctx context.Context, userID, id int64) (*domain.Habit, error)
	AllHabits(ctx context.Context, userID int64) ([]*domain.Habit, error)
	ActiveHabits(ctx context.Context, userID int64) ([]*domain.Habit, error)
	PutHabit(ctx context.Context, userID int64, h *domain.Habit) error
	GetHabitDay(ctx context.Context, userID int64, id string) (*domain.HabitDay, error)
	HabitDaysInRange(ctx context.Context, userID int64, habitIDs []int64, startISO, endISO string) (map[string]*domain.HabitDay, error)
	PutHabitDay(ctx context.Context, userID int64, hd *domain.HabitDay) error

	// goals
	GetGoal(ctx context.Context, userID int64, id string) (*domain.Goal, error)
	RecentGoals(ctx context.Context, userID int64, limit int) ([]*domain.Goal, error)
	YearGoals(ctx context.Context, userID int64, year int) ([]*domain.Goal, error)
	PutGoal(ctx context.Context, userID int64, g *domain.Goal) error

	// events
	GetEvent(ctx context.Context, userID, id int64) (*domain.Event, error)
	FetchEvents(ctx context.Context, userID int64, limit, offset int) ([]*domain.Event, error)
	PutEvent(ctx context.Context, userID int64, e *domain.Event) error
	PutEvents(ctx context.Context, userID int64, events []*domain.Event) (created, failed int, err error)

	// journals
	GetJournal(ctx context.Context, userID int64, dayISO string) (*domain.MiniJournal, error)
	GetJournals(ctx context.Context, userID int64, days []string) ([]*domain.MiniJournal, error)
	PutJournal(ctx context.Context, userID int64, j *domain.MiniJournal) error
	AllJournalTags(ctx context.Context, userID int64) ([]*domain.JournalTag, error)
	PutJournalTag(ctx context.Context, userID int64, t *domain.JournalTag) error

	// readables
	GetReadable(ctx context.Context, userID int64, id string) (*domain.Readable, error)
	UnreadReadables(ctx context.Context, userID int64) ([]*domain.Readable, error)
	PutReadable(ctx context.Context, userID int64, r *domain.Readable) error
	PutReadables(ctx context.Context, userID int64, readables []*domain.Readable) (int, error)
	DeleteReadable(ctx context.Context, userID int64, id string) error

	// productivity
	ProductivityRange(ctx context.Context, userID int64, startISO, endISO string) ([]*domain.Productivity, error)
	PutProductivity(ctx context.Context, userID int64, p *domain.Productivity) error
}

// SyncQueue hands background sync jobs between the cron endpoints and the
// worker pool.
type SyncQueue interface {
	EnqueueSyncJobs(ctx context.Context, jobs []domain.SyncJob) error
	DequeueSyncJobs(ctx context.Context, max int) ([]domain.QueuedSyncJob, error)
	DeleteSyncJob(ctx context.Context, job domain.QueuedSyncJob) error
}

// Deduper prevents duplicate scheduling of the same sync run.
type Deduper interface {
	// Add records the key and returns true if it was newly added.
	Add(ctx context.Context, key string) (bool, error)
	// Remove deletes a previously added key, used when scheduling fails.
	Remove(ctx context.Context, key string) error
}

// PocketClient is the read-later integration surface used by handlers and
// the sync workers.
type PocketClient interface {
	Sync(ctx context.Context, accessToken string, since int64) ([]*domain.Readable, int64, error)
	UpdateArticle(ctx context.Context, accessToken, itemID, action string) error
	RequestToken(ctx context.Context, redirectURI string) (code, authURL string, err error)
	AccessToken(ctx context.Context, code string) (string, error)
}

// ShelfClient fetches books from a linked shelf service.
type ShelfClient interface {
	BooksOnShelf(ctx context.Context, u *domain.User, shelf string) ([]*domain.Readable, error)
}
