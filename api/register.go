package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Deps bundles everything handlers need. One value is built in main and
// threaded through route registration; handlers themselves stay stateless.
type Deps struct {
	Store    Storage
	Queue    SyncQueue
	Sessions *Sessions
	Auth     *Auth
	Deduper  Deduper
	Pocket   PocketClient
	Shelf    ShelfClient
	Tokens   *TokenCodec
	Log      *log.Logger

	AdminEmail        string
	GoogleProjectName string
	AgentAuthKey      string
	FBVerifyToken     string
	CronKey           string
}

// Register wires up all API routes on the provided Echo instance and starts
// the background sync workers.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		panic("Logger is not initialized")
	}

	e.GET("/healthz", healthz())

	e.POST("/api/user/me", d.requireUser(updateSelf(d)))
	e.GET("/api/user", d.requireAdmin(listUsers(d)))

	e.GET("/api/project", d.requireUser(listProjects(d)))
	e.GET("/api/project/active", d.requireUser(activeProjects(d)))
	e.POST("/api/project", d.requireUser(updateProject(d)))

	e.GET("/api/task", d.requireUser(listTasks(d)))
	e.POST("/api/task", d.requireUser(updateTask(d)))

	e.GET("/api/habit", d.requireUser(listHabits(d)))
	e.GET("/api/habit/recent", d.requireUser(recentHabitDays(d)))
	e.GET("/api/habit/range", d.requireUser(habitDayRange(d)))
	e.POST("/api/habit/toggle", d.requireUser(toggleHabitDay(d)))
	e.POST("/api/habit/commit", d.requireUser(commitHabitDay(d)))
	e.POST("/api/habit", d.requireUser(updateHabit(d)))

	e.GET("/api/goal", d.requireUser(listGoals(d)))
	e.GET("/api/goal/current", d.requireUser(currentGoals(d)))
	e.POST("/api/goal", d.requireUser(updateGoal(d)))

	e.GET("/api/event", d.requireUser(listEvents(d)))
	e.POST("/api/event", d.requireUser(updateEvent(d)))
	e.POST("/api/event/batch", d.requireUser(batchCreateEvents(d)))

	e.GET("/api/journal/today", d.requireUser(journalToday(d)))
	e.GET("/api/journal", d.requireUser(listJournals(d)))
	e.POST("/api/journal", d.requireUser(submitJournal(d)))
	e.GET("/api/journaltag", d.requireUser(listJournalTags(d)))

	e.GET("/api/readable", d.requireUser(listReadables(d)))
	e.POST("/api/readable", d.requireUser(updateReadable(d)))
	e.POST("/api/readable/delete", d.requireUser(deleteReadable(d)))

	e.GET("/api/analysis", d.requireUser(analysis(d)))

	e.POST("/api/auth/google_login", googleLogin(d))
	e.POST("/api/auth/google_auth", googleAuth(d))
	e.POST("/api/auth/fbook_auth", fbookAuth(d))
	e.POST("/api/auth/logout", logout(d))

	e.POST("/api/integrations/update_integration_settings", d.requireUser(updateIntegrationSettings(d)))
	e.GET("/api/integrations/goodreads", d.requireUser(goodreadsShelf(d)))
	e.GET("/api/integrations/pocket", d.requireUser(pocketSync(d)))
	e.POST("/api/integrations/pocket/authenticate", d.requireUser(pocketAuthenticate(d)))
	e.POST("/api/integrations/pocket/authorize", d.requireUser(pocketAuthorize(d)))
	e.POST("/api/integrations/pocket/disconnect", d.requireUser(pocketDisconnect(d)))

	e.POST("/api/agent/apiai/request", apiaiRequest(d))
	e.GET("/api/agent/fbook/request", fbookRequest(d))
	e.POST("/api/agent/fbook/request", fbookRequest(d))

	e.GET("/cron/readables/sync", readablesSyncCron(d))
	e.GET("/cron/productivity/sync", productivitySyncCron(d))

	initSyncWorkers(d)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
