package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

const cronKeyHeader = "X-Cron-Key"

const cronUserPage = 200

// cronAuthorized gates the scheduler endpoints on a shared key header.
func (d Deps) cronAuthorized(c echo.Context) bool {
	return d.CronKey != "" && c.Request().Header.Get(cronKeyHeader) == d.CronKey
}

// dedupeWindow buckets scheduling keys by hour so a retried cron tick cannot
// double-enqueue the same user's sync.
func dedupeWindow(now time.Time) string {
	return now.UTC().Format("2006010215")
}

// readablesSyncCron fans out one pocket sync job per connected user. Keys
// already present in the deduper are skipped; a failed enqueue rolls its
// keys back so the next tick retries.
func readablesSyncCron(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !d.cronAuthorized(c) {
			return c.NoContent(http.StatusForbidden)
		}
		ctx := c.Request().Context()
		users, err := d.Store.UsersWithIntegration(ctx, propPocketAccessToken)
		if err != nil {
			d.Log.Errorf("readables cron user scan: %v", err)
			return respond(c, false, "", nil)
		}
		window := dedupeWindow(time.Now())
		jobs := []domain.SyncJob{}
		added := []string{}
		for _, u := range users {
			key := fmt.Sprintf("sync:%s:%d:%s", domain.SyncPocket, u.ID, window)
			fresh, err := d.Deduper.Add(ctx, key)
			if err != nil {
				d.Log.Errorf("readables cron dedupe: %v", err)
				continue
			}
			if !fresh {
				continue
			}
			jobs = append(jobs, domain.SyncJob{UserID: u.ID, Kind: domain.SyncPocket})
			added = append(added, key)
		}
		if len(jobs) > 0 {
			if err := d.Queue.EnqueueSyncJobs(ctx, jobs); err != nil {
				for _, key := range added {
					if rerr := d.Deduper.Remove(ctx, key); rerr != nil {
						d.Log.Errorf("dedupe rollback failed, err : %v, key: %s", rerr, key)
					}
				}
				d.Log.Errorf("readables cron enqueue: %v", err)
				return respond(c, false, "", nil)
			}
		}
		return respond(c, true, "", map[string]any{"scheduled": len(jobs)})
	}
}

// productivitySyncCron schedules a productivity re-score for every user.
func productivitySyncCron(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !d.cronAuthorized(c) {
			return c.NoContent(http.StatusForbidden)
		}
		ctx := c.Request().Context()
		window := dedupeWindow(time.Now())
		scheduled := 0
		for offset := 0; ; offset += cronUserPage {
			users, err := d.Store.ListUsers(ctx, cronUserPage, offset)
			if err != nil {
				d.Log.Errorf("productivity cron user scan: %v", err)
				return respond(c, false, "", nil)
			}
			if len(users) == 0 {
				break
			}
			jobs := []domain.SyncJob{}
			added := []string{}
			for _, u := range users {
				key := fmt.Sprintf("sync:%s:%d:%s", domain.SyncProductivity, u.ID, window)
				fresh, err := d.Deduper.Add(ctx, key)
				if err != nil {
					d.Log.Errorf("productivity cron dedupe: %v", err)
					continue
				}
				if !fresh {
					continue
				}
				jobs = append(jobs, domain.SyncJob{UserID: u.ID, Kind: domain.SyncProductivity})
				added = append(added, key)
			}
			if len(jobs) > 0 {
				if err := d.Queue.EnqueueSyncJobs(ctx, jobs); err != nil {
					for _, key := range added {
						if rerr := d.Deduper.Remove(ctx, key); rerr != nil {
							d.Log.Errorf("dedupe rollback failed, err : %v, key: %s", rerr, key)
						}
					}
					d.Log.Errorf("productivity cron enqueue: %v", err)
					return respond(c, false, "", nil)
				}
				scheduled += len(jobs)
			}
			if len(users) < cronUserPage {
				break
			}
		}
		return respond(c, true, "", map[string]any{"scheduled": scheduled})
	}
}
