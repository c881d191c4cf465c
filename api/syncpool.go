package api

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"flow-api/domain"
)

// The sync worker pool drains the queue the cron endpoints feed. Workers
// poll in parallel; each dequeued job is acknowledged only after its sync
// completed, so a crashed worker's jobs become visible again.

const productivityLookbackDays = 14

var (
	syncOnce     sync.Once
	syncStop     chan struct{}
	syncWG       sync.WaitGroup
	syncDeps     Deps
	syncWorkers  int
	syncPoll     time.Duration
	syncBatch    int
	syncJobLimit time.Duration
)

func initSyncWorkers(d Deps) {
	syncOnce.Do(func() {
		if d.Log == nil {
			panic("Logger is not initialized")
		}
		syncDeps = d

		syncWorkers = envInt("SYNC_WORKERS", 4)
		syncPoll = envDur("SYNC_POLL_INTERVAL", 15*time.Second)
		syncBatch = envInt("SYNC_BATCH", 8)
		syncJobLimit = envDur("SYNC_JOB_TIMEOUT", 60*time.Second)

		syncStop = make(chan struct{})
		for i := 0; i < syncWorkers; i++ {
			syncWG.Add(1)
			go syncWorker(i, syncStop)
		}
		d.Log.Infof("sync workers started, workers: %d, poll: %v, batch: %d", syncWorkers, syncPoll, syncBatch)
	})
}

// shutdownSyncWorkers stops worker goroutines and clears shared state. It is intended for tests.
// State is cleared only after every worker has returned.
func shutdownSyncWorkers() {
	if syncStop != nil {
		close(syncStop)
		syncWG.Wait()
		syncStop = nil
	}

	syncDeps = Deps{}
	syncWorkers = 0
	syncPoll = 0
	syncBatch = 0
	syncJobLimit = 0
	syncOnce = sync.Once{}
	syncWG = sync.WaitGroup{}
}

func syncWorker(id int, stop <-chan struct{}) {
	defer syncWG.Done()
	ticker := time.NewTicker(syncPoll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			drainSyncJobs(id)
		}
	}
}

func drainSyncJobs(workerID int) {
	d := syncDeps
	ctx, cancel := context.WithTimeout(context.Background(), syncJobLimit)
	defer cancel()

	queued, err := d.Queue.DequeueSyncJobs(ctx, syncBatch)
	if err != nil {
		d.Log.Errorf("dequeue failed, err: %v, worker: %d", err, workerID)
		return
	}
	for _, qj := range queued {
		if err := runSyncJob(ctx, d, qj.Job); err != nil {
			d.Log.Errorf("sync job failed, err: %v, kind: %s, user: %d, worker: %d",
				err, qj.Job.Kind, qj.Job.UserID, workerID)
			continue
		}
		if err := d.Queue.DeleteSyncJob(ctx, qj); err != nil {
			d.Log.Errorf("sync job ack failed, err: %v, kind: %s, user: %d",
				err, qj.Job.Kind, qj.Job.UserID)
		}
	}
}

func runSyncJob(ctx context.Context, d Deps, job domain.SyncJob) error {
	switch job.Kind {
	case domain.SyncPocket:
		return runPocketSync(ctx, d, job.UserID)
	case domain.SyncProductivity:
		return runProductivitySync(ctx, d, job.UserID)
	default:
		d.Log.Warnf("unknown sync kind %q for user %d, dropping", job.Kind, job.UserID)
		return nil
	}
}

// runPocketSync pulls changes since the user's watermark, same as the manual
// endpoint but without a session.
func runPocketSync(ctx context.Context, d Deps, userID int64) error {
	u, err := d.Store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	accessToken := u.IntegrationProp(propPocketAccessToken, "")
	if accessToken == "" {
		return nil
	}
	since := u.IntegrationInt(propPocketWatermark, 0)
	readables, watermark, err := d.Pocket.Sync(ctx, accessToken, since)
	if err != nil {
		return err
	}
	if _, err := d.Store.PutReadables(ctx, userID, readables); err != nil {
		return err
	}
	if watermark > since {
		u.SetIntegrationProp(propPocketWatermark, strconv.FormatInt(watermark, 10))
		if err := d.Store.PutUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// runProductivitySync re-scores recent days from their journal documents.
// Days without a journal keep whatever score they already have.
func runProductivitySync(ctx context.Context, d Deps, userID int64) error {
	u, err := d.Store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	today := time.Now().In(u.Location())
	start := domain.ISODateStr(today.AddDate(0, 0, -(productivityLookbackDays - 1)))
	days := domain.DaysInRange(start, domain.ISODateStr(today))
	journals, err := d.Store.GetJournals(ctx, userID, days)
	if err != nil {
		return err
	}
	for i, j := range journals {
		if j == nil {
			continue
		}
		score, ok := domain.ProductivityScore(j)
		if !ok {
			continue
		}
		p := &domain.Productivity{Date: days[i], Score: score}
		if err := d.Store.PutProductivity(ctx, userID, p); err != nil {
			return err
		}
	}
	return nil
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDur(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			return dur
		}
	}
	return fallback
}
