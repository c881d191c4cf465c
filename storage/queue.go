package storage

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"flow-api/domain"
)

// EnqueueSyncJobs sends one queue message per sync job.
func (s *Store) EnqueueSyncJobs(ctx context.Context, jobs []domain.SyncJob) error {
	for _, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if _, err := s.syncQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}

// DequeueSyncJobs pulls up to max pending sync jobs. Messages that fail to
// decode are dropped so a poison message cannot wedge the queue.
func (s *Store) DequeueSyncJobs(ctx context.Context, max int) ([]domain.QueuedSyncJob, error) {
	n := int32(max)
	resp, err := s.syncQueue.DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages: &n,
	})
	if err != nil {
		return nil, err
	}
	jobs := []domain.QueuedSyncJob{}
	for _, m := range resp.Messages {
		if m.MessageID == nil || m.PopReceipt == nil || m.MessageText == nil {
			continue
		}
		var job domain.SyncJob
		if err := json.Unmarshal([]byte(*m.MessageText), &job); err != nil {
			_, _ = s.syncQueue.DeleteMessage(ctx, *m.MessageID, *m.PopReceipt, nil)
			continue
		}
		jobs = append(jobs, domain.QueuedSyncJob{
			Job:        job,
			MessageID:  *m.MessageID,
			PopReceipt: *m.PopReceipt,
		})
	}
	return jobs, nil
}

// DeleteSyncJob acknowledges a processed job.
func (s *Store) DeleteSyncJob(ctx context.Context, job domain.QueuedSyncJob) error {
	_, err := s.syncQueue.DeleteMessage(ctx, job.MessageID, job.PopReceipt, nil)
	return err
}
