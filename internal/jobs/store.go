package jobs

import "context"

// Store persists job states so the queue can recover across restarts.
type Store interface {
	LoadJobs(ctx context.Context) ([]*FetchJob, error)
	UpsertJob(ctx context.Context, job *FetchJob) error
	DeleteJob(ctx context.Context, jobID string) error
}
