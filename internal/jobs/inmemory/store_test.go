package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vchukka/finsense/internal/jobs"
)

func TestStoreSaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.SyncJob{
		JobID:     "job-1",
		Type:      jobs.JobTypeSyncNotion,
		UserID:    "user-1",
		Status:    jobs.JobStatusPending,
		CreatedAt: time.Now(),
	}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	// Mutating the original must not leak into the stored copy.
	job.Status = jobs.JobStatusFailed

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("Status = %s, want %s", got.Status, jobs.JobStatusPending)
	}

	// Mutating the returned copy must not change the stored one.
	got.UserID = "someone-else"
	again, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", again.UserID)
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	store := NewStore()

	if err := store.SaveJob(context.Background(), &jobs.SyncJob{}); err == nil {
		t.Fatal("SaveJob accepted a job without an ID")
	}
	if _, err := store.GetJob(context.Background(), "nope"); err == nil {
		t.Fatal("GetJob returned a job that was never saved")
	}
}

func TestStoreListFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	seed := []*jobs.SyncJob{
		{JobID: "a", Type: jobs.JobTypeSyncNotion, Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", Type: jobs.JobTypeSyncNotion, Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", Type: jobs.JobTypeImportStatement, Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob %s: %v", j.JobID, err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all newest first", filter: jobs.JobFilter{}, want: []string{"c", "b", "a"}},
		{name: "by type", filter: jobs.JobFilter{Type: jobs.JobTypeSyncNotion}, want: []string{"b", "a"}},
		{name: "by status", filter: jobs.JobFilter{Status: jobs.JobStatusCompleted}, want: []string{"c", "a"}},
		{name: "limit", filter: jobs.JobFilter{Limit: 2}, want: []string{"c", "b"}},
		{name: "offset", filter: jobs.JobFilter{Offset: 1}, want: []string{"b", "a"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d jobs, want %d", len(got), len(tt.want))
			}
			for i, j := range got {
				if j.JobID != tt.want[i] {
					t.Errorf("job[%d] = %s, want %s", i, j.JobID, tt.want[i])
				}
			}
		})
	}
}

func TestStoreUpdateJobStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.SyncJob{JobID: "job-1", Type: jobs.JobTypeSyncNotion, Status: jobs.JobStatusRunning}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "job-1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.JobStatusFailed {
		t.Errorf("Status = %s, want %s", got.Status, jobs.JobStatusFailed)
	}
	if got.Error != "boom" {
		t.Errorf("Error = %q, want %q", got.Error, "boom")
	}

	if err := store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); err == nil {
		t.Fatal("UpdateJobStatus accepted an unknown job ID")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			id := fmt.Sprintf("job-%d", n)
			for k := 0; k < 50; k++ {
				_ = store.SaveJob(ctx, &jobs.SyncJob{JobID: id, Type: jobs.JobTypeSyncNotion})
				_, _ = store.GetJob(ctx, id)
				_, _ = store.ListJobs(ctx, jobs.JobFilter{})
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	got, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(got) != 8 {
		t.Errorf("stored %d jobs, want 8", len(got))
	}
}
