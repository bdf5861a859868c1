package control

import (
	"errors"
	"testing"

	"github.com/lshknn/dlsh/pkg/eval"
	"github.com/lshknn/dlsh/pkg/options"
)

func TestRegistrySubmitAssignsIncrementingIDs(t *testing.T) {
	r := NewRegistry()
	j1 := r.Submit(options.Default())
	j2 := r.Submit(options.Default())
	if j1.ID == j2.ID {
		t.Fatalf("expected distinct job IDs, got %q twice", j1.ID)
	}
	if j1.Status != Pending || j2.Status != Pending {
		t.Fatalf("new jobs must start Pending, got %v, %v", j1.Status, j2.Status)
	}
}

func TestRegistryLifecycleTransitions(t *testing.T) {
	r := NewRegistry()
	job := r.Submit(options.Default())

	r.SetRunning(job.ID)
	got, _ := r.Get(job.ID)
	if got.Status != Running {
		t.Fatalf("status = %v, want Running", got.Status)
	}

	result := &eval.Result{Recall: 99.5}
	r.SetSucceeded(job.ID, result)
	got, _ = r.Get(job.ID)
	if got.Status != Succeeded || got.Result.Recall != 99.5 {
		t.Fatalf("unexpected job after success: %+v", got)
	}
}

func TestRegistrySetFailedRecordsError(t *testing.T) {
	r := NewRegistry()
	job := r.Submit(options.Default())
	r.SetFailed(job.ID, errors.New("shard read failed"))

	got, _ := r.Get(job.ID)
	if got.Status != Failed || got.Error != "shard read failed" {
		t.Fatalf("unexpected job after failure: %+v", got)
	}
}

func TestRegistryCancelRejectsFinishedJobs(t *testing.T) {
	r := NewRegistry()
	job := r.Submit(options.Default())
	r.SetSucceeded(job.ID, &eval.Result{})

	if r.Cancel(job.ID) {
		t.Fatal("expected Cancel to reject an already-succeeded job")
	}
}

func TestRegistryCancelPendingJob(t *testing.T) {
	r := NewRegistry()
	job := r.Submit(options.Default())
	if !r.Cancel(job.ID) {
		t.Fatal("expected Cancel to accept a pending job")
	}
	got, _ := r.Get(job.ID)
	if got.Status != Cancelled {
		t.Fatalf("status = %v, want Cancelled", got.Status)
	}
}

func TestRegistryListOrdersNewestFirst(t *testing.T) {
	r := NewRegistry()
	first := r.Submit(options.Default())
	second := r.Submit(options.Default())

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest-first order, got %q then %q", list[0].ID, list[1].ID)
	}
}
