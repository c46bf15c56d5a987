package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibedev/vira/internal/domain/entity"
	"github.com/vibedev/vira/internal/domain/repository"
)

func TestQueueRepository_SaveAndListPending(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()

	first := entity.NewQueueItem("C1:100", []byte("a"))
	first.EnqueuedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	second := entity.NewQueueItem("C1:100", []byte("b"))
	second.EnqueuedAt = time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC)

	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	items, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != first.ID {
		t.Error("pending items not in acceptance order")
	}
}

func TestQueueRepository_DuplicateSaveRejected(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()

	item := entity.NewQueueItem("C1:100", []byte("a"))
	if err := repo.Save(ctx, item); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := repo.Save(ctx, item); !errors.Is(err, entity.ErrDuplicateItem) {
		t.Errorf("expected ErrDuplicateItem, got %v", err)
	}
}

func TestQueueRepository_StatusTransitions(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()

	done := entity.NewQueueItem("C1:100", []byte("a"))
	failed := entity.NewQueueItem("C1:100", []byte("b"))
	for _, item := range []*entity.QueueItem{done, failed} {
		if err := repo.Save(ctx, item); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	if err := repo.MarkDone(ctx, done.ID, 1); err != nil {
		t.Fatalf("MarkDone() error: %v", err)
	}
	if err := repo.MarkFailed(ctx, failed.ID, "gave up", 3); err != nil {
		t.Fatalf("MarkFailed() error: %v", err)
	}

	items, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no pending items, got %d", len(items))
	}

	// Terminal states record the attempts spent.
	if got := repo.items[done.ID].Attempts; got != 1 {
		t.Errorf("done attempts = %d, want 1", got)
	}
	if got := repo.items[failed.ID]; got.Attempts != 3 || got.LastError != "gave up" {
		t.Errorf("failed item = attempts %d, last error %q", got.Attempts, got.LastError)
	}

	if err := repo.MarkDone(ctx, "missing", 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueueRepository_SaveStoresCopy(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()

	item := entity.NewQueueItem("C1:100", []byte("a"))
	if err := repo.Save(ctx, item); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Mutating the caller's item must not affect the stored one.
	item.Status = entity.QueueStatusFailed

	items, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(items))
	}
}
