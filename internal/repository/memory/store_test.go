package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
)

func TestAdvisoryLockNeedsTransaction(t *testing.T) {
	tx := NewStore().Transactor()
	if err := tx.AdvisoryLock(context.Background(), "k"); !errors.Is(err, repository.ErrNoTransaction) {
		t.Fatalf("expected ErrNoTransaction, got %v", err)
	}
}

func TestAdvisoryLockSerializesTransactions(t *testing.T) {
	tx := NewStore().Transactor()
	ctx := context.Background()

	var (
		mu     sync.Mutex
		inside int
		peak   int
		wg     sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
				if err := tx.AdvisoryLock(ctx, "technician:1"); err != nil {
					return err
				}
				// re-entrant within the same transaction
				if err := tx.AdvisoryLock(ctx, "technician:1"); err != nil {
					return err
				}
				mu.Lock()
				inside++
				if inside > peak {
					peak = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("transaction: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Fatalf("expected one holder at a time, saw %d", peak)
	}
}

func TestAdvisoryLockHonoursContext(t *testing.T) {
	tx := NewStore().Transactor()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			if err := tx.AdvisoryLock(ctx, "year:2025"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return tx.AdvisoryLock(ctx, "year:2025")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWorkOrderSequenceIsUnique(t *testing.T) {
	store := NewStore()
	repo := store.WorkOrders()
	ctx := context.Background()

	first := &model.WorkOrder{Number: "0001-2025", NumberYear: 2025, NumberSequence: 1}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &model.WorkOrder{Number: "0001-2025", NumberYear: 2025, NumberSequence: 1}
	err := repo.Create(ctx, dup)
	constraint, ok := repository.DuplicateConstraint(err)
	if !ok || constraint != repository.ConstraintWorkOrderSequence {
		t.Fatalf("expected sequence violation, got %v", err)
	}

	next, err := repo.NextSequence(ctx, 2025)
	if err != nil || next != 2 {
		t.Fatalf("NextSequence = %d, %v", next, err)
	}
	next, err = repo.NextSequence(ctx, 2026)
	if err != nil || next != 1 {
		t.Fatalf("NextSequence(2026) = %d, %v", next, err)
	}
}

func TestStoredValuesAreCopies(t *testing.T) {
	store := NewStore()
	repo := store.WorkOrders()
	ctx := context.Background()

	reason := "redo"
	wo := &model.WorkOrder{Number: "0001-2025", NumberYear: 2025, NumberSequence: 1, ReasonRejection: &reason}
	if err := repo.Create(ctx, wo); err != nil {
		t.Fatalf("Create: %v", err)
	}
	reason = "mutated"

	got, err := repo.GetByID(ctx, wo.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if *got.ReasonRejection != "redo" {
		t.Fatalf("stored value changed through caller pointer: %q", *got.ReasonRejection)
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTemplateSearchIsCaseInsensitive(t *testing.T) {
	repo := NewStore().Templates()
	ctx := context.Background()

	for i, desc := range []string{"Check breaker panel", "Photograph meter"} {
		tpl := &model.TaskTemplate{ServiceType: model.ServiceTypeInspection, Ordering: i + 1, Description: desc}
		if err := repo.Create(ctx, tpl); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.Search(ctx, "BREAKER")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Description != "Check breaker panel" {
		t.Fatalf("unexpected search result %+v", got)
	}

	byType, err := repo.Search(ctx, "inspect")
	if err != nil || len(byType) != 2 {
		t.Fatalf("expected service type match, got %d %v", len(byType), err)
	}
}

func TestFailedTransactionRestoresRows(t *testing.T) {
	store := NewStore()
	tx := store.Transactor()
	repo := store.WorkOrders()
	ctx := context.Background()

	kept := &model.WorkOrder{Number: "0001-2025", NumberYear: 2025, NumberSequence: 1, Description: "before"}
	if err := repo.Create(ctx, kept); err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	var added uuid.UUID
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		changed := *kept
		changed.Description = "after"
		if err := repo.Update(ctx, &changed); err != nil {
			return err
		}
		extra := &model.WorkOrder{Number: "0002-2025", NumberYear: 2025, NumberSequence: 2}
		if err := repo.Create(ctx, extra); err != nil {
			return err
		}
		added = extra.ID
		entry := model.NewAuditEntry("tester", model.AuditActionCreate, model.AuditModelWorkOrder, extra.ID.String(), nil, time.Now())
		if err := store.AuditLogs().Append(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := repo.GetByID(ctx, kept.ID)
	if err != nil || got.Description != "before" {
		t.Fatalf("update not undone: %+v, %v", got, err)
	}
	if _, err := repo.GetByID(ctx, added); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("insert not undone: %v", err)
	}
	if logs, _ := store.AuditLogs().List(ctx, repository.AuditLogFilter{}); len(logs) != 0 {
		t.Fatalf("audit append not undone: %d entries", len(logs))
	}

	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		changed := *kept
		changed.Description = "committed"
		return repo.Update(ctx, &changed)
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, _ := repo.GetByID(ctx, kept.ID); got.Description != "committed" {
		t.Fatalf("committed update lost: %q", got.Description)
	}
}
