package sync_test

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	syncctl "github.com/yengrand82/Loan-Manager/internal/sync"
)

// fakeStore serves canned collections. The gate, when set, blocks the
// first GetBorrowers call so tests can interleave two refreshes.
type fakeStore struct {
	mu        stdsync.Mutex
	calls     int
	gate      chan struct{}
	borrowers []domain.Borrower
	loans     []domain.Loan
	failWith  error
}

func (f *fakeStore) GetBorrowers(ctx context.Context) ([]domain.Borrower, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	gate := f.gate
	borrowers := f.borrowers
	err := f.failWith
	f.mu.Unlock()

	if first && gate != nil {
		<-gate
	}
	return borrowers, err
}

func (f *fakeStore) GetLoans(ctx context.Context) ([]domain.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loans, f.failWith
}

func (f *fakeStore) GetPayments(ctx context.Context) ([]domain.Payment, error) {
	return nil, nil
}

func (f *fakeStore) GetApplications(ctx context.Context) ([]domain.Application, error) {
	return nil, nil
}

func (f *fakeStore) setBorrowers(bs []domain.Borrower) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.borrowers = bs
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newController(store *fakeStore) *syncctl.Controller {
	return syncctl.NewController(store, observability.NewMetrics(), zap.NewNop())
}

func TestRefresh_ReplacesCollections(t *testing.T) {
	store := &fakeStore{
		borrowers: []domain.Borrower{{ID: "BRW-1", Name: "Ana"}},
		loans:     []domain.Loan{{ID: "LN-1", BorrowerID: "BRW-1"}},
	}
	ctl := newController(store)

	applied, err := ctl.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !applied {
		t.Fatal("expected refresh to be applied")
	}

	snap := ctl.Snapshot()
	if len(snap.Borrowers) != 1 || snap.Borrowers[0].Name != "Ana" {
		t.Errorf("unexpected borrowers: %+v", snap.Borrowers)
	}

	// Replacement, not merge: a shrunken upstream collection shrinks here.
	store.setBorrowers(nil)
	if _, err := ctl.Refresh(context.Background(), false); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if len(ctl.Snapshot().Borrowers) != 0 {
		t.Error("expected borrowers to be replaced with the empty upstream set")
	}
}

func TestRefresh_SuppressedWhileComposing(t *testing.T) {
	store := &fakeStore{borrowers: []domain.Borrower{{ID: "BRW-1"}}}
	ctl := newController(store)

	applied, err := ctl.Refresh(context.Background(), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if applied {
		t.Fatal("expected suppressed refresh")
	}
	if store.callCount() != 0 {
		t.Errorf("expected no store calls while composing, got %d", store.callCount())
	}
	if len(ctl.Snapshot().Borrowers) != 0 {
		t.Error("expected snapshot untouched while composing")
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	store := &fakeStore{borrowers: []domain.Borrower{{ID: "BRW-1"}}}
	ctl := newController(store)

	if _, err := ctl.Refresh(context.Background(), false); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	store.mu.Lock()
	store.failWith = errors.New("endpoint down")
	store.mu.Unlock()

	applied, err := ctl.Refresh(context.Background(), false)
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if applied {
		t.Fatal("expected failed refresh not to apply")
	}
	if len(ctl.Snapshot().Borrowers) != 1 {
		t.Error("expected previous snapshot to survive the failure")
	}
}

func TestRefresh_LastCompletedWins(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{
		gate:      gate,
		borrowers: []domain.Borrower{{ID: "BRW-old"}},
	}
	ctl := newController(store)

	// Refresh A starts first and stalls inside the fetch.
	resultA := make(chan bool)
	go func() {
		applied, _ := ctl.Refresh(context.Background(), false)
		resultA <- applied
	}()
	time.Sleep(20 * time.Millisecond) // let A take its ticket and block

	// Refresh B starts later, sees newer data and completes first.
	store.setBorrowers([]domain.Borrower{{ID: "BRW-new"}})
	applied, err := ctl.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("refresh B failed: %v", err)
	}
	if !applied {
		t.Fatal("expected refresh B to apply")
	}

	// A finishes last with stale data: discarded.
	close(gate)
	if <-resultA {
		t.Error("expected superseded refresh A not to apply")
	}
	snap := ctl.Snapshot()
	if len(snap.Borrowers) != 1 || snap.Borrowers[0].ID != "BRW-new" {
		t.Errorf("expected BRW-new to survive, got %+v", snap.Borrowers)
	}
}

func TestSelectedBorrower_ReResolvedAfterRefresh(t *testing.T) {
	store := &fakeStore{borrowers: []domain.Borrower{{ID: "BRW-1", Name: "Ana"}}}
	ctl := newController(store)
	if _, err := ctl.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	ctl.SelectBorrower("BRW-1")

	// Upstream edit lands in a later snapshot; the selection follows it.
	store.setBorrowers([]domain.Borrower{{ID: "BRW-1", Name: "Ana Maria"}})
	if _, err := ctl.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	got, ok := ctl.Selected()
	if !ok {
		t.Fatal("expected selected borrower to resolve")
	}
	if got.Name != "Ana Maria" {
		t.Errorf("expected re-resolved name 'Ana Maria', got %q", got.Name)
	}

	// Borrower removed upstream: the stale reference does not linger.
	store.setBorrowers(nil)
	if _, err := ctl.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, ok := ctl.Selected(); ok {
		t.Error("expected selection to drop when the borrower vanished")
	}
}

func TestRun_HonorsComposingCallback(t *testing.T) {
	store := &fakeStore{}
	ctl := newController(store)

	var composing stdsync.Mutex
	composingNow := true
	isComposing := func() bool {
		composing.Lock()
		defer composing.Unlock()
		return composingNow
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctl.Run(ctx, 10*time.Millisecond, isComposing)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	if store.callCount() != 0 {
		t.Errorf("expected no fetches while composing, got %d", store.callCount())
	}

	composing.Lock()
	composingNow = false
	composing.Unlock()

	time.Sleep(60 * time.Millisecond)
	if store.callCount() == 0 {
		t.Error("expected fetches to resume after composing ended")
	}

	cancel()
	<-done
}
