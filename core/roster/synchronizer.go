package roster

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/subdesk/subdesk/core"
)

const (
	workloadPath = "/absence/workload"
	historyPath  = "/absence/history"
)

var ErrDuplicateEmail = errors.New("workload contains duplicate teacher emails")

type (
	// Gateway is the slice of the API client the synchronizer needs.
	Gateway interface {
		GetJSON(ctx context.Context, path string, v interface{}) error
	}

	// Synchronizer keeps the workload and history read models consistent with
	// server state. Both collections are fetched together and committed
	// atomically: a refresh either replaces the whole snapshot or leaves the
	// previous one untouched. Overlapping refreshes are tolerated; whichever
	// completes last determines the stored snapshot.
	Synchronizer struct {
		gw  Gateway
		log core.Logger

		mu       sync.Mutex
		snap     Snapshot
		inflight int32
	}
)

func NewSynchronizer(gw Gateway, log core.Logger) *Synchronizer {
	return &Synchronizer{gw: gw, log: log}
}

// Refresh fetches both read models concurrently and commits them as one
// snapshot once both succeed. On any failure the previous snapshot is
// retained. Safe to invoke concurrently; last write wins.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	var (
		workload []WorkloadEntry
		history  []HistoryRecord
		wErr     error
		hErr     error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		workload, wErr = s.fetchWorkload(ctx)
	}()
	go func() {
		defer wg.Done()
		history, hErr = s.fetchHistory(ctx)
	}()
	wg.Wait()

	if wErr != nil {
		return errors.Wrap(wErr, "fetching workload")
	}
	if hErr != nil {
		return errors.Wrap(hErr, "fetching history")
	}

	s.mu.Lock()
	s.snap = Snapshot{Workload: workload, History: history, FetchedAt: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

// Snapshot returns the latest committed snapshot.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// TeacherNames exposes the current workload names for the absence form.
func (s *Synchronizer) TeacherNames() []string {
	return s.Snapshot().TeacherNames()
}

// Busy reports whether at least one refresh is in flight.
func (s *Synchronizer) Busy() bool {
	return atomic.LoadInt32(&s.inflight) > 0
}

// Reset drops the snapshot. Called on logout and session invalidation so no
// stale data outlives the session.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.snap = Snapshot{}
	s.mu.Unlock()
}

func (s *Synchronizer) fetchWorkload(ctx context.Context) ([]WorkloadEntry, error) {
	var workload []WorkloadEntry
	if err := s.gw.GetJSON(ctx, workloadPath, &workload); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(workload))
	for _, entry := range workload {
		if _, dup := seen[entry.Email]; dup {
			return nil, errors.Wrapf(ErrDuplicateEmail, "email %q", entry.Email)
		}
		seen[entry.Email] = struct{}{}
	}
	return workload, nil
}

func (s *Synchronizer) fetchHistory(ctx context.Context) ([]HistoryRecord, error) {
	var history []HistoryRecord
	if err := s.gw.GetJSON(ctx, historyPath, &history); err != nil {
		return nil, err
	}
	return history, nil
}
