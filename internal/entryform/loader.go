package entryform

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
)

// ErrStaleSnapshot is returned when a fetch resolved after the target loan
// changed; the caller must discard the response without touching form state.
var ErrStaleSnapshot = errors.New("snapshot superseded by a newer loan selection")

// SnapshotSource fetches the authoritative loan snapshot.
type SnapshotSource interface {
	LoanSnapshot(ctx context.Context, loanID uuid.UUID) (*domain.LoanSnapshot, error)
}

// SnapshotLoader serializes snapshot fetches for a form. Each Load supersedes
// any in-flight fetch: the previous context is cancelled and, if its response
// still arrives, it is reported as stale rather than delivered.
type SnapshotLoader struct {
	source SnapshotSource

	mu     sync.Mutex
	seq    uint64
	loanID uuid.UUID
	cancel context.CancelFunc
}

func NewSnapshotLoader(source SnapshotSource) *SnapshotLoader {
	return &SnapshotLoader{source: source}
}

// Load fetches the snapshot for loanID. If the selection changes while the
// fetch is in flight, the superseded call returns ErrStaleSnapshot.
func (l *SnapshotLoader) Load(ctx context.Context, loanID uuid.UUID) (*domain.LoanSnapshot, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.seq++
	seq := l.seq
	l.loanID = loanID
	l.mu.Unlock()

	snap, err := l.source.LoanSnapshot(fetchCtx, loanID)

	l.mu.Lock()
	current := l.seq == seq && l.loanID == loanID
	if current {
		l.cancel = nil
	}
	l.mu.Unlock()
	cancel()

	if !current {
		return nil, ErrStaleSnapshot
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}
