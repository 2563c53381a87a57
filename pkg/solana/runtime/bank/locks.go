package bank

import (
	"context"
	"sort"
	"sync"

	"github.com/code-payments/mov-swap/pkg/solana"
)

type lockMode int

const (
	lockModeRead lockMode = iota
	lockModeWrite
)

type lockRequest struct {
	key  string
	mode lockMode
}

type lockState struct {
	readers int
	writer  bool
}

// lockTable grants shared or exclusive locks over account keys. A set of
// requests is granted all at once or not at all, so concurrent transactions
// cannot deadlock on partially held sets.
type lockTable struct {
	mu      sync.Mutex
	held    map[string]*lockState
	release chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		held:    make(map[string]*lockState),
		release: make(chan struct{}),
	}
}

// lockRequestsFor collapses account metas into one request per key, sorted by
// key. A key is locked exclusively if any meta marks it writable.
func lockRequestsFor(instructions []solana.Instruction) []lockRequest {
	modes := make(map[string]lockMode)
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			key := string(meta.PublicKey)

			mode := lockModeRead
			if meta.IsWritable {
				mode = lockModeWrite
			}

			if existing, ok := modes[key]; !ok || mode > existing {
				modes[key] = mode
			}
		}
	}

	requests := make([]lockRequest, 0, len(modes))
	for key, mode := range modes {
		requests = append(requests, lockRequest{key: key, mode: mode})
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].key < requests[j].key
	})
	return requests
}

// acquire blocks until every request can be granted or ctx is done. The
// returned function releases the locks.
func (t *lockTable) acquire(ctx context.Context, requests []lockRequest) (func(), error) {
	for {
		t.mu.Lock()
		if t.available(requests) {
			t.grant(requests)
			t.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					t.revoke(requests)
				})
			}, nil
		}
		wait := t.release
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

func (t *lockTable) available(requests []lockRequest) bool {
	for _, r := range requests {
		state, ok := t.held[r.key]
		if !ok {
			continue
		}

		if state.writer {
			return false
		}
		if r.mode == lockModeWrite && state.readers > 0 {
			return false
		}
	}
	return true
}

func (t *lockTable) grant(requests []lockRequest) {
	for _, r := range requests {
		state, ok := t.held[r.key]
		if !ok {
			state = &lockState{}
			t.held[r.key] = state
		}

		if r.mode == lockModeWrite {
			state.writer = true
		} else {
			state.readers++
		}
	}
}

func (t *lockTable) revoke(requests []lockRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range requests {
		state := t.held[r.key]
		if r.mode == lockModeWrite {
			state.writer = false
		} else {
			state.readers--
		}

		if !state.writer && state.readers == 0 {
			delete(t.held, r.key)
		}
	}

	close(t.release)
	t.release = make(chan struct{})
}
