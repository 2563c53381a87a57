package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts"
)

type store struct {
	mu      sync.Mutex
	records map[string]*accounts.Record
}

func New() accounts.Store {
	return &store{
		records: make(map[string]*accounts.Record),
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make(map[string]*accounts.Record)
	s.mu.Unlock()
}

func (s *store) Get(_ context.Context, address string) (*accounts.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetMany(_ context.Context, addresses ...string) ([]*accounts.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*accounts.Record, 0, len(addresses))
	for _, address := range addresses {
		item, ok := s.records[address]
		if !ok {
			continue
		}

		cloned := item.Clone()
		res = append(res, &cloned)
	}

	return res, nil
}

func (s *store) Save(_ context.Context, records ...*accounts.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, record := range records {
		record.UpdatedAt = now

		cloned := record.Clone()
		s.records[record.Address] = &cloned
	}

	return nil
}
