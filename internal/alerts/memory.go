package alerts

import (
	"context"
	"sync"
	"time"
)

type recordKey struct {
	period    string
	threshold string
}

// MemoryStore keeps claims in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]time.Time)}
}

// TryMarkSent claims the pair under the store mutex.
func (s *MemoryStore) TryMarkSent(_ context.Context, periodKey, thresholdLabel string, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{period: periodKey, threshold: thresholdLabel}
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = sentAt
	return true, nil
}

// Release removes a claim.
func (s *MemoryStore) Release(_ context.Context, periodKey, thresholdLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey{period: periodKey, threshold: thresholdLabel})
	return nil
}

// Records lists every claim for a period key.
func (s *MemoryStore) Records(periodKey string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for key, sentAt := range s.records {
		if key.period == periodKey {
			out = append(out, Record{PeriodKey: key.period, ThresholdLabel: key.threshold, SentAt: sentAt})
		}
	}
	return out
}
