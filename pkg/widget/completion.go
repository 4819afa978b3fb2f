package widget

import "sync"

// MemoryCompletionStore keeps the capture-completed flags in memory,
// keyed the same way the browser widget keys its session storage.
type MemoryCompletionStore struct {
	mu sync.RWMutex
	m  map[string]Profile
}

func NewMemoryCompletionStore() *MemoryCompletionStore {
	return &MemoryCompletionStore{m: make(map[string]Profile)}
}

func key(companyID string) string {
	return "lead_data_" + companyID
}

func (s *MemoryCompletionStore) Completed(companyID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[key(companyID)]
	return ok
}

func (s *MemoryCompletionStore) MarkCompleted(companyID string, profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(companyID)] = profile
}

// CompletedProfile returns the stored contact data for a company, if
// capture already ran in this session.
func (s *MemoryCompletionStore) CompletedProfile(companyID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[key(companyID)]
	return p, ok
}
