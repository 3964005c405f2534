package viewstate

import (
	"context"
	"sync"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Memory backs viewer state when Redis is not configured. State does not
// survive restarts.
type Memory struct {
	mu    sync.RWMutex
	views map[domain.UserID]domain.CaseID
}

func NewMemory() *Memory {
	return &Memory{views: make(map[domain.UserID]domain.CaseID)}
}

func (s *Memory) Set(_ context.Context, user domain.UserID, caseID domain.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caseID.IsZero() {
		delete(s.views, user)
		return nil
	}
	s.views[user] = caseID
	return nil
}

func (s *Memory) Get(_ context.Context, user domain.UserID) (domain.CaseID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views[user], nil
}
