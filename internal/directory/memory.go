package directory

import (
	"context"
	"sync"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

// Memory is an in-process guild directory. Mutators exist so tests can stage
// membership; the court core only sees the Directory interface.
type Memory struct {
	mu      sync.RWMutex
	members map[domain.UserID]Member
	banned  map[domain.UserID]string
}

func NewMemory() *Memory {
	return &Memory{
		members: make(map[domain.UserID]Member),
		banned:  make(map[domain.UserID]string),
	}
}

// Upsert adds or replaces a member record.
func (d *Memory) Upsert(m Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.ID] = m
}

// Remove simulates a member leaving the guild.
func (d *Memory) Remove(id domain.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members, id)
}

func (d *Memory) Member(_ context.Context, id domain.UserID) (Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if m, ok := d.members[id]; ok {
		return m, nil
	}
	return Member{}, ErrNotFound
}

func (d *Memory) Members(_ context.Context) ([]Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Member, 0, len(d.members))
	for _, m := range d.members {
		out = append(out, m)
	}
	return out, nil
}

func (d *Memory) DisplayName(ctx context.Context, id domain.UserID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if m, ok := d.members[id]; ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return id.String()
}

func (d *Memory) Ban(_ context.Context, id domain.UserID, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.banned[id] = reason
	delete(d.members, id)
	return nil
}

func (d *Memory) ReplaceRoles(_ context.Context, id domain.UserID, roles []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[id]
	if !ok {
		return ErrNotFound
	}
	m.Roles = append([]string(nil), roles...)
	d.members[id] = m
	return nil
}

// Banned reports whether the user has been platform-banned. Test helper.
func (d *Memory) Banned(id domain.UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.banned[id]
	return ok
}
