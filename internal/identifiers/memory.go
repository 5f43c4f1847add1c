package identifiers

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store for tests, the smoke CLI, and DSN-less startup.
type InMemory struct {
	mu      sync.RWMutex
	clients map[string]ClientRecord
	orgIDs  map[string]OrgIdentifier
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		clients: make(map[string]ClientRecord),
		orgIDs:  make(map[string]OrgIdentifier),
	}
}

// PutClient seeds or replaces a client record.
func (s *InMemory) PutClient(rec ClientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[rec.ClientID] = rec
}

func (s *InMemory) GetClient(ctx context.Context, clientID string) (ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.clients[clientID]
	if !ok {
		return ClientRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *InMemory) CreateOrgIdentifier(ctx context.Context, o OrgIdentifier) (OrgIdentifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgIDs[o.ID] = o
	return o, nil
}

func (s *InMemory) GetOrgIdentifier(ctx context.Context, id string) (OrgIdentifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgIDs[id]
	if !ok {
		return OrgIdentifier{}, ErrNotFound
	}
	return o, nil
}

func (s *InMemory) ListOrgIdentifiers(ctx context.Context, programID string) ([]OrgIdentifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []OrgIdentifier
	for _, o := range s.orgIDs {
		if programID != "" && o.ProgramID != programID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *InMemory) DeactivateOrgIdentifier(ctx context.Context, id string) (OrgIdentifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgIDs[id]
	if !ok {
		return OrgIdentifier{}, ErrNotFound
	}
	o.Active = false
	s.orgIDs[id] = o
	return o, nil
}

func (s *InMemory) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, o := range s.orgIDs {
		if o.Active && o.Expired(now) {
			o.Active = false
			s.orgIDs[id] = o
			n++
		}
	}
	return n, nil
}
