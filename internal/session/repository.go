package session

import (
	"context"
	"sync"

	"support-orchestrator/internal/models"
)

// Repository is the session storage capability. The manager is the
// only writer; backings must be swappable without changing callers.
type Repository interface {
	// Get retrieves a session by ID. Returns nil if the session is
	// not found (not an error).
	Get(ctx context.Context, id string) (*models.Session, error)

	// Put creates or replaces a session.
	Put(ctx context.Context, sess *models.Session) error

	// Delete removes a session entirely. Deleting an unknown id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// IDs lists all stored session ids, for the sweeper.
	IDs(ctx context.Context) ([]string, error)

	// Close releases any resources held by the repository.
	Close() error
}

// InMemoryRepository implements Repository using a mutex-guarded map.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*models.Session),
	}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[id]
	if !exists {
		return nil, nil
	}
	// Copy so callers never mutate stored state without a Put.
	cp := *sess
	cp.Context = append([]models.Turn(nil), sess.Context...)
	cp.ApprovedRefunds = append([]string(nil), sess.ApprovedRefunds...)
	return &cp, nil
}

func (r *InMemoryRepository) Put(ctx context.Context, sess *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *sess
	cp.Context = append([]models.Turn(nil), sess.Context...)
	cp.ApprovedRefunds = append([]string(nil), sess.ApprovedRefunds...)
	r.sessions[sess.ID] = &cp
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRepository) IDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *InMemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = nil
	return nil
}
