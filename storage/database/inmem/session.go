package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) GetActiveSession(_ context.Context, _ ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, s := range repo.db.sessions {
		if s.IsActive {
			return s, nil
		}
	}
	return session.Session{}, core.ErrNoActiveSession
}

func (repo *sessionRepository) GetSessionByID(_ context.Context, id int64, _ ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		return s, nil
	}
	return session.Session{}, core.NewNotFoundError("session", id)
}

func (repo *sessionRepository) QuerySessions(_ context.Context, _ ...core.DBExecutor) ([]session.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]session.Session, 0, len(repo.db.sessions))
	for _, s := range repo.db.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartDate.Equal(sessions[j].StartDate) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].StartDate.After(sessions[j].StartDate)
	})
	return sessions, nil
}

func (repo *sessionRepository) CreateSession(_ context.Context, s session.Session, _ ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = repo.db.nextPK()
	s.CreatedAt = nowFunc().UTC()
	repo.db.sessions[s.ID] = s
	return s, nil
}

func (repo *sessionRepository) ActivateSession(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return core.NewNotFoundError("session", id)
	}
	for sid, s := range repo.db.sessions {
		s.IsActive = sid == id
		repo.db.sessions[sid] = s
	}
	return nil
}
