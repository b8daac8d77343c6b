package repository

import (
	"context"

	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

// SessionRepository - хранилище итогов сессий и их трассы действий
type SessionRepository interface {
	// Save пишет запись и трассу атомарно; повторный ID дает ErrDuplicateSession
	Save(ctx context.Context, rec *domain.SessionRecord, trace []domain.TraceEntry) error
	GetByID(ctx context.Context, id string) (*domain.SessionRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.SessionRecord, error)
	ListByScenario(ctx context.Context, scenario string, limit int) ([]domain.SessionRecord, error)
	Trace(ctx context.Context, sessionID string) ([]domain.TraceEntry, error)
	CountByStatus(ctx context.Context) (map[domain.SessionStatus]int, error)
}
