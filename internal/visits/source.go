// Package visits feeds the push dispatcher with due visits. It owns only
// the sliver of the scheduling domain the notification pipeline needs; the
// visit CRUD lives in the main application backend.
package visits

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/db"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DueVisitSource claims visits whose reminder is due. Claiming must be
// atomic so a restarted worker never notifies twice for the same visit.
type DueVisitSource interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]schema.Visit, error)
}

// PostgresVisitSource claims due visits from the visits table.
type PostgresVisitSource struct {
	logger *zap.SugaredLogger
	db     *db.DB
}

func NewPostgresVisitSource(logger *zap.SugaredLogger, database *db.DB) *PostgresVisitSource {
	return &PostgresVisitSource{logger: logger, db: database}
}

// ClaimDue flips reminder_sent on a batch of due visits and returns them.
// SKIP LOCKED keeps concurrent workers from claiming the same rows.
func (s *PostgresVisitSource) ClaimDue(ctx context.Context, now time.Time, limit int) ([]schema.Visit, error) {
	query, args, _ := psql.Update("visits").
		Set("reminder_sent", true).
		Where(sq.Expr(`visit_id IN (
			SELECT visit_id FROM visits
			WHERE reminder_sent = false AND status = 'scheduled' AND scheduled_at <= ?
			ORDER BY scheduled_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED)`, now, limit)).
		Suffix("RETURNING visit_id, user_id, client_name, address, scheduled_at, status, reminder_sent").
		ToSql()

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Errorw("error claiming due visits", "error", err)
		return nil, fmt.Errorf("claim due visits: %w", err)
	}

	claimed, err := pgx.CollectRows(rows, pgx.RowToStructByName[schema.Visit])
	if err != nil {
		s.logger.Errorw("error collecting due visits", "error", err)
		return nil, fmt.Errorf("collect due visits: %w", err)
	}
	return claimed, nil
}
