package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/db"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore stores subscriptions in the push_subscriptions table.
type PostgresStore struct {
	logger *zap.SugaredLogger
	db     *db.DB
}

func NewPostgresStore(logger *zap.SugaredLogger, database *db.DB) *PostgresStore {
	return &PostgresStore{logger: logger, db: database}
}

// Upsert inserts or refreshes the record for (userID, endpoint) in one
// statement. The ON CONFLICT clause closes the race two concurrent
// first-time subscriptions from the same device would otherwise have.
func (s *PostgresStore) Upsert(ctx context.Context, userID, endpoint, p256dh, auth string) (*schema.PushSubscription, error) {
	query, args, _ := psql.Insert("push_subscriptions").
		Columns("subscription_id", "user_id", "endpoint", "p256dh", "auth").
		Values(uuid.New(), userID, endpoint, p256dh, auth).
		Suffix(`ON CONFLICT (user_id, endpoint) DO UPDATE
			SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, updated_at = now()
			RETURNING subscription_id, user_id, endpoint, p256dh, auth, created_at, updated_at`).
		ToSql()

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Errorw("error upserting push subscription", "error", err)
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	sub, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[schema.PushSubscription])
	if err != nil {
		s.logger.Errorw("error collecting upserted subscription", "error", err)
		return nil, fmt.Errorf("collect subscription: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) ByUser(ctx context.Context, userID string) ([]schema.PushSubscription, error) {
	query, args, _ := psql.
		Select("*").
		From("push_subscriptions").
		Where("user_id = ?", userID).
		ToSql()
	return s.collect(ctx, query, args)
}

func (s *PostgresStore) All(ctx context.Context) ([]schema.PushSubscription, error) {
	query, args, _ := psql.
		Select("*").
		From("push_subscriptions").
		ToSql()
	return s.collect(ctx, query, args)
}

func (s *PostgresStore) collect(ctx context.Context, query string, args []interface{}) ([]schema.PushSubscription, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Errorw("error querying push subscriptions", "error", err)
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	subs, err := pgx.CollectRows(rows, pgx.RowToStructByName[schema.PushSubscription])
	if err != nil {
		s.logger.Errorw("error collecting push subscription rows", "error", err)
		return nil, fmt.Errorf("collect subscriptions: %w", err)
	}
	return subs, nil
}

func (s *PostgresStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	query, args, _ := psql.Delete("push_subscriptions").
		Where("endpoint = ?", endpoint).
		ToSql()

	if _, err := s.db.Pool.Exec(ctx, query, args...); err != nil {
		s.logger.Errorw("error deleting push subscription", "endpoint", endpoint, "error", err)
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
