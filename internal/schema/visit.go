package schema

import (
	"time"

	"github.com/google/uuid"
)

// CREATE TABLE "visits" (
// "visit_id" uuid NOT NULL,
// "user_id" character varying(64) NOT NULL,
// "client_name" character varying(128) NOT NULL,
// "address" character varying(256) NOT NULL,
// "scheduled_at" timestamptz NOT NULL,
// "status" character varying(16) NOT NULL DEFAULT 'scheduled',
// "reminder_sent" boolean NOT NULL DEFAULT false,
// PRIMARY KEY ("visit_id"));

// Visit is the slice of the scheduling domain the push pipeline needs:
// enough to notify the assigned technician that a visit is due. Visit CRUD
// itself lives outside this service.
type Visit struct {
	VisitID      uuid.UUID `db:"visit_id"`
	UserID       string    `db:"user_id"`
	ClientName   string    `db:"client_name"`
	Address      string    `db:"address"`
	ScheduledAt  time.Time `db:"scheduled_at"`
	Status       string    `db:"status"`
	ReminderSent bool      `db:"reminder_sent"`
}
