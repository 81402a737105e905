package visits

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/push"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
)

// Reminder periodically claims due visits and pushes a notification to the
// assigned technician.
type Reminder struct {
	logger     *zap.SugaredLogger
	source     DueVisitSource
	dispatcher *push.Dispatcher
	interval   time.Duration
	batch      int
}

func NewReminder(logger *zap.SugaredLogger, source DueVisitSource, dispatcher *push.Dispatcher, interval time.Duration, batch int) *Reminder {
	return &Reminder{
		logger:     logger,
		source:     source,
		dispatcher: dispatcher,
		interval:   interval,
		batch:      batch,
	}
}

// Start ticks until ctx is cancelled. A failing sweep is logged and retried
// on the next tick.
func (r *Reminder) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Errorw("reminder sweep failed", "error", err)
			}
		}
	}
}

// Sweep claims one batch of due visits and notifies their technicians.
func (r *Reminder) Sweep(ctx context.Context) error {
	due, err := r.source.ClaimDue(ctx, time.Now(), r.batch)
	if err != nil {
		return err
	}

	for _, visit := range due {
		result, err := r.dispatcher.Send(ctx, visit.UserID, notificationFor(visit))
		if err != nil {
			r.logger.Errorw("failed to dispatch visit reminder",
				"visitId", visit.VisitID, "userId", visit.UserID, "error", err)
			continue
		}
		r.logger.Infow("visit reminder dispatched",
			"visitId", visit.VisitID, "userId", visit.UserID, "sent", result.Sent, "failed", result.Failed)
	}
	return nil
}

func notificationFor(visit schema.Visit) push.Payload {
	return push.Payload{
		Title: "Visit due: " + visit.ClientName,
		Body:  fmt.Sprintf("%s, scheduled for %s", visit.Address, visit.ScheduledAt.Local().Format("15:04")),
		Tag:   "visit-" + visit.VisitID.String(),
		Data: map[string]string{
			"url":     "/visits/" + visit.VisitID.String(),
			"visitId": visit.VisitID.String(),
		},
	}
}
