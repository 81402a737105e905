package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/config"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/store"
)

// ErrNotConfigured is returned when the VAPID key pair is absent. Operator
// action is required; there is nothing a caller can retry.
var ErrNotConfigured = errors.New("push: VAPID keys are not configured")

// Result aggregates one send's outcomes. Sent + Failed == Total always
// holds.
type Result struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Total   int  `json:"total"`
}

// Dispatcher fans a notification out to matching subscriptions.
type Dispatcher struct {
	logger  *zap.SugaredLogger
	store   store.SubscriptionStore
	gateway Gateway
	vapid   config.VAPIDConfig
}

func NewDispatcher(logger *zap.SugaredLogger, subs store.SubscriptionStore, gateway Gateway, vapid config.VAPIDConfig) *Dispatcher {
	return &Dispatcher{
		logger:  logger,
		store:   subs,
		gateway: gateway,
		vapid:   vapid,
	}
}

// Send delivers payload to every subscription of userID, or to every stored
// subscription when userID is empty. Sends are issued concurrently and
// joined only after every outcome is known; one dead endpoint never blocks
// or aborts delivery to the rest. Endpoints the gateway reports permanently
// gone are pruned from the store.
func (d *Dispatcher) Send(ctx context.Context, userID string, payload Payload) (*Result, error) {
	if !d.vapid.Configured() {
		return nil, ErrNotConfigured
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	records, err := d.loadRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := len(records)
	if total == 0 {
		// Nobody to notify is a normal outcome, not an error.
		return &Result{Success: true}, nil
	}

	message, err := json.Marshal(payload.normalized(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	outcomes := make([]error, total)
	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = d.gateway.Send(ctx, &records[i], message)
		}(i)
	}
	wg.Wait()

	result := &Result{Success: true, Total: total}
	for i, sendErr := range outcomes {
		if sendErr == nil {
			result.Sent++
			continue
		}
		result.Failed++

		endpoint := records[i].Endpoint
		if errors.Is(sendErr, ErrGone) {
			d.logger.Infow("pruning dead subscription", "endpoint", endpoint)
			if delErr := d.store.DeleteByEndpoint(ctx, endpoint); delErr != nil {
				d.logger.Errorw("failed to prune subscription", "endpoint", endpoint, "error", delErr)
			}
			continue
		}
		// Transient failures are counted and left for a later trigger;
		// this component does not retry.
		d.logger.Warnw("push delivery failed", "endpoint", endpoint, "error", sendErr)
	}

	d.logger.Infow("push fan-out complete",
		"userId", userID, "sent", result.Sent, "failed", result.Failed, "total", result.Total)
	return result, nil
}

func (d *Dispatcher) loadRecords(ctx context.Context, userID string) ([]schema.PushSubscription, error) {
	if userID == "" {
		return d.store.All(ctx)
	}
	return d.store.ByUser(ctx, userID)
}
