// Package fault implements the fault sink contract of spec.md §6:
// Raise/Clear against the single fault id this engine emits,
// `DC_SUBCLOUD_RESOURCE_OUT_OF_SYNC`, raised when a subcloud endpoint
// goes out-of-sync and cleared when it converges back to in-sync.
//
// Grounded on the teacher's pkg/alerting/heartbeat/opsgenie.go: the same
// opsgenie-go-sdk-v2/client construction (API key, retry count, log
// level) generalized from a heartbeat client to an alert client, since
// this fault is a level-triggered condition rather than a liveness ping.
package fault

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/opsgenie/opsgenie-go-sdk-v2/alert"
	"github.com/opsgenie/opsgenie-go-sdk-v2/client"
	"github.com/sirupsen/logrus"
)

// ResourceOutOfSync is the only fault id this engine emits (spec.md §6).
const ResourceOutOfSync = "DC_SUBCLOUD_RESOURCE_OUT_OF_SYNC"

// Sink raises and clears faults against entities, both idempotently.
// Raising an already-open fault or clearing an already-closed one is not
// an error.
type Sink interface {
	Raise(ctx context.Context, entityID, faultID string) error
	Clear(ctx context.Context, entityID, faultID string) error
}

// OpsgenieSink backs Sink with an Opsgenie alert lifecycle: Raise opens
// (or refreshes) an alert aliased to (entityID, faultID); Clear closes it.
type OpsgenieSink struct {
	alerts *alert.Client
	logger logr.Logger
}

// NewOpsgenieSink builds an OpsgenieSink from an API key, matching the
// teacher's heartbeat-client construction.
func NewOpsgenieSink(apiKey string, logger logr.Logger) (*OpsgenieSink, error) {
	cfg := &client.Config{
		ApiKey:         apiKey,
		OpsGenieAPIURL: client.API_URL,
		RetryCount:     1,
		LogLevel:       logrus.FatalLevel,
	}
	c, err := alert.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("fault: create alert client: %w", err)
	}
	return &OpsgenieSink{alerts: c, logger: logger.WithName("fault")}, nil
}

func alias(entityID, faultID string) string {
	return fmt.Sprintf("%s:%s", entityID, faultID)
}

// Raise opens (or refreshes, if already open) the alert for
// (entityID, faultID).
func (s *OpsgenieSink) Raise(ctx context.Context, entityID, faultID string) error {
	al := alias(entityID, faultID)
	_, err := s.alerts.Create(ctx, &alert.CreateAlertRequest{
		Message:  fmt.Sprintf("%s: %s", faultID, entityID),
		Alias:    al,
		Entity:   entityID,
		Priority: alert.P3,
	})
	if err != nil {
		return fmt.Errorf("fault: raise %s: %w", al, err)
	}
	s.logger.Info("fault raised", "entity", entityID, "fault", faultID)
	return nil
}

// Clear closes the alert for (entityID, faultID); closing an alert that
// does not exist is treated as success.
func (s *OpsgenieSink) Clear(ctx context.Context, entityID, faultID string) error {
	al := alias(entityID, faultID)
	_, err := s.alerts.Close(ctx, &alert.CloseAlertRequest{
		IdentifierType:  alert.ALIAS,
		IdentifierValue: al,
	})
	apiErr, ok := err.(*client.ApiError)
	if ok && apiErr.StatusCode == 404 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fault: clear %s: %w", al, err)
	}
	s.logger.Info("fault cleared", "entity", entityID, "fault", faultID)
	return nil
}
