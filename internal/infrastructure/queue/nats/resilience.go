package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/infrastructure/resilience"
)

// transientConnErrs are the client errors worth retrying: the connection
// layer may recover on its own while the ingestion event waits.
var transientConnErrs = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

func classifyQueueError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isTransientConn(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func isTransientConn(err error) bool {
	for _, target := range transientConnErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapTemporary marks retryable queue failures as the domain's temporary
// error so callers can tell them apart from permanent ones.
func wrapTemporary(op string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyQueueError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return err
}
