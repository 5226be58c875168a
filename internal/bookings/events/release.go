package events

import (
	"context"
	"net/http"

	apperrors "metro/pkg/errors"
	"metro/pkg/kafka"
	"metro/pkg/logger"
	"metro/pkg/model"
)

const EventCapacityRelease = "capacity.release"

// Releaser is the slice of the booking service a release command needs.
type Releaser interface {
	ReleaseCapacity(ctx context.Context, req *model.ReleaseRequest) (*model.ReleaseResult, error)
}

// ReleaseCommandHandler applies {"seats": n} commands to the ledger.
// Malformed payloads and rejected seat counts are not retried.
func ReleaseCommandHandler(releaser Releaser, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var req model.ReleaseRequest
		if err := msg.DecodeValue(&req); err != nil {
			return kafka.NewPermanentError("malformed release command", err)
		}

		if id := msg.GetCorrelationID(); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}

		result, err := releaser.ReleaseCapacity(ctx, &req)
		if err != nil {
			appErr := apperrors.AsAppError(err)
			if appErr.StatusCode() < http.StatusInternalServerError {
				return kafka.NewBusinessError("release command rejected", err)
			}
			return kafka.NewTransientError("release command failed", err)
		}

		log.FromContext(ctx).Info("Release command applied",
			"event_id", msg.GetEventID(),
			"seats", req.Seats,
			"promoted", len(result.Tickets),
			"available", result.Available,
		)
		return nil
	}
}
