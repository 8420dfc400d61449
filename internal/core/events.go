package core

import (
	"context"

	"go.uber.org/zap"

	"kittycore/pkg/domain"
)

// EventSink receives events after the transaction that produced them commits.
// Sinks run on the caller's goroutine and must not block for long.
type EventSink interface {
	HandleEvent(ctx context.Context, ev domain.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev domain.Event)

// HandleEvent implements EventSink.
func (f EventSinkFunc) HandleEvent(ctx context.Context, ev domain.Event) { f(ctx, ev) }

// LogEventSink writes every committed event to logger at info level.
func LogEventSink(logger *zap.Logger) EventSink {
	return EventSinkFunc(func(_ context.Context, ev domain.Event) {
		fields := []zap.Field{
			zap.String("event_id", ev.ID),
			zap.Uint64("sequence", ev.Sequence),
			zap.String("kind", string(ev.Kind)),
		}
		if ev.KittyID != 0 {
			fields = append(fields, zap.Uint64("kitty_id", uint64(ev.KittyID)))
		}
		if ev.MatronID != 0 {
			fields = append(fields, zap.Uint64("matron_id", uint64(ev.MatronID)))
		}
		if ev.SireID != 0 {
			fields = append(fields, zap.Uint64("sire_id", uint64(ev.SireID)))
		}
		if ev.AuctionKind != "" {
			fields = append(fields, zap.String("auction_kind", string(ev.AuctionKind)))
		}
		if ev.Price != 0 {
			fields = append(fields, zap.Uint64("price", uint64(ev.Price)))
		}
		logger.Info("event", fields...)
	})
}
