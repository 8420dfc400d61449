// Package core implements the kitty lifecycle and marketplace engine: the
// breeding and cooldown state machine, dutch auctions for sales and siring,
// gen0 price discovery and the operator controls around them. Every mutating
// operation runs as one store transaction and either commits completely or
// leaves the ledger untouched.
package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/pkg/domain"
)

// Service exposes the engine operations over a persistent ledger.
type Service struct {
	store   domain.PersistentStore
	cfg     Config
	genes   GeneScience
	entropy EntropySource
	logger  *zap.Logger
	metrics MetricsRecorder
	sinks   []EventSink
}

// Option customises a Service.
type Option func(*Service)

// WithConfig replaces the default engine parameters.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithLogger sets the structured logger. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithGeneScience replaces the gene mixing collaborator.
func WithGeneScience(genes GeneScience) Option {
	return func(s *Service) {
		if genes != nil {
			s.genes = genes
		}
	}
}

// WithEntropy replaces the seed source handed to gene mixing.
func WithEntropy(entropy EntropySource) Option {
	return func(s *Service) {
		if entropy != nil {
			s.entropy = entropy
		}
	}
}

// WithEventSink registers a sink that receives committed events in sequence order.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) (*Service, error) {
	s := &Service{
		store:   store,
		cfg:     DefaultConfig(),
		genes:   AveragingGeneScience{},
		entropy: KeccakEntropy{},
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewInMemoryService creates a service over a fresh in-memory store evaluating engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) (*Service, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Config returns the static engine parameters.
func (s *Service) Config() Config { return s.cfg }

// run executes fn as one unit of work and reports the outcome.
func (s *Service) run(ctx context.Context, op string, fn func(tx domain.Transaction) error) error {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logFailure(op, err)
		return err
	}
	for _, v := range res.Violations {
		s.logger.Warn("rule reported violation",
			zap.String("op", op),
			zap.String("rule", v.Rule),
			zap.String("severity", string(v.Severity)),
			zap.String("entity", string(v.Entity)),
			zap.String("entity_id", v.EntityID),
			zap.String("message", v.Message),
		)
	}
	s.logger.Debug("operation committed", zap.String("op", op), zap.Int("events", len(res.Events)))
	s.publish(ctx, res.Events)
	return nil
}

func (s *Service) read(ctx context.Context, fn func(view domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}

func (s *Service) logFailure(op string, err error) {
	code := domain.CodeOf(err)
	fields := []zap.Field{zap.String("op", op), zap.String("code", string(code)), zap.Error(err)}
	switch code {
	case domain.CodeInvariant:
		s.logger.Error("invariant violation", fields...)
	case "":
		s.logger.Error("operation failed", fields...)
	default:
		s.logger.Warn("operation rejected", fields...)
	}
}

func (s *Service) publish(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	for _, sink := range s.sinks {
		for _, ev := range events {
			sink.HandleEvent(ctx, ev)
		}
	}
}

func requireNotPaused(tx domain.Transaction, op string) error {
	if tx.System().Paused {
		return domain.Failf(domain.ErrSystemPaused, op, "system is paused")
	}
	return nil
}

func requireRole(tx domain.Transaction, op string, caller domain.Address, roles ...domain.Role) error {
	current := tx.System().Roles
	for _, role := range roles {
		if current.Has(role, caller) {
			return nil
		}
	}
	return domain.Failf(domain.ErrNotAuthorized, op, "%q does not hold %v", caller, roles)
}

func requireCLevel(tx domain.Transaction, op string, caller domain.Address) error {
	return requireRole(tx, op, caller, domain.RoleCEO, domain.RoleCFO, domain.RoleCOO)
}

func loadKitty(tx domain.Transaction, id domain.KittyID) (domain.Kitty, error) {
	k, ok := tx.FindKitty(id)
	if !ok {
		return domain.Kitty{}, domain.KittyNotFound(id)
	}
	return k, nil
}

func requireOwner(tx domain.Transaction, op string, id domain.KittyID, caller domain.Address) error {
	owner, ok := tx.OwnerOf(id)
	if !ok {
		return domain.KittyNotFound(id)
	}
	if owner != caller || caller.IsZero() || domain.IsEscrowAddress(caller) {
		return domain.Failf(domain.ErrNotOwnerOrApproved, op, "%q does not own kitty %d", caller, id)
	}
	return nil
}

func addAmounts(op string, a, b domain.Amount) (domain.Amount, error) {
	if a > ^domain.Amount(0)-b {
		return 0, domain.Failf(domain.ErrInvalidArgument, op, "amount overflow")
	}
	return a + b, nil
}
