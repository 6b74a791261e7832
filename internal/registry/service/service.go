package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"namereg/internal/registry/hooks"
	"namereg/internal/registry/metrics"
	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
	"namereg/pkg/platform/sentinel"
	"namereg/pkg/requestcontext"
)

// Store is the domain tree, name index and operator relation. Writes made
// with the context passed to RunInTx's callback are discarded if it fails.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindByID(ctx context.Context, domainID id.DomainID) (*models.Domain, error)
	FindIDByName(ctx context.Context, name string) (id.DomainID, error)
	Insert(ctx context.Context, d *models.Domain) (id.DomainID, error)
	Update(ctx context.Context, d *models.Domain) error
	CountByOwner(ctx context.Context, owner id.Address) (int, error)
	OperatorApproval(ctx context.Context, owner, operator id.Address) (bool, error)
	SetOperatorApproval(ctx context.Context, owner, operator id.Address, approved bool) error
}

// EventPublisher records lifecycle events. It is called inside the
// operation's transaction; an error aborts the operation.
type EventPublisher interface {
	Emit(ctx context.Context, event models.Event) error
}

// NameCache is an optional read-through cache for IdOf.
type NameCache interface {
	Get(ctx context.Context, name string) (id.DomainID, bool, error)
	Set(ctx context.Context, name string, domainID id.DomainID) error
}

// Service is the registry. Mutations are serialized: each runs to completion
// inside one store transaction before the next starts, and reads never
// observe a partially applied operation.
//
// Hooks and transfer receivers are invoked while the write lock is held and
// must not call back into the Service.
type Service struct {
	mu             sync.RWMutex
	store          Store
	events         EventPublisher
	domainDuration time.Duration

	logger    *slog.Logger
	metrics   *metrics.Metrics
	hook      hooks.RecordHook
	receivers *hooks.Receivers
	names     NameCache
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRecordHook(hook hooks.RecordHook) Option {
	return func(s *Service) {
		s.hook = hook
	}
}

func WithReceivers(receivers *hooks.Receivers) Option {
	return func(s *Service) {
		s.receivers = receivers
	}
}

func WithNameCache(cache NameCache) Option {
	return func(s *Service) {
		s.names = cache
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service. domainDuration is the lease granted to new and
// refreshed private domains and never changes afterwards; zero makes private
// domains reclaimable immediately.
func New(store Store, events EventPublisher, domainDuration time.Duration, opts ...Option) *Service {
	s := &Service{
		store:          store,
		events:         events,
		domainDuration: domainDuration,
		logger:         slog.Default(),
		tracer:         otel.Tracer("namereg/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DomainDuration returns the configured lease length.
func (s *Service) DomainDuration() time.Duration {
	return s.domainDuration
}

// mutate runs fn under the write lock in one store transaction and records
// the outcome.
func (s *Service) mutate(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "registry."+operation, trace.WithAttributes(
		attribute.String("registry.caller", requestcontext.Caller(ctx).String()),
	))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	err := s.store.RunInTx(ctx, fn)
	s.mu.Unlock()

	err = translate(err)
	s.observe(operation, err, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}

// read runs fn under the read lock.
func (s *Service) read(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "registry."+operation)
	defer span.End()
	start := time.Now()

	s.mu.RLock()
	err := fn(ctx)
	s.mu.RUnlock()

	err = translate(err)
	s.observe(operation, err, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}

// translate maps store sentinels onto registry error kinds. Coded errors pass
// through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(models.CodeDomainDoesNotExist, "domain does not exist")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(models.CodeDomainAlreadyExists, "domain already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
	}
}

func (s *Service) observe(operation string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.ObserveOperation(operation, outcome, time.Since(start).Seconds())
}

func (s *Service) find(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	d, err := s.store.FindByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(models.CodeDomainDoesNotExist, "domain does not exist")
		}
		return nil, err
	}
	return d, nil
}

func requireCaller(ctx context.Context) (id.Address, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return caller, dErrors.New(models.CodeAddressIsZero, "caller is the zero address")
	}
	return caller, nil
}

// notifyOwnershipChanged runs after commit, outside the lock. Failures are
// logged and counted only.
func (s *Service) notifyOwnershipChanged(ctx context.Context, domainID id.DomainID) {
	if s.hook == nil {
		return
	}
	if err := s.hook.OwnershipChanged(ctx, domainID); err != nil {
		s.hookFailed(ctx, "ownership_changed", domainID, err)
	}
}

// recordKeys asks the record hook which keys a refresh renewed. Any failure
// yields an empty list.
func (s *Service) recordKeys(ctx context.Context, domainID id.DomainID) []string {
	if s.hook == nil {
		return []string{}
	}
	keys, err := s.hook.Refreshed(ctx, domainID)
	if err != nil {
		s.hookFailed(ctx, "refreshed", domainID, err)
		return []string{}
	}
	if keys == nil {
		return []string{}
	}
	return keys
}

func (s *Service) hookFailed(ctx context.Context, call string, domainID id.DomainID, err error) {
	if s.metrics != nil {
		s.metrics.IncrementHookFailures(call)
	}
	s.logger.WarnContext(ctx, "record hook failed",
		"call", call,
		"domain_id", domainID,
		"error", err,
	)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
