package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// FiscalEmitter is the outbound half of the pool: the HTTP sidecar client
// in production, a stub in tests.
type FiscalEmitter interface {
	Emit(ctx context.Context, payload infra.FiscalPayload) (string, error)
}

// JobDispatcher pushes async jobs to the worker queue. Both methods are
// best-effort from the caller's point of view: a queue failure only delays
// emission, it never blocks settlement.
type JobDispatcher interface {
	EnqueueEmission(ctx context.Context, entryID uuid.UUID) error
	EnqueueReport(ctx context.Context, sessionID uuid.UUID) error
}

// EnqueueFiscal carries everything a settlement hands to the pool.
type EnqueueFiscal struct {
	Origin     string
	OriginalID string
	Total      decimal.Decimal
	Items      []model.OrderItem
	Payments   []model.FiscalPayment
	Customer   model.CustomerInfo
	User       string
}

type FiscalPoolService interface {
	// Enqueue registers a settled sale for deferred emission. Idempotent on
	// (origin, original_id): a second call while an entry is pending or
	// emitted returns the no-duplicate outcome without error.
	Enqueue(ctx context.Context, req EnqueueFiscal) (created bool, err error)
	// Emit attempts emission now. Allowed from pending or error, never
	// after emitted/ignored.
	Emit(ctx context.Context, id uuid.UUID, operator string) (*model.FiscalPoolEntry, error)
	Ignore(id uuid.UUID) error
	List(filter repository.FiscalFilter) ([]model.FiscalPoolEntry, error)
	// ProcessPending walks pending and error entries and attempts each,
	// stopping early when the circuit breaker opens. Best-effort: errors
	// are recorded on the entries and logged, never returned fatal.
	ProcessPending(ctx context.Context)
}

type fiscalPoolService struct {
	repo        repository.FiscalRepository
	emitter     FiscalEmitter
	cb          *infra.CircuitBreaker
	dispatcher  JobDispatcher
	emitterCNPJ string
}

func NewFiscalPoolService(
	repo repository.FiscalRepository,
	emitter FiscalEmitter,
	cb *infra.CircuitBreaker,
	dispatcher JobDispatcher,
	emitterCNPJ string,
) FiscalPoolService {
	return &fiscalPoolService{
		repo:        repo,
		emitter:     emitter,
		cb:          cb,
		dispatcher:  dispatcher,
		emitterCNPJ: emitterCNPJ,
	}
}

func (s *fiscalPoolService) Enqueue(ctx context.Context, req EnqueueFiscal) (bool, error) {
	entry := &model.FiscalPoolEntry{
		ID:             uuid.New(),
		Origin:         req.Origin,
		OriginalID:     req.OriginalID,
		ClosedAt:       time.Now(),
		TotalAmount:    req.Total.Round(2),
		Items:          req.Items,
		PaymentMethods: req.Payments,
		CustomerInfo:   req.Customer,
		Status:         model.FiscalPending,
		User:           req.User,
	}

	created, err := s.repo.CreateIfAbsent(entry)
	if err != nil {
		return false, err
	}
	if !created {
		log.Info().
			Str("origin", req.Origin).
			Str("original_id", req.OriginalID).
			Msg("fiscal: entrada já existente, enfileiramento ignorado")
		return false, nil
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueEmission(ctx, entry.ID); err != nil {
			log.Warn().Err(err).Str("entry_id", entry.ID.String()).
				Msg("fiscal: fila de emissão indisponível, emissão fica manual")
		}
	}
	return true, nil
}

func (s *fiscalPoolService) Emit(ctx context.Context, id uuid.UUID, operator string) (*model.FiscalPoolEntry, error) {
	entry, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if entry.Status == model.FiscalEmitted {
		// Re-emission of an emitted entry is a no-op, not an error.
		return entry, nil
	}
	if !entry.Emittable() {
		return nil, fmt.Errorf("nota %s não pode ser emitida no estado %s", id, entry.Status)
	}

	payload := infra.FiscalPayload{
		EmitterCNPJ:     s.emitterCNPJ,
		OriginalID:      entry.OriginalID,
		TotalAmount:     entry.TotalAmount,
		CustomerCPFCNPJ: entry.CustomerInfo.CPFCNPJ,
		CustomerName:    entry.CustomerInfo.Name,
	}
	for _, it := range entry.Items {
		payload.Items = append(payload.Items, infra.FiscalItem{
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: it.UnitTotal(),
		})
	}
	for _, p := range entry.PaymentMethods {
		payload.PaymentMethods = append(payload.PaymentMethods, p.Method)
	}

	var docUUID string
	call := func() error {
		var emitErr error
		docUUID, emitErr = s.emitter.Emit(ctx, payload)
		return emitErr
	}

	var callErr error
	if s.cb != nil {
		callErr = s.cb.Execute(call)
	} else {
		callErr = call()
	}

	if callErr != nil {
		updErr := s.repo.Update(id, func(e *model.FiscalPoolEntry) error {
			e.Status = model.FiscalError
			e.LastError = callErr.Error()
			e.RetryCount++
			return nil
		})
		if updErr != nil {
			log.Error().Err(updErr).Str("entry_id", id.String()).Msg("fiscal: falha ao registrar erro de emissão")
		}
		log.Warn().Err(callErr).Str("entry_id", id.String()).Str("operator", operator).
			Msg("fiscal: emissão falhou")
		entry, _ = s.repo.FindByID(id)
		return entry, callErr
	}

	now := time.Now()
	if err := s.repo.Update(id, func(e *model.FiscalPoolEntry) error {
		e.Status = model.FiscalEmitted
		e.FiscalDocUUID = docUUID
		e.LastError = ""
		e.EmittedAt = &now
		return nil
	}); err != nil {
		return nil, err
	}

	log.Info().Str("entry_id", id.String()).Str("doc_uuid", docUUID).Str("operator", operator).
		Msg("fiscal: documento emitido")
	return s.repo.FindByID(id)
}

func (s *fiscalPoolService) Ignore(id uuid.UUID) error {
	return s.repo.Update(id, func(e *model.FiscalPoolEntry) error {
		if e.Status == model.FiscalEmitted {
			return fmt.Errorf("nota %s já emitida não pode ser ignorada", id)
		}
		e.Status = model.FiscalIgnored
		return nil
	})
}

func (s *fiscalPoolService) List(filter repository.FiscalFilter) ([]model.FiscalPoolEntry, error) {
	return s.repo.List(filter)
}

func (s *fiscalPoolService) ProcessPending(ctx context.Context) {
	for _, status := range []string{model.FiscalPending, model.FiscalError} {
		entries, err := s.repo.List(repository.FiscalFilter{Status: status})
		if err != nil {
			log.Error().Err(err).Msg("fiscal: falha ao listar pool")
			return
		}
		for _, e := range entries {
			if s.cb != nil && s.cb.State() == infra.CBOpen {
				log.Debug().Msg("fiscal: circuito aberto, lote interrompido")
				return
			}
			if _, err := s.Emit(ctx, e.ID, "lote"); err != nil {
				continue
			}
		}
	}
}
