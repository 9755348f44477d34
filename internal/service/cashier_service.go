package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

type CashierService interface {
	OpenSession(sessionType, user string, openingBalance decimal.Decimal) (*model.CashierSession, error)
	// Record appends a transaction to the open session of the given type.
	// It fills id and timestamp when unset. Fails with ErrCashierNotOpen
	// when no session of that type is open.
	Record(sessionType string, tx model.CashierTransaction) (*model.CashierTransaction, error)
	// CloseSession derives the expected balance, records the counted figure
	// and the difference, then kicks the fiscal batch and the closing
	// report as best-effort side effects.
	CloseSession(ctx context.Context, sessionID uuid.UUID, user string, counted *decimal.Decimal) (*model.CashierSession, error)
	GetActive(sessionType string) (*model.CashierSession, error)
	FindByID(id uuid.UUID) (*model.CashierSession, error)
	History(start, end time.Time, typeFilter string) ([]model.CashierSession, error)
	// AmendSaleForCharge adjusts the sale recorded for a paid charge while
	// its paying session is still open. Returns false when the session has
	// already closed; the caller must book a compensating entry instead.
	AmendSaleForCharge(chargeID string, newAmount decimal.Decimal, note string) (bool, error)
	// CanAdjustForCharge reports whether an edit of a paid charge has a
	// cashier destination: the paying session still open, or an open
	// guest-consumption cashier for a compensating entry.
	CanAdjustForCharge(chargeID string) bool
}

type cashierService struct {
	repo       repository.CashierRepository
	fiscal     FiscalPoolService
	dispatcher JobDispatcher
}

func NewCashierService(repo repository.CashierRepository, fiscal FiscalPoolService, dispatcher JobDispatcher) CashierService {
	return &cashierService{repo: repo, fiscal: fiscal, dispatcher: dispatcher}
}

func (s *cashierService) OpenSession(sessionType, user string, openingBalance decimal.Decimal) (*model.CashierSession, error) {
	switch sessionType {
	case model.CashierRestaurant, model.CashierGuestConsumption, model.CashierDailyRates:
	default:
		return nil, fmt.Errorf("tipo de caixa desconhecido: %s", sessionType)
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("saldo inicial não pode ser negativo")
	}

	session := &model.CashierSession{
		ID:             uuid.New(),
		Type:           sessionType,
		User:           user,
		Status:         model.SessionOpen,
		OpenedAt:       time.Now(),
		OpeningBalance: openingBalance.Round(2),
		Transactions:   []model.CashierTransaction{},
	}
	if err := s.repo.CreateSession(session); err != nil {
		return nil, err
	}

	log.Info().Str("type", sessionType).Str("user", user).
		Str("session_id", session.ID.String()).Msg("caixa aberto")
	return session, nil
}

func (s *cashierService) Record(sessionType string, tx model.CashierTransaction) (*model.CashierTransaction, error) {
	switch tx.Type {
	case model.TxSale, model.TxIn, model.TxOut, model.TxDeposit, model.TxWithdrawal:
	default:
		return nil, fmt.Errorf("tipo de lançamento desconhecido: %s", tx.Type)
	}
	if !tx.Amount.IsPositive() {
		return nil, fmt.Errorf("valor do lançamento deve ser positivo")
	}

	open, err := s.repo.FindOpenByType(sessionType)
	if err != nil {
		return nil, domain.ErrCashierNotOpen
	}

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	tx.Amount = tx.Amount.Round(2)

	if err := s.repo.AppendTransaction(open.ID, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *cashierService) CloseSession(ctx context.Context, sessionID uuid.UUID, user string, counted *decimal.Decimal) (*model.CashierSession, error) {
	err := s.repo.Update(sessionID, func(sess *model.CashierSession) error {
		if sess.Status != model.SessionOpen {
			return fmt.Errorf("caixa %s já está fechado", sessionID)
		}
		now := time.Now()
		expected := sess.ExpectedBalance()
		sess.Status = model.SessionClosed
		sess.ClosedAt = &now
		sess.ClosingBalance = &expected
		if counted != nil {
			c := counted.Round(2)
			diff := c.Sub(expected)
			sess.CountedClosing = &c
			sess.ClosingDiff = &diff
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindByID(sessionID)
	if err != nil {
		return nil, err
	}

	// Side effects are best-effort: a sidecar or queue outage must never
	// undo a closed cashier.
	if s.fiscal != nil {
		go s.fiscal.ProcessPending(context.WithoutCancel(ctx))
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueReport(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).
				Msg("caixa: relatório de fechamento não enfileirado")
		}
	}

	log.Info().Str("session_id", sessionID.String()).Str("user", user).
		Str("expected", session.ClosingBalance.StringFixed(2)).
		Msg("caixa fechado")
	return session, nil
}

func (s *cashierService) GetActive(sessionType string) (*model.CashierSession, error) {
	return s.repo.FindOpenByType(sessionType)
}

func (s *cashierService) FindByID(id uuid.UUID) (*model.CashierSession, error) {
	return s.repo.FindByID(id)
}

func (s *cashierService) History(start, end time.Time, typeFilter string) ([]model.CashierSession, error) {
	return s.repo.History(start, end, typeFilter)
}

func (s *cashierService) AmendSaleForCharge(chargeID string, newAmount decimal.Decimal, note string) (bool, error) {
	sessions, err := s.repo.List()
	if err != nil {
		return false, err
	}

	for _, sess := range sessions {
		for _, tx := range sess.Transactions {
			if tx.Type != model.TxSale || tx.RelatedChargeID != chargeID {
				continue
			}
			if sess.Status != model.SessionOpen {
				return false, nil
			}
			txID := tx.ID
			err := s.repo.Update(sess.ID, func(open *model.CashierSession) error {
				for i := range open.Transactions {
					if open.Transactions[i].ID == txID {
						open.Transactions[i].Amount = newAmount.Round(2)
						if note != "" {
							open.Transactions[i].Flags = append(open.Transactions[i].Flags, note)
						}
						return nil
					}
				}
				return fmt.Errorf("%w: lançamento %s", domain.ErrNotFound, txID)
			})
			if err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *cashierService) CanAdjustForCharge(chargeID string) bool {
	if sessions, err := s.repo.List(); err == nil {
		for _, sess := range sessions {
			if sess.Status != model.SessionOpen {
				continue
			}
			for _, tx := range sess.Transactions {
				if tx.Type == model.TxSale && tx.RelatedChargeID == chargeID {
					return true
				}
			}
		}
	}
	_, err := s.repo.FindOpenByType(model.CashierGuestConsumption)
	return err == nil
}
