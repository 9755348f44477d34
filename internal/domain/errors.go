// Package domain defines the typed errors raised by the order → cashier →
// fiscal pipeline. Handlers map them to HTTP status codes; services wrap
// them with context via fmt.Errorf("...: %w", err) so errors.Is still works.
package domain

import "errors"

var (
	// ErrTableLocked is returned when items are added to a table whose
	// bill has been pulled and not yet unlocked.
	ErrTableLocked = errors.New("mesa travada: conta já solicitada")

	// ErrRoomNotOccupied is returned when opening a room-bound table
	// (id <= 35) without a matching occupancy.
	ErrRoomNotOccupied = errors.New("quarto sem hóspede ativo")

	// ErrProductPaused is returned when a paused catalog product is added.
	ErrProductPaused = errors.New("produto pausado no cardápio")

	// ErrCashierNotOpen is returned when settling money without an open
	// cashier session of the required type.
	ErrCashierNotOpen = errors.New("nenhum caixa aberto para esta operação")

	// ErrDuplicateOpenSession is returned when opening a second cashier
	// session of a type that already has one open (global, not per user).
	ErrDuplicateOpenSession = errors.New("já existe um caixa aberto deste tipo")

	// ErrNoOpenCashierForAdjustment is returned when a paid charge is
	// edited, its paying cashier is closed, and no guest-consumption
	// cashier is open to receive the compensating entry.
	ErrNoOpenCashierForAdjustment = errors.New("nenhum caixa aberto para lançar o ajuste")

	// ErrInsufficientPayment is returned when the payments fall short of
	// the amount due beyond the 5-cent tolerance.
	ErrInsufficientPayment = errors.New("pagamento insuficiente")

	// ErrOverpaymentNotAllowed is returned when payments exceed the due
	// amount and no cash payment is present to absorb the change.
	ErrOverpaymentNotAllowed = errors.New("troco só é permitido em pagamentos com dinheiro")

	// ErrUnauthorized is returned when the operator lacks the role or the
	// manager password supplied is invalid.
	ErrUnauthorized = errors.New("operação não autorizada")

	// ErrMissingJustification is returned when a removal/cancellation is
	// attempted without a reason.
	ErrMissingJustification = errors.New("justificativa obrigatória")

	// ErrDuplicateSubmission is returned by callers that want the dedupe
	// guard surfaced; AddItems swallows it and reports a no-op instead.
	ErrDuplicateSubmission = errors.New("envio duplicado ignorado")

	// ErrStorageError wraps persistence failures. The previous generation
	// remains readable via the store's .bak fallback.
	ErrStorageError = errors.New("falha de persistência")

	// ErrPrinterTimeout is non-fatal: items keep print_status=error and
	// stay eligible for reprint.
	ErrPrinterTimeout = errors.New("tempo esgotado na impressão")

	// ErrNotFound is the generic lookup failure for any entity kind.
	ErrNotFound = errors.New("registro não encontrado")
)
