package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// ChargeEdit is one reception-side adjustment of a room charge. Additions
// and removals become appended lines; the original lines are never touched.
type ChargeEdit struct {
	Additions        []ItemInput
	RemoveItemIDs    []int
	RemoveServiceFee bool
	Justification    string
}

// PayCharge settles a single charge at the guest-consumption cashier.
type PayCharge struct {
	Payments     []PaymentInput
	EmitInvoice  bool
	CustomerInfo model.CustomerInfo
}

// CloseAccountResult reports a consolidated room-account closure.
type CloseAccountResult struct {
	RoomNumber string
	ChargeIDs  []uuid.UUID
	Total      decimal.Decimal
}

type ChargeLedgerService interface {
	ListPending(roomNumber string) ([]model.RoomCharge, error)
	FindByID(id uuid.UUID) (*model.RoomCharge, error)
	// CreateDirect registers a charge born at the reception (minibar or a
	// reception-entered consumption), without a table behind it.
	CreateDirect(ctx context.Context, roomNumber string, inputs []ItemInput, source string, operator *model.Operator) (*model.RoomCharge, error)
	Pay(ctx context.Context, id uuid.UUID, req PayCharge, operator *model.Operator) (*model.RoomCharge, error)
	// CloseAccount settles every pending charge of a room in one write and
	// books a single consolidated sale plus one fiscal entry for the room.
	CloseAccount(ctx context.Context, roomNumber string, payments []PaymentInput, operator *model.Operator) (*CloseAccountResult, error)
	Edit(ctx context.Context, id uuid.UUID, edit ChargeEdit, operator *model.Operator) (*model.RoomCharge, error)
	Cancel(ctx context.Context, id uuid.UUID, justification string, operator *model.Operator) error
}

type chargeLedgerService struct {
	charges repository.ChargeRepository
	rooms   repository.RoomRepository
	stock   repository.StockRepository
	catalog CatalogService
	cashier CashierService
	fiscal  FiscalPoolService
	cfg     OrderBookConfig
}

func NewChargeLedgerService(
	charges repository.ChargeRepository,
	rooms repository.RoomRepository,
	stock repository.StockRepository,
	catalog CatalogService,
	cashier CashierService,
	fiscal FiscalPoolService,
	cfg OrderBookConfig,
) ChargeLedgerService {
	return &chargeLedgerService{
		charges: charges,
		rooms:   rooms,
		stock:   stock,
		catalog: catalog,
		cashier: cashier,
		fiscal:  fiscal,
		cfg:     cfg,
	}
}

func (s *chargeLedgerService) ListPending(roomNumber string) ([]model.RoomCharge, error) {
	return s.charges.ListPending(roomNumber)
}

func (s *chargeLedgerService) FindByID(id uuid.UUID) (*model.RoomCharge, error) {
	return s.charges.FindByID(id)
}

// ── CreateDirect ─────────────────────────────────────────────────────────────

func (s *chargeLedgerService) CreateDirect(ctx context.Context, roomNumber string, inputs []ItemInput, source string, operator *model.Operator) (*model.RoomCharge, error) {
	room := model.NormalizeRoom(roomNumber)
	if !s.rooms.IsOccupied(room) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotOccupied, room)
	}
	if source == "" {
		source = model.SourceMinibar
	}

	items := make([]model.OrderItem, 0, len(inputs))
	total := decimal.Zero
	nextID := 1
	for _, in := range inputs {
		product, err := s.catalog.RequireSellable(in.Product)
		if err != nil {
			return nil, err
		}
		qty := in.Qty
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		item := model.OrderItem{
			ID:               nextID,
			ProductID:        product.ID,
			Name:             product.Name,
			Qty:              qty,
			Price:            product.Price,
			Category:         product.Category,
			ServiceFeeExempt: product.ServiceFeeExempt,
			Source:           source,
			Waiter:           in.Waiter,
			PrintStatus:      model.PrintSkipped,
			CreatedAt:        time.Now(),
		}
		nextID++
		items = append(items, item)
		total = total.Add(item.Subtotal())

		for _, line := range s.catalog.ExpandRecipe(product, qty) {
			if _, err := s.stock.Adjust(line.IngredientID, line.Qty.Neg()); err != nil {
				log.Error().Err(err).Str("ingredient", line.IngredientID).Msg("estoque: baixa falhou")
			}
		}
	}

	operatorName := operatorUsername(operator)
	charge := &model.RoomCharge{
		ID:         uuid.New(),
		RoomNumber: room,
		Items:      items,
		Total:      total,
		ServiceFee: chargeServiceFee(items, s.cfg.ServiceFeeRate),
		Source:     source,
		Status:     model.ChargePending,
		Date:       time.Now(),
		AuditLog: []model.ChargeAuditEntry{{
			Action:   "created",
			Operator: operatorName,
			At:       time.Now(),
		}},
	}

	if err := s.charges.Create(charge); err != nil {
		return nil, err
	}
	log.Info().Str("room", room).Str("source", source).
		Str("total", charge.GrandTotal().StringFixed(2)).Msg("consumo lançado no quarto")
	return charge, nil
}

// ── Pay ──────────────────────────────────────────────────────────────────────

func (s *chargeLedgerService) Pay(ctx context.Context, id uuid.UUID, req PayCharge, operator *model.Operator) (*model.RoomCharge, error) {
	charge, err := s.charges.FindByID(id)
	if err != nil {
		return nil, err
	}
	if charge.Status == model.ChargePaid {
		return charge, nil
	}
	if charge.Status != model.ChargePending {
		return nil, fmt.Errorf("consumo %s está %s, não pode ser pago", id, charge.Status)
	}

	if _, err := s.cashier.GetActive(model.CashierGuestConsumption); err != nil {
		return nil, domain.ErrCashierNotOpen
	}

	due := charge.GrandTotal()
	payments, err := settlePayments(req.Payments, due)
	if err != nil {
		return nil, err
	}

	operatorName := operatorUsername(operator)
	for _, p := range payments {
		tx := model.CashierTransaction{
			Type:              model.TxSale,
			Amount:            p.Amount,
			Description:       fmt.Sprintf("Consumo Quarto %s (%s)", charge.RoomNumber, p.Method),
			PaymentMethod:     p.Method,
			User:              operatorName,
			WaiterBreakdown:   scaleBreakdown(charge.WaiterBreakdown, p.Amount, due),
			RelatedChargeID:   charge.ID.String(),
			EmitInvoice:       req.EmitInvoice,
			ServiceFeeRemoved: charge.ServiceFeeRemoved,
		}
		if _, err := s.cashier.Record(model.CashierGuestConsumption, tx); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	methodLabel := paymentLabel(payments)
	err = s.charges.Update(id, func(c *model.RoomCharge) error {
		c.Status = model.ChargePaid
		c.PaidAt = &now
		c.PaymentMethod = methodLabel
		c.AuditLog = append(c.AuditLog, model.ChargeAuditEntry{
			Action:   "paid",
			Operator: operatorName,
			At:       now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	_, err = s.fiscal.Enqueue(ctx, EnqueueFiscal{
		Origin:     model.OriginReceptionCharge,
		OriginalID: charge.ID.String(),
		Total:      due,
		Items:      charge.Items,
		Payments:   fiscalPaymentsOf(s.catalog, payments),
		Customer:   req.CustomerInfo,
		User:       operatorName,
	})
	if err != nil {
		log.Error().Err(err).Str("charge_id", id.String()).Msg("fiscal: enfileiramento falhou no pagamento de consumo")
	}

	return s.charges.FindByID(id)
}

// ── CloseAccount ─────────────────────────────────────────────────────────────

func (s *chargeLedgerService) CloseAccount(ctx context.Context, roomNumber string, payments []PaymentInput, operator *model.Operator) (*CloseAccountResult, error) {
	room := model.NormalizeRoom(roomNumber)
	pending, err := s.charges.ListPending(room)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &CloseAccountResult{RoomNumber: room}, nil
	}

	if _, err := s.cashier.GetActive(model.CashierGuestConsumption); err != nil {
		return nil, domain.ErrCashierNotOpen
	}

	total := decimal.Zero
	ids := make([]uuid.UUID, 0, len(pending))
	breakdowns := make([]map[string]decimal.Decimal, 0, len(pending))
	allItems := make([]model.OrderItem, 0)
	for _, c := range pending {
		total = total.Add(c.GrandTotal())
		ids = append(ids, c.ID)
		allItems = append(allItems, c.Items...)
		// Fee-stripped charges stay out of the commission base.
		if !c.ServiceFeeRemoved {
			breakdowns = append(breakdowns, c.WaiterBreakdown)
		}
	}

	settled, err := settlePayments(payments, total)
	if err != nil {
		return nil, err
	}

	operatorName := operatorUsername(operator)
	combined := SumBreakdowns(breakdowns...)
	for _, p := range settled {
		tx := model.CashierTransaction{
			Type:            model.TxSale,
			Amount:          p.Amount,
			Description:     fmt.Sprintf("Fechamento Quarto %s (%s)", room, p.Method),
			PaymentMethod:   p.Method,
			User:            operatorName,
			WaiterBreakdown: scaleBreakdown(combined, p.Amount, total),
		}
		if _, err := s.cashier.Record(model.CashierGuestConsumption, tx); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	methodLabel := paymentLabel(settled)
	err = s.charges.UpdateBatch(ids, func(c *model.RoomCharge) error {
		c.Status = model.ChargePaid
		c.PaidAt = &now
		c.PaymentMethod = methodLabel
		c.AuditLog = append(c.AuditLog, model.ChargeAuditEntry{
			Action:   "paid",
			Operator: operatorName,
			At:       now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	_, err = s.fiscal.Enqueue(ctx, EnqueueFiscal{
		Origin:     model.OriginReception,
		OriginalID: model.RoomAccountID(room),
		Total:      total,
		Items:      allItems,
		Payments:   fiscalPaymentsOf(s.catalog, settled),
		User:       operatorName,
	})
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("fiscal: enfileiramento falhou no fechamento do quarto")
	}

	log.Info().Str("room", room).Int("charges", len(ids)).
		Str("total", total.StringFixed(2)).Msg("conta do quarto fechada")
	return &CloseAccountResult{RoomNumber: room, ChargeIDs: ids, Total: total}, nil
}

// ── Edit ─────────────────────────────────────────────────────────────────────

func (s *chargeLedgerService) Edit(ctx context.Context, id uuid.UUID, edit ChargeEdit, operator *model.Operator) (*model.RoomCharge, error) {
	if strings.TrimSpace(edit.Justification) == "" {
		return nil, domain.ErrMissingJustification
	}

	charge, err := s.charges.FindByID(id)
	if err != nil {
		return nil, err
	}
	if charge.Status == model.ChargeCanceled {
		return nil, fmt.Errorf("consumo %s está cancelado", id)
	}
	// A paid charge needs a cashier destination for the adjustment before
	// anything is persisted, or the charge and its sale drift apart.
	if charge.Status == model.ChargePaid && !s.cashier.CanAdjustForCharge(id.String()) {
		return nil, domain.ErrNoOpenCashierForAdjustment
	}
	oldTotal := charge.GrandTotal()

	// Resolve outside the write so a catalog miss aborts cleanly.
	type addition struct {
		item    model.OrderItem
		product *model.Product
	}
	additions := make([]addition, 0, len(edit.Additions))
	for _, in := range edit.Additions {
		product, err := s.catalog.RequireSellable(in.Product)
		if err != nil {
			return nil, err
		}
		qty := in.Qty
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		additions = append(additions, addition{
			item: model.OrderItem{
				ProductID:        product.ID,
				Name:             product.Name,
				Qty:              qty,
				Price:            product.Price,
				Category:         product.Category,
				ServiceFeeExempt: product.ServiceFeeExempt,
				Source:           model.SourceReceptionEdit,
				Waiter:           in.Waiter,
				PrintStatus:      model.PrintSkipped,
				CreatedAt:        time.Now(),
			},
			product: product,
		})
	}

	operatorName := operatorUsername(operator)
	var refunds []model.OrderItem
	err = s.charges.Update(id, func(c *model.RoomCharge) error {
		nextID := 0
		for _, it := range c.Items {
			if it.ID > nextID {
				nextID = it.ID
			}
		}
		nextID++

		// Removals append negating lines; the removed line stays in place.
		for _, removeID := range edit.RemoveItemIDs {
			var target *model.OrderItem
			net := decimal.Zero
			for i := range c.Items {
				if c.Items[i].ID == removeID {
					target = &c.Items[i]
				}
				if c.Items[i].ID == removeID || c.Items[i].TransferredFrom == fmt.Sprintf("estorno:%d", removeID) {
					net = net.Add(c.Items[i].Qty)
				}
			}
			if target == nil {
				return fmt.Errorf("%w: item %d", domain.ErrNotFound, removeID)
			}
			if !net.IsPositive() {
				return fmt.Errorf("item %d já estornado", removeID)
			}
			negation := *target
			negation.ID = nextID
			negation.Qty = target.Qty.Neg()
			negation.Source = model.SourceReceptionEdit
			negation.TransferredFrom = fmt.Sprintf("estorno:%d", removeID)
			negation.Observations = []string{edit.Justification}
			negation.CreatedAt = time.Now()
			nextID++
			c.Items = append(c.Items, negation)
			refunds = append(refunds, *target)
		}

		for _, a := range additions {
			a.item.ID = nextID
			nextID++
			c.Items = append(c.Items, a.item)
		}

		total := decimal.Zero
		for _, it := range c.Items {
			total = total.Add(it.Subtotal())
		}
		c.Total = total
		if edit.RemoveServiceFee {
			c.ServiceFeeRemoved = true
		}
		if c.ServiceFeeRemoved {
			c.ServiceFee = decimal.Zero
		} else {
			c.ServiceFee = chargeServiceFee(c.Items, s.cfg.ServiceFeeRate)
		}
		c.AuditLog = append(c.AuditLog, model.ChargeAuditEntry{
			Action:        "edited",
			Operator:      operatorName,
			Justification: edit.Justification,
			At:            time.Now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stock follows the edit symmetrically.
	for _, a := range additions {
		for _, line := range s.catalog.ExpandRecipe(a.product, a.item.Qty) {
			if _, err := s.stock.Adjust(line.IngredientID, line.Qty.Neg()); err != nil {
				log.Error().Err(err).Str("ingredient", line.IngredientID).Msg("estoque: baixa falhou")
			}
		}
	}
	for i := range refunds {
		s.refundStockItem(&refunds[i])
	}

	updated, err := s.charges.FindByID(id)
	if err != nil {
		return nil, err
	}

	if charge.Status == model.ChargePaid {
		if err := s.adjustPaidCharge(charge, updated, oldTotal, operatorName, edit.Justification); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// adjustPaidCharge reconciles the cashier after an edit of an already paid
// charge: mutate the original sale while its session is open, otherwise book
// a compensating entry in the currently open guest-consumption cashier.
func (s *chargeLedgerService) adjustPaidCharge(before, after *model.RoomCharge, oldTotal decimal.Decimal, operatorName, justification string) error {
	newTotal := after.GrandTotal()
	delta := newTotal.Sub(oldTotal)
	if delta.IsZero() {
		return nil
	}

	amended, err := s.cashier.AmendSaleForCharge(before.ID.String(), newTotal, "ajuste: "+justification)
	if err != nil {
		return err
	}
	if amended {
		return nil
	}

	txType := model.TxIn
	desc := fmt.Sprintf("Ajuste Consumo Quarto %s (complemento)", after.RoomNumber)
	if delta.IsNegative() {
		txType = model.TxOut
		desc = fmt.Sprintf("Ajuste Consumo Quarto %s (devolução)", after.RoomNumber)
	}
	_, err = s.cashier.Record(model.CashierGuestConsumption, model.CashierTransaction{
		Type:            txType,
		Amount:          delta.Abs(),
		Description:     desc,
		PaymentMethod:   before.PaymentMethod,
		User:            operatorName,
		RelatedChargeID: before.ID.String(),
	})
	if err != nil {
		return domain.ErrNoOpenCashierForAdjustment
	}
	return nil
}

// ── Cancel ───────────────────────────────────────────────────────────────────

func (s *chargeLedgerService) Cancel(ctx context.Context, id uuid.UUID, justification string, operator *model.Operator) error {
	if strings.TrimSpace(justification) == "" {
		return domain.ErrMissingJustification
	}
	if operator == nil || !operator.CanManage() {
		return domain.ErrUnauthorized
	}

	charge, err := s.charges.FindByID(id)
	if err != nil {
		return err
	}
	if charge.Status == model.ChargePaid {
		return fmt.Errorf("consumo %s já pago, use edição para ajustes", id)
	}

	err = s.charges.Update(id, func(c *model.RoomCharge) error {
		c.Status = model.ChargeCanceled
		c.AuditLog = append(c.AuditLog, model.ChargeAuditEntry{
			Action:        "canceled",
			Operator:      operator.Username,
			Justification: justification,
			At:            time.Now(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	for i := range charge.Items {
		s.refundStockItem(&charge.Items[i])
	}
	log.Info().Str("charge_id", id.String()).Str("room", charge.RoomNumber).
		Str("justification", justification).Msg("consumo cancelado")
	return nil
}

func (s *chargeLedgerService) refundStockItem(item *model.OrderItem) {
	if item.ProductID == "" || !item.Qty.IsPositive() {
		return
	}
	product, err := s.catalog.FindProduct(item.ProductID)
	if err != nil {
		return
	}
	for _, line := range s.catalog.ExpandRecipe(product, item.Qty) {
		if _, err := s.stock.Adjust(line.IngredientID, line.Qty); err != nil {
			log.Error().Err(err).Str("ingredient", line.IngredientID).Msg("estoque: estorno falhou")
		}
	}
}

// ── shared helpers ───────────────────────────────────────────────────────────

func operatorUsername(operator *model.Operator) string {
	if operator == nil {
		return ""
	}
	return operator.Username
}

// chargeServiceFee derives the 10% fee over the fee-taxable lines.
func chargeServiceFee(items []model.OrderItem, rate decimal.Decimal) decimal.Decimal {
	base := decimal.Zero
	for _, it := range items {
		if it.FeeTaxable() {
			base = base.Add(it.Subtotal())
		}
	}
	if base.IsNegative() {
		return decimal.Zero
	}
	return base.Mul(rate).Round(2)
}

// settlePayments validates the legs against the due amount under the shared
// tolerance and absorbs change into the cash leg.
func settlePayments(payments []PaymentInput, due decimal.Decimal) ([]PaymentInput, error) {
	out := make([]PaymentInput, 0, len(payments))
	sum := decimal.Zero
	for _, p := range payments {
		if p.Amount.IsPositive() {
			out = append(out, p)
			sum = sum.Add(p.Amount)
		}
	}
	if sum.LessThan(due.Sub(paymentTolerance)) {
		return nil, domain.ErrInsufficientPayment
	}
	if change := sum.Sub(due); change.IsPositive() {
		cashIdx := -1
		for i := range out {
			if strings.EqualFold(out[i].Method, model.CashMethod) {
				cashIdx = i
				break
			}
		}
		if cashIdx < 0 || out[cashIdx].Amount.LessThan(change) {
			return nil, domain.ErrOverpaymentNotAllowed
		}
		out[cashIdx].Amount = out[cashIdx].Amount.Sub(change)
		if out[cashIdx].Amount.IsZero() {
			out = append(out[:cashIdx], out[cashIdx+1:]...)
		}
	}
	return out, nil
}

// scaleBreakdown prorates a waiter breakdown to one payment leg.
func scaleBreakdown(breakdown map[string]decimal.Decimal, amount, total decimal.Decimal) map[string]decimal.Decimal {
	if len(breakdown) == 0 || total.IsZero() {
		return nil
	}
	if amount.Equal(total) {
		return breakdown
	}
	ratio := amount.Div(total)
	out := make(map[string]decimal.Decimal, len(breakdown))
	for w, v := range breakdown {
		out[w] = v.Mul(ratio).Round(2)
	}
	return out
}

func fiscalPaymentsOf(catalog CatalogService, payments []PaymentInput) []model.FiscalPayment {
	out := make([]model.FiscalPayment, 0, len(payments))
	for _, p := range payments {
		fp := model.FiscalPayment{Method: p.Method, Amount: p.Amount, IsFiscal: true}
		if method, err := catalog.PaymentMethod(p.Method); err == nil {
			fp.IsFiscal = method.IsFiscal
			fp.FiscalCNPJ = method.FiscalCNPJ
		}
		out = append(out, fp)
	}
	return out
}

func paymentLabel(payments []PaymentInput) string {
	names := make([]string, 0, len(payments))
	for _, p := range payments {
		names = append(names, p.Method)
	}
	return strings.Join(names, " + ")
}
