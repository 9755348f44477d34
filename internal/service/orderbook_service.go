package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/printing"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// paymentTolerance: payments may fall up to 5 cents short of the due amount
// to absorb rounding on split bills.
var paymentTolerance = decimal.NewFromFloat(0.05)

// lowStockThreshold triggers the purchasing alert on recipe deduction.
var lowStockThreshold = decimal.NewFromInt(3)

// OrderBookConfig carries the business tunables the order book needs.
type OrderBookConfig struct {
	ServiceFeeRate    decimal.Decimal // 0.10
	StaffDiscountRate decimal.Decimal // 0.20
	LiveMusic         bool
	CoverProductID    string
	PDFDir            string
}

// BillRenderer produces the printable bill on pull. Nil disables rendering.
type BillRenderer func(order *model.TableOrder, serviceFee decimal.Decimal, dir string) (string, error)

// OpenTable is the request to open a table, room account or staff account.
type OpenTable struct {
	TableID      string
	CustomerType string
	NumAdults    int
	Waiter       string
	RoomNumber   string
	StaffName    string
}

// ItemInput is one requested line of an add-items batch.
type ItemInput struct {
	Product        string // id or name
	Qty            decimal.Decimal
	ComplementIDs  []string
	Accompaniments []string
	Observations   []string
	Waiter         string // falls back to the batch waiter
	Source         string // defaults to restaurant
}

// AddItemsResult reports what one batch did.
type AddItemsResult struct {
	Duplicate   bool
	Items       []model.OrderItem
	LowStock    []string
	PrintErrors map[int]string
}

// PaymentInput is one payment leg of a settlement.
type PaymentInput struct {
	Method string
	Amount decimal.Decimal
}

// CloseTable is the request to settle a table at the restaurant cashier.
type CloseTable struct {
	Payments         []PaymentInput
	Discount         decimal.Decimal
	RemoveServiceFee bool
	CustomerName     string
	CustomerCPFCNPJ  string
	PartialOnly      bool
}

// CloseResult reports the settlement outcome.
type CloseResult struct {
	AlreadyClosed bool
	Closed        bool
	Partial       bool
	ItemsTotal    decimal.Decimal
	ServiceFee    decimal.Decimal
	GrandTotal    decimal.Decimal
	PaidAmount    decimal.Decimal
	Change        decimal.Decimal
}

type OrderBookService interface {
	Open(ctx context.Context, req OpenTable, operator *model.Operator) (*model.TableOrder, error)
	Find(tableID string) (*model.TableOrder, error)
	List() ([]model.TableOrder, error)
	AddItems(ctx context.Context, tableID, batchID string, inputs []ItemInput, waiter string, operator *model.Operator) (*AddItemsResult, error)
	RemoveItem(ctx context.Context, tableID string, itemID int, qty decimal.Decimal, reason string, operator *model.Operator, managerPassword string) error
	TransferItem(ctx context.Context, srcTable, destTable string, itemID int, qty decimal.Decimal, operator *model.Operator) error
	TransferToRoom(ctx context.Context, tableID, roomNumber string, operator *model.Operator) (*model.RoomCharge, error)
	PullBill(ctx context.Context, tableID string) (string, error)
	Unlock(tableID string) error
	Close(ctx context.Context, tableID string, req CloseTable, operator *model.Operator) (*CloseResult, error)
	Cancel(ctx context.Context, tableID, justification string, operator *model.Operator) error
	Reprint(ctx context.Context, tableID string) (*AddItemsResult, error)
}

type orderBookService struct {
	orders    repository.OrderRepository
	charges   repository.ChargeRepository
	rooms     repository.RoomRepository
	stock     repository.StockRepository
	operators repository.OperatorRepository
	catalog   CatalogService
	cashier   CashierService
	fiscal    FiscalPoolService
	printer   printing.Dispatcher
	renderer  BillRenderer
	cfg       OrderBookConfig
	batches   *batchCache
}

func NewOrderBookService(
	orders repository.OrderRepository,
	charges repository.ChargeRepository,
	rooms repository.RoomRepository,
	stock repository.StockRepository,
	operators repository.OperatorRepository,
	catalog CatalogService,
	cashier CashierService,
	fiscal FiscalPoolService,
	printer printing.Dispatcher,
	renderer BillRenderer,
	cfg OrderBookConfig,
) OrderBookService {
	return &orderBookService{
		orders:    orders,
		charges:   charges,
		rooms:     rooms,
		stock:     stock,
		operators: operators,
		catalog:   catalog,
		cashier:   cashier,
		fiscal:    fiscal,
		printer:   printer,
		renderer:  renderer,
		cfg:       cfg,
		batches:   newBatchCache(),
	}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func (s *orderBookService) Open(ctx context.Context, req OpenTable, operator *model.Operator) (*model.TableOrder, error) {
	tableID := strings.TrimSpace(req.TableID)
	if req.CustomerType == model.CustomerFuncionario && !model.IsStaffTable(tableID) && req.StaffName != "" {
		tableID = "FUNC_" + strings.ToUpper(strings.ReplaceAll(req.StaffName, " ", "_"))
	}
	if tableID == "" {
		return nil, fmt.Errorf("identificação da mesa obrigatória")
	}

	// Opening is idempotent: a second open of a live table returns it.
	if existing, err := s.orders.Find(tableID); err == nil {
		return existing, nil
	}

	customerType := req.CustomerType
	roomNumber := ""
	if model.IsRoomTable(tableID) {
		roomNumber = model.NormalizeRoom(tableID)
		if !s.rooms.IsOccupied(roomNumber) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotOccupied, roomNumber)
		}
		customerType = model.CustomerHospede
	} else if req.RoomNumber != "" {
		roomNumber = model.NormalizeRoom(req.RoomNumber)
	}
	if customerType == "" {
		customerType = model.CustomerPassante
	}

	order := &model.TableOrder{
		TableID:      tableID,
		Status:       model.TableOpen,
		OpenedAt:     time.Now(),
		CustomerType: customerType,
		RoomNumber:   roomNumber,
		NumAdults:    req.NumAdults,
		Waiter:       req.Waiter,
		Items:        []model.OrderItem{},
		NextItemID:   1,
	}

	// Live-music cover: per adult, walk-in customers at regular tables only.
	if s.cfg.LiveMusic && s.cfg.CoverProductID != "" &&
		customerType == model.CustomerPassante &&
		!model.IsRoomTable(tableID) && !model.IsStaffTable(tableID) && req.NumAdults > 0 {
		if cover, err := s.catalog.FindProduct(s.cfg.CoverProductID); err == nil {
			order.Items = append(order.Items, model.OrderItem{
				ID:               order.NextItemID,
				ProductID:        cover.ID,
				Name:             cover.Name,
				Qty:              decimal.NewFromInt(int64(req.NumAdults)),
				Price:            cover.Price,
				Category:         cover.Category,
				ServiceFeeExempt: cover.ServiceFeeExempt,
				Source:           model.SourceAutoCover,
				Waiter:           req.Waiter,
				PrintStatus:      model.PrintSkipped,
				CreatedAt:        time.Now(),
			})
			order.NextItemID++
		} else {
			log.Warn().Str("cover_product", s.cfg.CoverProductID).Err(err).
				Msg("mesas: produto de couvert não encontrado")
		}
	}

	order.RecomputeTotal()
	if err := s.orders.Put(order); err != nil {
		return nil, err
	}

	log.Info().Str("table", tableID).Str("customer_type", customerType).
		Int("pax", req.NumAdults).Str("waiter", req.Waiter).Msg("mesa aberta")
	return order, nil
}

func (s *orderBookService) Find(tableID string) (*model.TableOrder, error) {
	return s.orders.Find(tableID)
}

func (s *orderBookService) List() ([]model.TableOrder, error) {
	return s.orders.List()
}

// ── AddItems ─────────────────────────────────────────────────────────────────

func (s *orderBookService) AddItems(ctx context.Context, tableID, batchID string, inputs []ItemInput, waiter string, operator *model.Operator) (*AddItemsResult, error) {
	switch s.batches.check(batchID) {
	case batchSilentDup:
		log.Info().Str("table", tableID).Str("batch_id", batchID).Msg("mesas: lote duplicado ignorado")
		return &AddItemsResult{Duplicate: true}, nil
	case batchDup:
		return nil, domain.ErrDuplicateSubmission
	}

	order, err := s.orders.Find(tableID)
	if err != nil {
		return nil, err
	}
	if order.Locked {
		return nil, domain.ErrTableLocked
	}

	staff := model.IsStaffTable(tableID) || order.CustomerType == model.CustomerFuncionario
	result := &AddItemsResult{PrintErrors: map[int]string{}}

	batch := make([]printable, 0, len(inputs))

	for _, in := range inputs {
		product, err := s.catalog.RequireSellable(in.Product)
		if err != nil {
			return nil, err
		}

		qty := in.Qty
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		price := product.Price
		exempt := product.ServiceFeeExempt
		if staff {
			price = price.Mul(decimal.NewFromInt(1).Sub(s.cfg.StaffDiscountRate)).Round(2)
			exempt = true
		}

		itemWaiter := in.Waiter
		if itemWaiter == "" {
			itemWaiter = waiter
		}
		source := in.Source
		if source == "" {
			source = model.SourceRestaurant
		}

		item := model.OrderItem{
			ProductID:        product.ID,
			Name:             product.Name,
			Qty:              qty,
			Price:            price,
			Accompaniments:   in.Accompaniments,
			Observations:     in.Observations,
			Category:         product.Category,
			ServiceFeeExempt: exempt,
			Source:           source,
			Waiter:           itemWaiter,
			PrintStatus:      model.PrintSkipped,
			CreatedAt:        time.Now(),
		}
		for _, compID := range in.ComplementIDs {
			comp, err := s.catalog.ResolveComplement(compID)
			if err != nil {
				return nil, err
			}
			item.Complements = append(item.Complements, *comp)
		}
		if printing.ShouldPrint(product, item) {
			item.PrintStatus = model.PrintPending
		}

		batch = append(batch, printable{item: item, product: product})
	}

	// Consumption hits the stock sink before the order is saved. A save
	// failure after deduction is a tolerated transient; counting lives in
	// the inventory module.
	for _, r := range batch {
		for _, line := range s.catalog.ExpandRecipe(r.product, r.item.Qty) {
			balance, err := s.stock.Adjust(line.IngredientID, line.Qty.Neg())
			if err != nil {
				log.Error().Err(err).Str("ingredient", line.IngredientID).Msg("estoque: baixa falhou")
				continue
			}
			if balance.LessThanOrEqual(lowStockThreshold) {
				result.LowStock = append(result.LowStock, line.IngredientID)
				log.Warn().Str("ingredient", line.IngredientID).
					Str("balance", balance.String()).Msg("estoque: saldo baixo")
			}
		}
	}

	err = s.orders.Update(tableID, func(o *model.TableOrder) error {
		if o.Locked {
			return domain.ErrTableLocked
		}
		for i := range batch {
			batch[i].item.ID = o.NextItemID
			o.NextItemID++
			o.Items = append(o.Items, batch[i].item)
			result.Items = append(result.Items, batch[i].item)
		}
		o.RecomputeTotal()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchPrint(ctx, tableID, waiter, batch, result)
	return result, nil
}

type printable struct {
	item    model.OrderItem
	product *model.Product
}

func (s *orderBookService) dispatchPrint(ctx context.Context, tableID, waiter string, batch []printable, result *AddItemsResult) {
	if s.printer == nil {
		return
	}

	job := printing.Job{
		TableID:        tableID,
		WaiterName:     waiter,
		PrinterRouting: map[int]string{},
	}
	for _, r := range batch {
		if r.item.PrintStatus != model.PrintPending {
			continue
		}
		job.Items = append(job.Items, r.item)
		job.PrinterRouting[r.item.ID] = r.product.PrinterID
	}
	if len(job.Items) == 0 {
		return
	}

	statuses := make(map[int]string, len(job.Items))
	res, err := s.printer.Dispatch(ctx, job)
	if err != nil {
		// Timeout or agent failure: items stay reprint-eligible.
		log.Warn().Err(err).Str("table", tableID).Msg("impressão: despacho falhou")
		for _, it := range job.Items {
			statuses[it.ID] = model.PrintError
			result.PrintErrors[it.ID] = err.Error()
		}
	} else {
		for _, id := range res.PrintedIDs {
			statuses[id] = model.PrintPrinted
		}
		for id, msg := range res.Errors {
			statuses[id] = model.PrintError
			result.PrintErrors[id] = msg
		}
		for _, it := range job.Items {
			if _, ok := statuses[it.ID]; !ok {
				statuses[it.ID] = model.PrintError
				result.PrintErrors[it.ID] = "sem resposta da impressora"
			}
		}
	}

	if err := s.orders.Update(tableID, func(o *model.TableOrder) error {
		for i := range o.Items {
			if st, ok := statuses[o.Items[i].ID]; ok {
				o.Items[i].PrintStatus = st
				o.Items[i].Printed = st == model.PrintPrinted
			}
		}
		return nil
	}); err != nil {
		log.Error().Err(err).Str("table", tableID).Msg("impressão: status não persistido")
	}

	for i := range result.Items {
		if st, ok := statuses[result.Items[i].ID]; ok {
			result.Items[i].PrintStatus = st
			result.Items[i].Printed = st == model.PrintPrinted
		}
	}
}

// ── RemoveItem ───────────────────────────────────────────────────────────────

func (s *orderBookService) RemoveItem(ctx context.Context, tableID string, itemID int, qty decimal.Decimal, reason string, operator *model.Operator, managerPassword string) error {
	if strings.TrimSpace(reason) == "" {
		return domain.ErrMissingJustification
	}
	if !s.authorizeRemoval(operator, managerPassword) {
		return domain.ErrUnauthorized
	}

	var removed *model.OrderItem
	err := s.orders.Update(tableID, func(o *model.TableOrder) error {
		idx := -1
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: item %d", domain.ErrNotFound, itemID)
		}

		item := o.Items[idx]
		if qty.IsZero() || qty.GreaterThan(item.Qty) {
			qty = item.Qty
		}

		snapshot := item
		snapshot.Qty = qty
		removed = &snapshot

		if qty.Equal(item.Qty) {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		} else {
			o.Items[idx].Qty = item.Qty.Sub(qty)
		}

		authorizer := ""
		if operator != nil {
			authorizer = operator.Username
		}
		o.RemovedItemsLog = append(o.RemovedItemsLog, model.RemovedItemLog{
			ItemID:     itemID,
			Name:       item.Name,
			Qty:        qty,
			Reason:     reason,
			Authorizer: authorizer,
			AfterPull:  o.ReopenedAfterPull,
			RemovedAt:  time.Now(),
		})
		if o.ReopenedAfterPull {
			o.ItemsRemovedAfterReopen = true
		}
		o.RecomputeTotal()
		return nil
	})
	if err != nil {
		return err
	}

	s.refundStock(removed)
	log.Info().Str("table", tableID).Int("item_id", itemID).Str("reason", reason).
		Msg("mesas: item removido")
	return nil
}

// authorizeRemoval: manage-level role, or a password matching any active
// gerente/admin operator.
func (s *orderBookService) authorizeRemoval(operator *model.Operator, managerPassword string) bool {
	if operator != nil && operator.CanManage() {
		return true
	}
	if managerPassword == "" {
		return false
	}
	managers, err := s.operators.Managers()
	if err != nil {
		return false
	}
	for _, m := range managers {
		if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(managerPassword)) == nil {
			return true
		}
	}
	return false
}

func (s *orderBookService) refundStock(item *model.OrderItem) {
	if item == nil || item.ProductID == "" {
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

// ── TransferItem ─────────────────────────────────────────────────────────────

func (s *orderBookService) TransferItem(ctx context.Context, srcTable, destTable string, itemID int, qty decimal.Decimal, operator *model.Operator) error {
	if operator == nil || !operator.IsManager() {
		return domain.ErrUnauthorized
	}
	if srcTable == destTable {
		return fmt.Errorf("origem e destino são a mesma mesa")
	}

	now := time.Now()
	transfer := &model.TransferRecord{FromTable: srcTable, ToTable: destTable, Operator: operator.Username, At: now}

	return s.orders.UpdateAll(func(col map[string]*model.TableOrder) error {
		src, ok := col[srcTable]
		if !ok {
			return fmt.Errorf("%w: mesa %s", domain.ErrNotFound, srcTable)
		}
		dest, ok := col[destTable]
		if !ok {
			return fmt.Errorf("%w: mesa %s", domain.ErrNotFound, destTable)
		}

		idx := -1
		for i := range src.Items {
			if src.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: item %d", domain.ErrNotFound, itemID)
		}

		item := src.Items[idx]
		if qty.IsZero() || qty.GreaterThan(item.Qty) {
			qty = item.Qty
		}

		moved := item
		moved.ID = dest.NextItemID
		moved.Qty = qty
		moved.TransferredFrom = srcTable
		moved.Observations = append(append([]string{}, item.Observations...),
			fmt.Sprintf("Transferido da mesa %s", srcTable))
		dest.NextItemID++
		dest.Items = append(dest.Items, moved)

		if qty.Equal(item.Qty) {
			src.Items = append(src.Items[:idx], src.Items[idx+1:]...)
		} else {
			src.Items[idx].Qty = item.Qty.Sub(qty)
		}

		src.LastTransfer = transfer
		dest.LastTransfer = transfer
		src.RecomputeTotal()
		dest.RecomputeTotal()
		return nil
	})
}

// ── TransferToRoom ───────────────────────────────────────────────────────────

func (s *orderBookService) TransferToRoom(ctx context.Context, tableID, roomNumber string, operator *model.Operator) (*model.RoomCharge, error) {
	room := model.NormalizeRoom(roomNumber)
	if !s.rooms.IsOccupied(room) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotOccupied, room)
	}

	order, err := s.orders.Find(tableID)
	if err != nil {
		return nil, err
	}
	order.RecomputeTotal()

	fee := order.TaxableSubtotal().Mul(s.cfg.ServiceFeeRate).Round(2)
	items := make([]model.OrderItem, len(order.Items))
	copy(items, order.Items)

	operatorName := ""
	if operator != nil {
		operatorName = operator.Username
	}

	charge := &model.RoomCharge{
		ID:              uuid.New(),
		RoomNumber:      room,
		TableID:         tableID,
		Items:           items,
		Total:           order.Total,
		ServiceFee:      fee,
		WaiterBreakdown: AllocateCommission(order.Items, order.Waiter, order.Total.Add(fee)),
		Source:          model.SourceRestaurant,
		Status:          model.ChargePending,
		Date:            time.Now(),
		AuditLog: []model.ChargeAuditEntry{{
			Action:   "created",
			Operator: operatorName,
			At:       time.Now(),
		}},
	}

	// The charge must exist before the table disappears: a crash between
	// the two writes leaves a recoverable duplicate, never lost money.
	if err := s.charges.Create(charge); err != nil {
		return nil, err
	}
	if err := s.orders.Delete(tableID); err != nil {
		return nil, err
	}

	log.Info().Str("table", tableID).Str("room", room).
		Str("total", charge.GrandTotal().StringFixed(2)).Msg("mesa transferida para quarto")
	return charge, nil
}

// ── PullBill / Unlock ────────────────────────────────────────────────────────

func (s *orderBookService) PullBill(ctx context.Context, tableID string) (string, error) {
	if err := s.orders.Update(tableID, func(o *model.TableOrder) error {
		o.Locked = true
		return nil
	}); err != nil {
		return "", err
	}

	order, err := s.orders.Find(tableID)
	if err != nil {
		return "", err
	}
	if s.renderer == nil {
		return "", nil
	}

	fee := order.TaxableSubtotal().Mul(s.cfg.ServiceFeeRate).Round(2)
	path, err := s.renderer(order, fee, s.cfg.PDFDir)
	if err != nil {
		// Rendering failures never undo the lock.
		log.Warn().Err(err).Str("table", tableID).Msg("mesas: conta não renderizada")
		return "", nil
	}
	return path, nil
}

func (s *orderBookService) Unlock(tableID string) error {
	return s.orders.Update(tableID, func(o *model.TableOrder) error {
		o.Locked = false
		o.ReopenedAfterPull = true
		o.ReopenCount++
		return nil
	})
}

// ── Close ────────────────────────────────────────────────────────────────────

func (s *orderBookService) Close(ctx context.Context, tableID string, req CloseTable, operator *model.Operator) (*CloseResult, error) {
	order, err := s.orders.Find(tableID)
	if err != nil {
		// Re-closing a settled table is a no-op.
		return &CloseResult{AlreadyClosed: true}, nil
	}
	order.RecomputeTotal()

	fee := decimal.Zero
	if !req.RemoveServiceFee {
		fee = order.TaxableSubtotal().Mul(s.cfg.ServiceFeeRate).Round(2)
	}
	grand := order.Total.Add(fee).Sub(req.Discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}
	result := &CloseResult{ItemsTotal: order.Total, ServiceFee: fee, GrandTotal: grand}

	// Zero-value tables close without a cashier.
	if grand.IsZero() && len(req.Payments) == 0 {
		if err := s.orders.Delete(tableID); err != nil {
			return nil, err
		}
		result.Closed = true
		return result, nil
	}

	if _, err := s.cashier.GetActive(model.CashierRestaurant); err != nil {
		return nil, domain.ErrCashierNotOpen
	}

	due := grand.Sub(order.PaidAmount)
	if due.IsNegative() {
		due = decimal.Zero
	}

	payments := make([]PaymentInput, 0, len(req.Payments))
	sum := decimal.Zero
	for _, p := range req.Payments {
		if p.Amount.IsPositive() {
			payments = append(payments, p)
			sum = sum.Add(p.Amount)
		}
	}
	if sum.LessThan(due.Sub(paymentTolerance)) && !req.PartialOnly {
		return nil, domain.ErrInsufficientPayment
	}

	// Change comes out of the cash leg only; it is never booked as revenue.
	if change := sum.Sub(due); change.IsPositive() && !req.PartialOnly {
		cashIdx := -1
		for i := range payments {
			if strings.EqualFold(payments[i].Method, model.CashMethod) {
				cashIdx = i
				break
			}
		}
		if cashIdx < 0 || payments[cashIdx].Amount.LessThan(change) {
			return nil, domain.ErrOverpaymentNotAllowed
		}
		payments[cashIdx].Amount = payments[cashIdx].Amount.Sub(change)
		sum = sum.Sub(change)
		result.Change = change
		if payments[cashIdx].Amount.IsZero() {
			payments = append(payments[:cashIdx], payments[cashIdx+1:]...)
		}
	}

	operatorName := ""
	if operator != nil {
		operatorName = operator.Username
	}

	// Ordering per the settlement contract: cashier first, then table
	// deletion, then fiscal enqueue.
	for _, p := range payments {
		tx := model.CashierTransaction{
			Type:            model.TxSale,
			Amount:          p.Amount,
			Description:     fmt.Sprintf("Venda Mesa %s (%s)", tableID, p.Method),
			PaymentMethod:   p.Method,
			User:            operatorName,
			WaiterBreakdown: AllocateCommission(order.Items, order.Waiter, p.Amount),
		}
		if req.RemoveServiceFee {
			tx.ServiceFeeRemoved = true
			tx.Flags = append(tx.Flags, "sem_taxa_servico")
		}
		if _, err := s.cashier.Record(model.CashierRestaurant, tx); err != nil {
			return nil, err
		}
	}

	newPaid := order.PaidAmount.Add(sum)
	if req.PartialOnly && newPaid.LessThan(grand.Sub(paymentTolerance)) {
		if err := s.orders.Update(tableID, func(o *model.TableOrder) error {
			o.PaidAmount = newPaid
			return nil
		}); err != nil {
			return nil, err
		}
		result.Partial = true
		result.PaidAmount = newPaid
		return result, nil
	}

	if err := s.orders.Delete(tableID); err != nil {
		return nil, err
	}
	result.Closed = true
	result.PaidAmount = grand

	items := make([]model.OrderItem, len(order.Items))
	copy(items, order.Items)
	_, err = s.fiscal.Enqueue(ctx, EnqueueFiscal{
		Origin: model.OriginRestaurant,
		// One sitting settles exactly once: the opened-at stamp keeps a
		// later sitting of the same table enqueueable.
		OriginalID: fmt.Sprintf("%s_%s", tableID, order.OpenedAt.UTC().Format("20060102150405")),
		Total:      grand,
		Items:      items,
		Payments:   fiscalPaymentsOf(s.catalog, payments),
		Customer:   model.CustomerInfo{Name: req.CustomerName, CPFCNPJ: req.CustomerCPFCNPJ},
		User:       operatorName,
	})
	if err != nil {
		// Money is already recorded; the pool reconciles on the next batch.
		log.Error().Err(err).Str("table", tableID).Msg("fiscal: enfileiramento falhou no fechamento")
	}

	log.Info().Str("table", tableID).Str("grand_total", grand.StringFixed(2)).
		Str("operator", operatorName).Msg("mesa fechada")
	return result, nil
}

// ── Cancel / Reprint ─────────────────────────────────────────────────────────

func (s *orderBookService) Cancel(ctx context.Context, tableID, justification string, operator *model.Operator) error {
	if strings.TrimSpace(justification) == "" {
		return domain.ErrMissingJustification
	}
	if operator == nil || !operator.CanManage() {
		return domain.ErrUnauthorized
	}

	order, err := s.orders.Find(tableID)
	if err != nil {
		return err
	}
	for i := range order.Items {
		s.refundStock(&order.Items[i])
	}
	if err := s.orders.Delete(tableID); err != nil {
		return err
	}

	log.Info().Str("table", tableID).Str("justification", justification).
		Str("operator", operator.Username).Msg("mesa cancelada, estoque estornado")
	return nil
}

func (s *orderBookService) Reprint(ctx context.Context, tableID string) (*AddItemsResult, error) {
	order, err := s.orders.Find(tableID)
	if err != nil {
		return nil, err
	}

	batch := make([]printable, 0)
	for _, it := range order.Items {
		if it.PrintStatus != model.PrintError {
			continue
		}
		product, err := s.catalog.FindProduct(it.ProductID)
		if err != nil {
			continue
		}
		it.PrintStatus = model.PrintPending
		batch = append(batch, printable{item: it, product: product})
	}

	result := &AddItemsResult{PrintErrors: map[int]string{}}
	for _, b := range batch {
		result.Items = append(result.Items, b.item)
	}
	if len(batch) == 0 {
		return result, nil
	}
	s.dispatchPrint(ctx, tableID, order.Waiter, batch, result)
	return result, nil
}
