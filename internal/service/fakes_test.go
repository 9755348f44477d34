package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/printing"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// In-memory repository fakes. They reproduce the store semantics the
// services rely on: Find returns a decoded copy, only Update/Put persist.

// ── orders ───────────────────────────────────────────────────────────────────

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.TableOrder
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*model.TableOrder)}
}

func cloneOrder(o *model.TableOrder) *model.TableOrder {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	c.RemovedItemsLog = append([]model.RemovedItemLog(nil), o.RemovedItemsLog...)
	return &c
}

func (r *memOrderRepo) Find(tableID string) (*model.TableOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: mesa %s", domain.ErrNotFound, tableID)
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) Exists(tableID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.orders[tableID]
	return ok
}

func (r *memOrderRepo) List() ([]model.TableOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TableOrder, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *cloneOrder(o))
	}
	return out, nil
}

func (r *memOrderRepo) Put(order *model.TableOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.TableID] = cloneOrder(order)
	return nil
}

func (r *memOrderRepo) Delete(tableID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[tableID]; !ok {
		return fmt.Errorf("%w: mesa %s", domain.ErrNotFound, tableID)
	}
	delete(r.orders, tableID)
	return nil
}

func (r *memOrderRepo) Update(tableID string, fn func(*model.TableOrder) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[tableID]
	if !ok {
		return fmt.Errorf("%w: mesa %s", domain.ErrNotFound, tableID)
	}
	c := cloneOrder(o)
	if err := fn(c); err != nil {
		return err
	}
	r.orders[tableID] = c
	return nil
}

func (r *memOrderRepo) UpdateAll(fn func(map[string]*model.TableOrder) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work := make(map[string]*model.TableOrder, len(r.orders))
	for k, v := range r.orders {
		work[k] = cloneOrder(v)
	}
	if err := fn(work); err != nil {
		return err
	}
	r.orders = work
	return nil
}

// ── charges ──────────────────────────────────────────────────────────────────

type memChargeRepo struct {
	mu      sync.Mutex
	charges []model.RoomCharge
	saves   int // one increment per persisted write
}

func newMemChargeRepo() *memChargeRepo { return &memChargeRepo{} }

func (r *memChargeRepo) Create(charge *model.RoomCharge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	charge.RoomNumber = model.NormalizeRoom(charge.RoomNumber)
	r.charges = append(r.charges, *charge)
	r.saves++
	return nil
}

func (r *memChargeRepo) FindByID(id uuid.UUID) (*model.RoomCharge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.charges {
		if r.charges[i].ID == id {
			c := r.charges[i]
			c.Items = append([]model.OrderItem(nil), r.charges[i].Items...)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: consumo %s", domain.ErrNotFound, id)
}

func (r *memChargeRepo) List() ([]model.RoomCharge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RoomCharge(nil), r.charges...), nil
}

func (r *memChargeRepo) ListPending(roomNumber string) ([]model.RoomCharge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := model.NormalizeRoom(roomNumber)
	var out []model.RoomCharge
	for _, c := range r.charges {
		if c.Status == model.ChargePending && (room == "" || c.RoomNumber == room) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memChargeRepo) Update(id uuid.UUID, fn func(*model.RoomCharge) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.charges {
		if r.charges[i].ID == id {
			if err := fn(&r.charges[i]); err != nil {
				return err
			}
			r.saves++
			return nil
		}
	}
	return fmt.Errorf("%w: consumo %s", domain.ErrNotFound, id)
}

func (r *memChargeRepo) UpdateBatch(ids []uuid.UUID, fn func(*model.RoomCharge) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range r.charges {
		if want[r.charges[i].ID] {
			if err := fn(&r.charges[i]); err != nil {
				return err
			}
		}
	}
	r.saves++
	return nil
}

// ── rooms / stock / operators ────────────────────────────────────────────────

type memRoomRepo struct{ occupied map[string]string } // room → guest

func newMemRoomRepo(rooms ...string) *memRoomRepo {
	r := &memRoomRepo{occupied: make(map[string]string)}
	for _, room := range rooms {
		r.occupied[model.NormalizeRoom(room)] = "Hóspede Teste"
	}
	return r
}

func (r *memRoomRepo) Find(roomNumber string) (*model.RoomOccupancy, error) {
	room := model.NormalizeRoom(roomNumber)
	guest, ok := r.occupied[room]
	if !ok {
		return nil, fmt.Errorf("%w: quarto %s", domain.ErrNotFound, room)
	}
	return &model.RoomOccupancy{RoomNumber: room, GuestName: guest, Active: true}, nil
}

func (r *memRoomRepo) IsOccupied(roomNumber string) bool {
	_, ok := r.occupied[model.NormalizeRoom(roomNumber)]
	return ok
}

type memStockRepo struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{balances: make(map[string]decimal.Decimal)}
}

func (r *memStockRepo) Adjust(ingredientID string, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[ingredientID] = r.balances[ingredientID].Add(delta)
	return r.balances[ingredientID], nil
}

func (r *memStockRepo) Balance(ingredientID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[ingredientID], nil
}

type memOperatorRepo struct{ operators []model.Operator }

func (r *memOperatorRepo) FindByUsername(username string) (*model.Operator, error) {
	for i := range r.operators {
		if strings.EqualFold(r.operators[i].Username, username) && r.operators[i].Active {
			return &r.operators[i], nil
		}
	}
	return nil, fmt.Errorf("%w: operador %s", domain.ErrNotFound, username)
}

func (r *memOperatorRepo) FindByID(id uuid.UUID) (*model.Operator, error) {
	for i := range r.operators {
		if r.operators[i].ID == id {
			return &r.operators[i], nil
		}
	}
	return nil, fmt.Errorf("%w: operador %s", domain.ErrNotFound, id)
}

func (r *memOperatorRepo) Managers() ([]model.Operator, error) {
	var out []model.Operator
	for _, o := range r.operators {
		if o.Active && (o.Role == model.RoleGerente || o.Role == model.RoleAdmin) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ── cashier sessions ─────────────────────────────────────────────────────────

type memCashierRepo struct {
	mu       sync.Mutex
	sessions []model.CashierSession
}

func newMemCashierRepo() *memCashierRepo { return &memCashierRepo{} }

func (r *memCashierRepo) CreateSession(s *model.CashierSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].Type == s.Type && r.sessions[i].Status == model.SessionOpen {
			return domain.ErrDuplicateOpenSession
		}
	}
	r.sessions = append(r.sessions, *s)
	return nil
}

func (r *memCashierRepo) FindByID(id uuid.UUID) (*model.CashierSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			s := r.sessions[i]
			s.Transactions = append([]model.CashierTransaction(nil), r.sessions[i].Transactions...)
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: caixa %s", domain.ErrNotFound, id)
}

func (r *memCashierRepo) FindOpenByType(sessionType string) (*model.CashierSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].Type == sessionType && r.sessions[i].Status == model.SessionOpen {
			s := r.sessions[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: caixa %s aberto", domain.ErrNotFound, sessionType)
}

func (r *memCashierRepo) Update(id uuid.UUID, fn func(*model.CashierSession) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			return fn(&r.sessions[i])
		}
	}
	return fmt.Errorf("%w: caixa %s", domain.ErrNotFound, id)
}

func (r *memCashierRepo) AppendTransaction(sessionID uuid.UUID, tx model.CashierTransaction) error {
	return r.Update(sessionID, func(s *model.CashierSession) error {
		s.Transactions = append(s.Transactions, tx)
		return nil
	})
}

func (r *memCashierRepo) History(start, end time.Time, typeFilter string) ([]model.CashierSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CashierSession
	for _, s := range r.sessions {
		if s.Status != model.SessionClosed {
			continue
		}
		if typeFilter != "" && s.Type != typeFilter {
			continue
		}
		if !start.IsZero() && s.OpenedAt.Before(start) {
			continue
		}
		if !end.IsZero() && s.OpenedAt.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memCashierRepo) List() ([]model.CashierSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.CashierSession(nil), r.sessions...), nil
}

// ── fiscal pool ──────────────────────────────────────────────────────────────

type memFiscalRepo struct {
	mu      sync.Mutex
	entries []model.FiscalPoolEntry
}

func newMemFiscalRepo() *memFiscalRepo { return &memFiscalRepo{} }

func (r *memFiscalRepo) CreateIfAbsent(entry *model.FiscalPoolEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		e := &r.entries[i]
		if e.Origin == entry.Origin && e.OriginalID == entry.OriginalID && e.Active() {
			return false, nil
		}
	}
	r.entries = append(r.entries, *entry)
	return true, nil
}

func (r *memFiscalRepo) FindByID(id uuid.UUID) (*model.FiscalPoolEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, fmt.Errorf("%w: nota %s", domain.ErrNotFound, id)
}

func (r *memFiscalRepo) Update(id uuid.UUID, fn func(*model.FiscalPoolEntry) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			return fn(&r.entries[i])
		}
	}
	return fmt.Errorf("%w: nota %s", domain.ErrNotFound, id)
}

func (r *memFiscalRepo) List(filter repository.FiscalFilter) ([]model.FiscalPoolEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FiscalPoolEntry
	for _, e := range r.entries {
		if filter.Origin != "" && e.Origin != filter.Origin {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && e.ClosedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.ClosedAt.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ── catalog ──────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	products map[string]*model.Product
	methods  map[string]*model.PaymentMethod
	comps    map[string]*model.Complement
}

func newFakeCatalog(products ...*model.Product) *fakeCatalog {
	c := &fakeCatalog{
		products: make(map[string]*model.Product),
		methods:  make(map[string]*model.PaymentMethod),
		comps:    make(map[string]*model.Complement),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) FindProduct(idOrName string) (*model.Product, error) {
	if p, ok := c.products[idOrName]; ok {
		return p, nil
	}
	for _, p := range c.products {
		if strings.EqualFold(p.Name, idOrName) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: produto %s", domain.ErrNotFound, idOrName)
}

func (c *fakeCatalog) RequireSellable(idOrName string) (*model.Product, error) {
	p, err := c.FindProduct(idOrName)
	if err != nil {
		return nil, err
	}
	if p.Paused {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductPaused, p.Name)
	}
	return p, nil
}

func (c *fakeCatalog) ExpandRecipe(product *model.Product, qty decimal.Decimal) []model.RecipeLine {
	out := make([]model.RecipeLine, 0, len(product.Recipe))
	for _, line := range product.Recipe {
		out = append(out, model.RecipeLine{IngredientID: line.IngredientID, Qty: line.Qty.Mul(qty)})
	}
	return out
}

func (c *fakeCatalog) ResolveComplement(id string) (*model.Complement, error) {
	if comp, ok := c.comps[id]; ok {
		return comp, nil
	}
	return nil, fmt.Errorf("%w: complemento %s", domain.ErrNotFound, id)
}

func (c *fakeCatalog) List() ([]model.Product, error) {
	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	return out, nil
}

func (c *fakeCatalog) PaymentMethod(name string) (*model.PaymentMethod, error) {
	if m, ok := c.methods[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: método %s", domain.ErrNotFound, name)
}

// ── async side effects ───────────────────────────────────────────────────────

type fakeDispatcher struct {
	mu        sync.Mutex
	emissions []uuid.UUID
	reports   []uuid.UUID
	fail      bool
}

func (d *fakeDispatcher) EnqueueEmission(_ context.Context, entryID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("fila indisponível")
	}
	d.emissions = append(d.emissions, entryID)
	return nil
}

func (d *fakeDispatcher) EnqueueReport(_ context.Context, sessionID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("fila indisponível")
	}
	d.reports = append(d.reports, sessionID)
	return nil
}

type fakeEmitter struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *fakeEmitter) Emit(_ context.Context, _ infra.FiscalPayload) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return uuid.NewString(), nil
}

type fakePrinter struct {
	mu     sync.Mutex
	jobs   []printing.Job
	result *printing.Result
	err    error
}

func (p *fakePrinter) Dispatch(_ context.Context, job printing.Job) (*printing.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	if p.err != nil {
		return nil, p.err
	}
	if p.result != nil {
		return p.result, nil
	}
	ids := make([]int, 0, len(job.Items))
	for _, it := range job.Items {
		ids = append(ids, it.ID)
	}
	return &printing.Result{PrintedIDs: ids}, nil
}
