package repository

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// ChargeRepository owns the room_charges collection. Room numbers are
// canonicalized to two-digit form on every write and lookup.
type ChargeRepository interface {
	Create(charge *model.RoomCharge) error
	FindByID(id uuid.UUID) (*model.RoomCharge, error)
	List() ([]model.RoomCharge, error)
	ListPending(roomNumber string) ([]model.RoomCharge, error)
	Update(id uuid.UUID, fn func(*model.RoomCharge) error) error
	// UpdateBatch mutates several charges in one atomic save — used when a
	// room account is closed and all its pending charges flip to paid.
	UpdateBatch(ids []uuid.UUID, fn func(*model.RoomCharge) error) error
}

type chargeRepo struct{ st *store.Store }

func NewChargeRepository(st *store.Store) ChargeRepository { return &chargeRepo{st: st} }

func (r *chargeRepo) Create(charge *model.RoomCharge) error {
	charge.RoomNumber = model.NormalizeRoom(charge.RoomNumber)
	return store.Update(r.st, store.KindRoomCharges, func(col *[]model.RoomCharge) error {
		*col = append(*col, *charge)
		return nil
	})
}

func (r *chargeRepo) FindByID(id uuid.UUID) (*model.RoomCharge, error) {
	charges, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range charges {
		if charges[i].ID == id {
			return &charges[i], nil
		}
	}
	return nil, fmt.Errorf("%w: consumo %s", domain.ErrNotFound, id)
}

func (r *chargeRepo) List() ([]model.RoomCharge, error) {
	var col []model.RoomCharge
	if err := r.st.Load(store.KindRoomCharges, &col); err != nil {
		return nil, err
	}
	for i := range col {
		col[i].RoomNumber = model.NormalizeRoom(col[i].RoomNumber)
	}
	return col, nil
}

func (r *chargeRepo) ListPending(roomNumber string) ([]model.RoomCharge, error) {
	charges, err := r.List()
	if err != nil {
		return nil, err
	}
	room := model.NormalizeRoom(roomNumber)
	out := make([]model.RoomCharge, 0)
	for _, c := range charges {
		if c.Status != model.ChargePending {
			continue
		}
		if roomNumber != "" && c.RoomNumber != room {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *chargeRepo) Update(id uuid.UUID, fn func(*model.RoomCharge) error) error {
	return r.UpdateBatch([]uuid.UUID{id}, fn)
}

func (r *chargeRepo) UpdateBatch(ids []uuid.UUID, fn func(*model.RoomCharge) error) error {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return store.Update(r.st, store.KindRoomCharges, func(col *[]model.RoomCharge) error {
		found := 0
		for i := range *col {
			if !want[(*col)[i].ID] {
				continue
			}
			found++
			(*col)[i].RoomNumber = model.NormalizeRoom((*col)[i].RoomNumber)
			if err := fn(&(*col)[i]); err != nil {
				return err
			}
		}
		if found != len(ids) {
			return fmt.Errorf("%w: %d de %d consumos", domain.ErrNotFound, found, len(ids))
		}
		return nil
	})
}
