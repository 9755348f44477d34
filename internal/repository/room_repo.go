package repository

import (
	"fmt"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// RoomRepository reads the reception's room map. Keys are canonicalized to
// two-digit form on load, so "7" and "07" address the same room.
type RoomRepository interface {
	Find(roomNumber string) (*model.RoomOccupancy, error)
	IsOccupied(roomNumber string) bool
}

type roomRepo struct{ st *store.Store }

func NewRoomRepository(st *store.Store) RoomRepository { return &roomRepo{st: st} }

func (r *roomRepo) load() (map[string]model.RoomOccupancy, error) {
	var raw map[string]model.RoomOccupancy
	if err := r.st.Load(store.KindRooms, &raw); err != nil {
		return nil, err
	}
	col := make(map[string]model.RoomOccupancy, len(raw))
	for k, v := range raw {
		key := model.NormalizeRoom(k)
		v.RoomNumber = key
		col[key] = v
	}
	return col, nil
}

func (r *roomRepo) Find(roomNumber string) (*model.RoomOccupancy, error) {
	col, err := r.load()
	if err != nil {
		return nil, err
	}
	occ, ok := col[model.NormalizeRoom(roomNumber)]
	if !ok {
		return nil, fmt.Errorf("%w: quarto %s", domain.ErrNotFound, roomNumber)
	}
	return &occ, nil
}

func (r *roomRepo) IsOccupied(roomNumber string) bool {
	occ, err := r.Find(roomNumber)
	return err == nil && occ.Active
}
