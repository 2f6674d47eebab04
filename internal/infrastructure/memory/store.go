// Package memory implementa los puertos de persistencia en memoria para desarrollo y tests.
//
// Las transacciones se serializan con un mutex y trabajan sobre una copia del estado:
// si fn devuelve error (o el contexto se cancela) la copia se descarta, igual que un Rollback.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

type state struct {
	requisitions map[string]entity.Requisition
	deliveries   map[string]entity.DeliveryItem
	loads        map[string]entity.LoadRecord
	applications map[string]entity.ApplicationDetail
	history      []entity.StatusHistoryEntry
	historySeq   int64
}

func newState() *state {
	return &state{
		requisitions: make(map[string]entity.Requisition),
		deliveries:   make(map[string]entity.DeliveryItem),
		loads:        make(map[string]entity.LoadRecord),
		applications: make(map[string]entity.ApplicationDetail),
	}
}

func (st *state) clone() *state {
	c := &state{
		requisitions: make(map[string]entity.Requisition, len(st.requisitions)),
		deliveries:   make(map[string]entity.DeliveryItem, len(st.deliveries)),
		loads:        make(map[string]entity.LoadRecord, len(st.loads)),
		applications: make(map[string]entity.ApplicationDetail, len(st.applications)),
		history:      append([]entity.StatusHistoryEntry(nil), st.history...),
		historySeq:   st.historySeq,
	}
	for k, v := range st.requisitions {
		c.requisitions[k] = v
	}
	for k, v := range st.deliveries {
		c.deliveries[k] = v
	}
	for k, v := range st.loads {
		c.loads[k] = v
	}
	for k, v := range st.applications {
		c.applications[k] = v
	}
	return c
}

// Store almacenamiento en memoria. Implementa repository.TxRunner, repository.LoadMassProcedure
// y repository.MasterDataLookup.
type Store struct {
	mu    sync.Mutex
	st    *state
	names map[repository.MasterDataKind]map[string]string
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		st:    newState(),
		names: make(map[repository.MasterDataKind]map[string]string),
	}
}

// Run ejecuta fn sobre una copia del estado y la publica solo si fn termina sin error.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.NewInfrastructure("memory.begin", err)
	}
	work := s.st.clone()
	if err := fn(ctx, reposFor(&view{st: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.NewInfrastructure("memory.commit", err)
	}
	s.st = work
	return nil
}

// Loads repositorio de cargas fuera de transacción (lecturas de la estimación local).
func (s *Store) Loads() repository.LoadRecordRepository {
	return &loadRepo{v: &view{store: s}}
}

// Applications repositorio de aplicaciones fuera de transacción.
func (s *Store) Applications() repository.ApplicationDetailRepository {
	return &applicationRepo{v: &view{store: s}}
}

// History repositorio de historial fuera de transacción.
func (s *Store) History() repository.StatusHistoryRepository {
	return &historyRepo{v: &view{store: s}}
}

// AddRequisition registra una requisición (dato maestro externo).
func (s *Store) AddRequisition(req entity.Requisition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.requisitions[req.ID] = req
}

// SetDisplayName registra el nombre para mostrar de un dato maestro.
func (s *Store) SetDisplayName(kind repository.MasterDataKind, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names[kind] == nil {
		s.names[kind] = make(map[string]string)
	}
	s.names[kind][id] = name
}

// DisplayName implementa repository.MasterDataLookup.
func (s *Store) DisplayName(_ context.Context, kind repository.MasterDataKind, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[kind][id], nil
}

// ComputeLoadMass implementa repository.LoadMassProcedure con la misma suma que la función SQL.
func (s *Store) ComputeLoadMass(ctx context.Context, loadRecordID string) (decimal.Decimal, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, decimal.Zero, domain.NewInfrastructure("memory.compute_load_mass", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	load, ok := s.st.loads[loadRecordID]
	if !ok {
		return decimal.Zero, decimal.Zero, domain.ErrNotFound
	}
	applied := decimal.Zero
	for _, a := range s.st.applications {
		if a.LoadRecordID == loadRecordID {
			applied = applied.Add(a.AppliedMass)
		}
	}
	return load.ActualMass(), applied, nil
}

// view da acceso al estado: el de una transacción (st) o el publicado, tomando el mutex (store).
type view struct {
	st    *state
	store *Store
}

func (v *view) with(fn func(st *state) error) error {
	if v.store == nil {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func reposFor(v *view) repository.Repos {
	return repository.Repos{
		Requisitions: &requisitionRepo{v: v},
		Deliveries:   &deliveryRepo{v: v},
		Loads:        &loadRepo{v: v},
		Applications: &applicationRepo{v: v},
		History:      &historyRepo{v: v},
	}
}

func sortDeliveries(items []*entity.DeliveryItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScheduledDate.Equal(items[j].ScheduledDate) {
			return items[i].ScheduledDate.Before(items[j].ScheduledDate)
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
