package domain

import (
	"context"
	"sync"

	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
)

type operatorKey struct {
	owner    id.Address
	operator id.Address
}

// InMemory keeps the tree in an arena indexed by domain id. Parent links are
// plain ids into the same slice. Stored domains are private copies; callers
// always receive clones.
//
// Writes made inside RunInTx are journaled and undone if the callback fails.
type InMemory struct {
	mu        sync.RWMutex
	domains   []*models.Domain
	names     map[string]id.DomainID
	balances  map[id.Address]int
	operators map[operatorKey]bool
}

// NewInMemory returns a store holding only the root domain.
func NewInMemory() *InMemory {
	root := models.NewRoot()
	return &InMemory{
		domains:   []*models.Domain{root},
		names:     map[string]id.DomainID{root.Name: root.ID},
		balances:  map[id.Address]int{id.ZeroAddress: 1},
		operators: make(map[operatorKey]bool),
	}
}

type journalKey struct{}

type journal struct {
	undo []func()
}

// RunInTx runs fn and rolls back every write it made if it returns an error.
// Nested calls join the outer journal.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// record must be called with s.mu held.
func (s *InMemory) record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

func (s *InMemory) FindByID(_ context.Context, domainID id.DomainID) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uint64(domainID) >= uint64(len(s.domains)) {
		return nil, sentinel.ErrNotFound
	}
	return s.domains[domainID].Clone(), nil
}

func (s *InMemory) FindIDByName(_ context.Context, name string) (id.DomainID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	domainID, ok := s.names[name]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return domainID, nil
}

// Insert allocates the next id for d and indexes it by name. d.ID is set on
// success. Returns sentinel.ErrAlreadyUsed if the name is taken and
// sentinel.ErrNotFound if the parent is missing.
func (s *InMemory) Insert(ctx context.Context, d *models.Domain) (id.DomainID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(d.ParentID) >= uint64(len(s.domains)) {
		return 0, sentinel.ErrNotFound
	}
	if _, taken := s.names[d.Name]; taken {
		return 0, sentinel.ErrAlreadyUsed
	}

	d.ID = id.DomainID(len(s.domains))
	stored := d.Clone()
	s.domains = append(s.domains, stored)
	s.names[stored.Name] = stored.ID
	s.balances[stored.Owner]++

	s.record(ctx, func() {
		s.domains = s.domains[:len(s.domains)-1]
		delete(s.names, stored.Name)
		s.decrementBalance(stored.Owner)
	})
	return d.ID, nil
}

// Update overwrites the mutable fields (owner, approval, expiry) of an
// existing domain. Names and parents never change.
func (s *InMemory) Update(ctx context.Context, d *models.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(d.ID) >= uint64(len(s.domains)) {
		return sentinel.ErrNotFound
	}
	previous := s.domains[d.ID]
	next := previous.Clone()
	next.Owner = d.Owner
	next.Approved = d.Approved
	next.ExpiresAt = d.ExpiresAt

	s.domains[d.ID] = next
	s.decrementBalance(previous.Owner)
	s.balances[next.Owner]++

	s.record(ctx, func() {
		s.domains[previous.ID] = previous
		s.decrementBalance(next.Owner)
		s.balances[previous.Owner]++
	})
	return nil
}

func (s *InMemory) CountByOwner(_ context.Context, owner id.Address) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[owner], nil
}

func (s *InMemory) OperatorApproval(_ context.Context, owner, operator id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operators[operatorKey{owner, operator}], nil
}

func (s *InMemory) SetOperatorApproval(ctx context.Context, owner, operator id.Address, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := operatorKey{owner, operator}
	previous, existed := s.operators[key]
	if approved {
		s.operators[key] = true
	} else {
		delete(s.operators, key)
	}
	s.record(ctx, func() {
		if existed {
			s.operators[key] = previous
		} else {
			delete(s.operators, key)
		}
	})
	return nil
}

// Count returns the number of domains including the root.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.domains), nil
}

func (s *InMemory) decrementBalance(owner id.Address) {
	if s.balances[owner] <= 1 {
		delete(s.balances, owner)
		return
	}
	s.balances[owner]--
}
