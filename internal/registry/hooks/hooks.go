// Package hooks defines the registry's outbound collaborators: the external
// record store and contract-style transfer receivers.
package hooks

import (
	"context"
	"sync"

	id "namereg/pkg/domain"
)

//go:generate mockgen -source=hooks.go -destination=mocks/mocks.go -package=mocks RecordHook,TransferReceiver

// RecordHook is notified of lifecycle changes. It never mutates registry
// state, and its failures never fail a registry operation.
type RecordHook interface {
	// OwnershipChanged runs after a create, claim or transfer has committed.
	OwnershipChanged(ctx context.Context, domainID id.DomainID) error
	// Refreshed returns the record keys renewed with the domain. They are
	// carried on the Refresh event.
	Refreshed(ctx context.Context, domainID id.DomainID) ([]string, error)
}

// TransferReceiver is consulted on safe transfers to its address and must
// accept the domain for the transfer to complete.
type TransferReceiver interface {
	OnDomainReceived(ctx context.Context, operator, from id.Address, domainID id.DomainID, data []byte) (bool, error)
}

// Receivers maps addresses to their TransferReceiver. Addresses without an
// entry accept every safe transfer.
type Receivers struct {
	mu        sync.RWMutex
	receivers map[id.Address]TransferReceiver
}

func NewReceivers() *Receivers {
	return &Receivers{receivers: make(map[id.Address]TransferReceiver)}
}

// Register installs r for addr. A nil r removes the entry.
func (r *Receivers) Register(addr id.Address, receiver TransferReceiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if receiver == nil {
		delete(r.receivers, addr)
		return
	}
	r.receivers[addr] = receiver
}

// Lookup returns the receiver for addr, if any.
func (r *Receivers) Lookup(addr id.Address) (TransferReceiver, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	receiver, ok := r.receivers[addr]
	return receiver, ok
}
