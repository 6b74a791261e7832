package models

import (
	"time"

	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
)

// State is the derived ownership state of a domain.
type State string

const (
	StatePublic         State = "public"
	StatePrivateActive  State = "private_active"
	StatePrivateExpired State = "private_expired"
)

// Domain is a node in the name tree.
//
// Invariants:
//   - the root (id 0) has an empty prefix and name and is always public
//   - every other domain has a non-empty prefix with no separator
//   - Owner is ZeroAddress exactly when the domain is public
//   - Approved is ZeroAddress for public domains and after every ownership change
//   - ParentID is a plain index into the tree, never an owning reference
type Domain struct {
	ID        id.DomainID `json:"id"`
	ParentID  id.DomainID `json:"parent_id"`
	Prefix    string      `json:"prefix"`
	Name      string      `json:"name"`
	Owner     id.Address  `json:"owner"`
	Approved  id.Address  `json:"approved"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// NewRoot returns the permanent root domain.
func NewRoot() *Domain {
	return &Domain{ID: id.RootDomainID}
}

// NewDomain builds a child of parent. Children of the root are public;
// deeper children are owned by caller until now+ttl.
func NewDomain(parent *Domain, prefix, name string, caller id.Address, now time.Time, ttl time.Duration) (*Domain, error) {
	if parent == nil {
		return nil, dErrors.New(CodeDomainDoesNotExist, "parent domain does not exist")
	}
	d := &Domain{
		ParentID: parent.ID,
		Prefix:   prefix,
		Name:     name,
	}
	if !parent.IsRoot() {
		d.Owner = caller
		d.ExpiresAt = now.Add(ttl)
	}
	return d, nil
}

func (d *Domain) IsRoot() bool {
	return d.ID.IsRoot()
}

func (d *Domain) IsPublic() bool {
	return d.Owner.IsZero()
}

// IsExpired reports whether a private domain is reclaimable at now.
// Expiry is inclusive: a domain expiring at t is reclaimable at t.
func (d *Domain) IsExpired(now time.Time) bool {
	return !d.IsPublic() && !now.Before(d.ExpiresAt)
}

// State derives the lifecycle state at now.
func (d *Domain) State(now time.Time) State {
	switch {
	case d.IsPublic():
		return StatePublic
	case d.IsExpired(now):
		return StatePrivateExpired
	default:
		return StatePrivateActive
	}
}

// CanExtend checks whether caller may create children under d.
func (d *Domain) CanExtend(caller id.Address) error {
	if d.IsPublic() || d.Owner == caller {
		return nil
	}
	return dErrors.New(CodeDomainIsNotOwnedByCaller, "domain is not owned by caller")
}

// CanClaim checks whether caller may take over d at now.
func (d *Domain) CanClaim(caller id.Address, now time.Time) error {
	if d.IsPublic() {
		return dErrors.New(CodeDomainIsPublic, "domain is public")
	}
	if d.Owner == caller {
		return dErrors.New(CodeDomainIsAlreadyOwnedByCaller, "domain is already owned by caller")
	}
	if !d.IsExpired(now) {
		return dErrors.New(CodeDomainHasNotExpired, "domain has not expired")
	}
	return nil
}

// ApplyClaim hands d to caller with a fresh lease.
func (d *Domain) ApplyClaim(caller id.Address, now time.Time, ttl time.Duration) {
	d.Owner = caller
	d.Approved = id.ZeroAddress
	d.ExpiresAt = now.Add(ttl)
}

// CanRefresh checks whether caller may renew d.
func (d *Domain) CanRefresh(caller id.Address) error {
	if d.IsPublic() {
		return dErrors.New(CodeDomainIsPublic, "domain is public")
	}
	if d.Owner != caller {
		return dErrors.New(CodeDomainIsNotOwnedByCaller, "domain is not owned by caller")
	}
	return nil
}

// ApplyRefresh renews the lease without changing ownership.
func (d *Domain) ApplyRefresh(now time.Time, ttl time.Duration) {
	d.ExpiresAt = now.Add(ttl)
}

// CanTransfer checks the domain-level transfer rules. operator reports
// whether caller holds blanket approval from the current owner.
func (d *Domain) CanTransfer(from, caller id.Address, operator bool) error {
	if d.IsPublic() {
		return dErrors.New(CodeDomainIsPublic, "domain is public")
	}
	if d.Owner != from {
		return dErrors.New(CodeDomainIsNotOwnedBySender, "domain is not owned by sender")
	}
	if caller != d.Owner && caller != d.Approved && !operator {
		return dErrors.New(CodeDomainCanNotBeTransferredByCaller, "domain can not be transferred by caller")
	}
	return nil
}

// ApplyTransfer moves ownership and clears the single-domain approval.
// The lease is left untouched.
func (d *Domain) ApplyTransfer(to id.Address) {
	d.Owner = to
	d.Approved = id.ZeroAddress
}

// CanApprove checks whether caller may set the approved delegate to `to`.
func (d *Domain) CanApprove(to, caller id.Address, operator bool) error {
	if d.IsPublic() {
		return dErrors.New(CodeDomainIsPublic, "domain is public")
	}
	if caller != d.Owner && !operator {
		return dErrors.New(CodeDomainCanNotBeApprovedByCaller, "domain can not be approved by caller")
	}
	if to == d.Owner || to == caller {
		return dErrors.New(CodeAddressesAreIdentical, "approved address is the owner or caller")
	}
	return nil
}

// ApplyApproval sets (or with ZeroAddress clears) the approved delegate.
func (d *Domain) ApplyApproval(to id.Address) {
	d.Approved = to
}

// Clone returns a copy safe to mutate independently of d.
func (d *Domain) Clone() *Domain {
	c := *d
	return &c
}
