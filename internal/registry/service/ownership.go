package service

import (
	"context"
	"errors"

	"namereg/internal/registry/models"
	"namereg/internal/registry/naming"
	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
	"namereg/pkg/platform/sentinel"
	"namereg/pkg/requestcontext"
)

// Create registers prefix under parentID and returns the new id. Children of
// the root are public; deeper children belong to the caller until
// now+domainDuration.
func (s *Service) Create(ctx context.Context, parentID id.DomainID, prefix string) (id.DomainID, error) {
	var created *models.Domain
	err := s.mutate(ctx, "create", func(ctx context.Context) error {
		caller, err := requireCaller(ctx)
		if err != nil {
			return err
		}
		if err := naming.ValidatePrefix(prefix); err != nil {
			return err
		}
		parent, err := s.find(ctx, parentID)
		if err != nil {
			return err
		}
		if err := parent.CanExtend(caller); err != nil {
			return err
		}

		name := naming.ComposeName(parent.Name, prefix)
		if _, err := s.store.FindIDByName(ctx, name); err == nil {
			return dErrors.New(models.CodeDomainAlreadyExists, "domain already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		d, err := models.NewDomain(parent, prefix, name, caller, requestcontext.Now(ctx), s.domainDuration)
		if err != nil {
			return err
		}
		if _, err := s.store.Insert(ctx, d); err != nil {
			return err
		}
		created = d
		return s.events.Emit(ctx, models.TransferEvent(id.ZeroAddress, d.Owner, d.ID))
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.IncrementDomainsCreated(created.IsPublic())
	}
	s.logAudit(ctx, "domain_created",
		"domain_id", created.ID,
		"name", created.Name,
		"owner", created.Owner.String(),
		"caller", requestcontext.Caller(ctx).String(),
	)
	s.notifyOwnershipChanged(ctx, created.ID)
	return created.ID, nil
}

// Claim hands an expired private domain to the caller with a fresh lease.
func (s *Service) Claim(ctx context.Context, domainID id.DomainID) error {
	var previous id.Address
	err := s.mutate(ctx, "claim", func(ctx context.Context) error {
		caller, err := requireCaller(ctx)
		if err != nil {
			return err
		}
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if err := d.CanClaim(caller, now); err != nil {
			return err
		}
		previous = d.Owner
		d.ApplyClaim(caller, now, s.domainDuration)
		if err := s.store.Update(ctx, d); err != nil {
			return err
		}
		return s.events.Emit(ctx, models.TransferEvent(previous, caller, domainID))
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "domain_claimed",
		"domain_id", domainID,
		"previous_owner", previous.String(),
		"caller", requestcontext.Caller(ctx).String(),
	)
	s.notifyOwnershipChanged(ctx, domainID)
	return nil
}

// Refresh renews the caller's lease on a private domain.
func (s *Service) Refresh(ctx context.Context, domainID id.DomainID) error {
	var keys []string
	err := s.mutate(ctx, "refresh", func(ctx context.Context) error {
		caller, err := requireCaller(ctx)
		if err != nil {
			return err
		}
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		if err := d.CanRefresh(caller); err != nil {
			return err
		}
		d.ApplyRefresh(requestcontext.Now(ctx), s.domainDuration)
		if err := s.store.Update(ctx, d); err != nil {
			return err
		}
		keys = s.recordKeys(ctx, domainID)
		return s.events.Emit(ctx, models.RefreshEvent(domainID, keys))
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "domain_refreshed",
		"domain_id", domainID,
		"record_keys", len(keys),
		"caller", requestcontext.Caller(ctx).String(),
	)
	return nil
}

// TransferFrom moves a private domain from its owner to `to`. The caller must
// be the owner, the domain's approved delegate or an operator of the owner.
func (s *Service) TransferFrom(ctx context.Context, from, to id.Address, domainID id.DomainID) error {
	return s.transfer(ctx, "transfer_from", from, to, domainID, nil, false)
}

// SafeTransferFrom is TransferFrom that additionally requires a registered
// receiver at `to` to accept the domain. A refusal fails with
// DomainTransferFailed and leaves ownership unchanged.
func (s *Service) SafeTransferFrom(ctx context.Context, from, to id.Address, domainID id.DomainID, data []byte) error {
	return s.transfer(ctx, "safe_transfer_from", from, to, domainID, data, true)
}

func (s *Service) transfer(ctx context.Context, operation string, from, to id.Address, domainID id.DomainID, data []byte, safe bool) error {
	err := s.mutate(ctx, operation, func(ctx context.Context) error {
		caller, err := requireCaller(ctx)
		if err != nil {
			return err
		}
		if from.IsZero() || to.IsZero() {
			return dErrors.New(models.CodeAddressIsZero, "from and to must be non-zero")
		}
		if from == to {
			return dErrors.New(models.CodeAddressesAreIdentical, "from and to are identical")
		}
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		operator, err := s.store.OperatorApproval(ctx, d.Owner, caller)
		if err != nil {
			return err
		}
		if err := d.CanTransfer(from, caller, operator); err != nil {
			return err
		}
		d.ApplyTransfer(to)
		if err := s.store.Update(ctx, d); err != nil {
			return err
		}
		if safe {
			if err := s.checkReceiver(ctx, caller, from, to, domainID, data); err != nil {
				return err
			}
		}
		return s.events.Emit(ctx, models.TransferEvent(from, to, domainID))
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "domain_transferred",
		"domain_id", domainID,
		"from", from.String(),
		"to", to.String(),
		"safe", safe,
		"caller", requestcontext.Caller(ctx).String(),
	)
	s.notifyOwnershipChanged(ctx, domainID)
	return nil
}

func (s *Service) checkReceiver(ctx context.Context, operator, from, to id.Address, domainID id.DomainID, data []byte) error {
	receiver, ok := s.receivers.Lookup(to)
	if !ok {
		return nil
	}
	accepted, err := receiver.OnDomainReceived(ctx, operator, from, domainID, data)
	if err != nil {
		return dErrors.Wrap(err, models.CodeDomainTransferFailed, "receiver failed")
	}
	if !accepted {
		return dErrors.New(models.CodeDomainTransferFailed, "receiver rejected the domain")
	}
	return nil
}

// Approve sets the single delegate allowed to transfer domainID. The zero
// address clears it.
func (s *Service) Approve(ctx context.Context, to id.Address, domainID id.DomainID) error {
	var owner id.Address
	err := s.mutate(ctx, "approve", func(ctx context.Context) error {
		caller, err := requireCaller(ctx)
		if err != nil {
			return err
		}
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		operator, err := s.store.OperatorApproval(ctx, d.Owner, caller)
		if err != nil {
			return err
		}
		if err := d.CanApprove(to, caller, operator); err != nil {
			return err
		}
		owner = d.Owner
		d.ApplyApproval(to)
		if err := s.store.Update(ctx, d); err != nil {
			return err
		}
		return s.events.Emit(ctx, models.ApprovalEvent(owner, to, domainID))
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "domain_approved",
		"domain_id", domainID,
		"owner", owner.String(),
		"approved", to.String(),
		"caller", requestcontext.Caller(ctx).String(),
	)
	return nil
}

// SetApprovalForAll grants or revokes operator's blanket rights over every
// domain the caller owns.
func (s *Service) SetApprovalForAll(ctx context.Context, operator id.Address, approved bool) error {
	err := s.mutate(ctx, "set_approval_for_all", func(ctx context.Context) error {
		caller, err := requireCaller(ctx)
		if err != nil {
			return err
		}
		if operator.IsZero() {
			return dErrors.New(models.CodeAddressIsZero, "operator is the zero address")
		}
		if operator == caller {
			return dErrors.New(models.CodeAddressesAreIdentical, "operator is the caller")
		}
		if err := s.store.SetOperatorApproval(ctx, caller, operator, approved); err != nil {
			return err
		}
		return s.events.Emit(ctx, models.ApprovalForAllEvent(caller, operator, approved))
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "operator_approval_set",
		"owner", requestcontext.Caller(ctx).String(),
		"operator", operator.String(),
		"approved", approved,
	)
	return nil
}
