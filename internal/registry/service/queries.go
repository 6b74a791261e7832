package service

import (
	"context"

	"namereg/internal/registry/introspection"
	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
	"namereg/pkg/requestcontext"
)

// OwnerOf returns the owner of domainID, or the zero address if it is public.
func (s *Service) OwnerOf(ctx context.Context, domainID id.DomainID) (id.Address, error) {
	var owner id.Address
	err := s.read(ctx, "owner_of", func(ctx context.Context) error {
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		owner = d.Owner
		return nil
	})
	return owner, err
}

// BalanceOf counts the domains owned by owner. For the zero address this is
// the number of public domains, root included.
func (s *Service) BalanceOf(ctx context.Context, owner id.Address) (int, error) {
	var balance int
	err := s.read(ctx, "balance_of", func(ctx context.Context) error {
		var err error
		balance, err = s.store.CountByOwner(ctx, owner)
		return err
	})
	return balance, err
}

// GetApproved returns the approved delegate of a private domain, or the zero
// address if none is set.
func (s *Service) GetApproved(ctx context.Context, domainID id.DomainID) (id.Address, error) {
	var approved id.Address
	err := s.read(ctx, "get_approved", func(ctx context.Context) error {
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		if d.IsPublic() {
			return dErrors.New(models.CodeDomainIsPublic, "domain is public")
		}
		approved = d.Approved
		return nil
	})
	return approved, err
}

// IsApprovedForAll reports whether operator holds blanket rights from owner.
func (s *Service) IsApprovedForAll(ctx context.Context, owner, operator id.Address) (bool, error) {
	var approved bool
	err := s.read(ctx, "is_approved_for_all", func(ctx context.Context) error {
		if owner.IsZero() || operator.IsZero() {
			return dErrors.New(models.CodeAddressIsZero, "owner and operator must be non-zero")
		}
		if owner == operator {
			return dErrors.New(models.CodeAddressesAreIdentical, "owner and operator are identical")
		}
		var err error
		approved, err = s.store.OperatorApproval(ctx, owner, operator)
		return err
	})
	return approved, err
}

// NameOf returns the full dotted name of domainID. The root's name is "".
func (s *Service) NameOf(ctx context.Context, domainID id.DomainID) (string, error) {
	var name string
	err := s.read(ctx, "name_of", func(ctx context.Context) error {
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		name = d.Name
		return nil
	})
	return name, err
}

// IdOf resolves a full dotted name.
func (s *Service) IdOf(ctx context.Context, name string) (id.DomainID, error) {
	var domainID id.DomainID
	err := s.read(ctx, "id_of", func(ctx context.Context) error {
		if cached, ok := s.cachedID(ctx, name); ok {
			domainID = cached
			return nil
		}
		var err error
		domainID, err = s.store.FindIDByName(ctx, name)
		if err != nil {
			return err
		}
		s.cacheID(ctx, name, domainID)
		return nil
	})
	return domainID, err
}

func (s *Service) cachedID(ctx context.Context, name string) (id.DomainID, bool) {
	if s.names == nil {
		return 0, false
	}
	domainID, ok, err := s.names.Get(ctx, name)
	switch {
	case err != nil:
		s.recordNameCache("error")
		s.logger.WarnContext(ctx, "name cache lookup failed", "error", err)
		return 0, false
	case !ok:
		s.recordNameCache("miss")
		return 0, false
	default:
		s.recordNameCache("hit")
		return domainID, true
	}
}

// cacheID only ever stores committed names: reads hold the read lock, so no
// transaction is in flight.
func (s *Service) cacheID(ctx context.Context, name string, domainID id.DomainID) {
	if s.names == nil {
		return
	}
	if err := s.names.Set(ctx, name, domainID); err != nil {
		s.logger.WarnContext(ctx, "name cache write failed", "error", err)
	}
}

func (s *Service) recordNameCache(result string) {
	if s.metrics != nil {
		s.metrics.RecordNameCache(result)
	}
}

// SupportsInterface reports whether interfaceID is a recognized capability.
func (s *Service) SupportsInterface(interfaceID introspection.InterfaceID) bool {
	return introspection.Supports(interfaceID)
}

// Domain returns the full read model of domainID with its state at the
// request time.
func (s *Service) Domain(ctx context.Context, domainID id.DomainID) (*models.DomainResponse, error) {
	var resp *models.DomainResponse
	err := s.read(ctx, "domain", func(ctx context.Context) error {
		d, err := s.find(ctx, domainID)
		if err != nil {
			return err
		}
		resp = &models.DomainResponse{Domain: d, State: d.State(requestcontext.Now(ctx))}
		return nil
	})
	return resp, err
}
