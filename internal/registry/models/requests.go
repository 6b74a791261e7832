package models

import (
	"strings"

	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
)

// CreateDomainRequest is the HTTP body for POST /domains.
type CreateDomainRequest struct {
	ParentID id.DomainID `json:"parent_id"`
	Prefix   string      `json:"prefix"`
}

// TransferRequest is the HTTP body for POST /domains/{id}/transfer.
// Data is forwarded to a registered receiver on safe transfers.
type TransferRequest struct {
	From id.Address `json:"from"`
	To   id.Address `json:"to"`
	Safe bool       `json:"safe"`
	Data []byte     `json:"data,omitempty"`
}

// ApproveRequest is the HTTP body for POST /domains/{id}/approve.
type ApproveRequest struct {
	To id.Address `json:"to"`
}

// SetApprovalForAllRequest is the HTTP body for PUT /operators/{operator}.
type SetApprovalForAllRequest struct {
	Approved bool `json:"approved"`
}

// DomainResponse is the read model returned by GET /domains/{id}.
type DomainResponse struct {
	*Domain
	State State `json:"state"`
}

// SeedEntry is one line of a seed file.
type SeedEntry struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
}

// SeedFile lists names created at boot. Public entries must be top-level and
// are created with Deployer as the caller.
type SeedFile struct {
	Deployer string      `yaml:"deployer"`
	Public   []string    `yaml:"public"`
	Private  []SeedEntry `yaml:"private"`
}

// Validate rejects entries that could never be created.
func (f *SeedFile) Validate() error {
	if len(f.Public) > 0 {
		deployer, err := id.ParseAddress(f.Deployer)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "public seed entries need a deployer address")
		}
		if deployer.IsZero() {
			return dErrors.New(dErrors.CodeInvalidInput, "deployer must not be the zero address")
		}
	}
	for _, name := range f.Public {
		if strings.TrimSpace(name) == "" || strings.Contains(name, ".") {
			return dErrors.New(dErrors.CodeInvalidInput, "public seed entries must be single labels: "+name)
		}
	}
	for _, entry := range f.Private {
		if !strings.Contains(entry.Name, ".") {
			return dErrors.New(dErrors.CodeInvalidInput, "private seed entries need at least two labels: "+entry.Name)
		}
		owner, err := id.ParseAddress(entry.Owner)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid owner for "+entry.Name)
		}
		if owner.IsZero() {
			return dErrors.New(dErrors.CodeInvalidInput, "zero owner for "+entry.Name)
		}
	}
	return nil
}
