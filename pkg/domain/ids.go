package domain

import (
	"strconv"

	dErrors "namereg/pkg/domain-errors"
)

// DomainID identifies a node in the name tree. Ids are allocated sequentially
// from 1 and never reused.
type DomainID uint64

// RootDomainID is the permanent, public root of the tree. Its full name is "".
const RootDomainID DomainID = 0

// ParseDomainID parses a decimal domain id.
func ParseDomainID(s string) (DomainID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "domain id is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid domain id format")
	}
	return DomainID(v), nil
}

func (id DomainID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsRoot reports whether id is the root domain.
func (id DomainID) IsRoot() bool {
	return id == RootDomainID
}
