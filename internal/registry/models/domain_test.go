package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
)

var (
	owner    = id.BytesToAddress([]byte{0x01})
	other    = id.BytesToAddress([]byte{0x02})
	delegate = id.BytesToAddress([]byte{0x03})
	t0       = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
)

func privateDomain(t *testing.T) *Domain {
	t.Helper()
	tld, err := NewDomain(NewRoot(), "org", "org", owner, t0, time.Hour)
	require.NoError(t, err)
	tld.ID = 1
	d, err := NewDomain(tld, "ethereum", "ethereum.org", owner, t0, time.Hour)
	require.NoError(t, err)
	d.ID = 2
	return d
}

func TestNewDomainDepthRule(t *testing.T) {
	tld, err := NewDomain(NewRoot(), "org", "org", owner, t0, time.Hour)
	require.NoError(t, err)
	assert.True(t, tld.IsPublic(), "children of the root are public")
	assert.True(t, tld.ExpiresAt.IsZero())

	tld.ID = 1
	child, err := NewDomain(tld, "ethereum", "ethereum.org", owner, t0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, owner, child.Owner)
	assert.Equal(t, t0.Add(time.Hour), child.ExpiresAt)
	assert.True(t, child.Approved.IsZero())

	_, err = NewDomain(nil, "x", "x", owner, t0, time.Hour)
	assert.True(t, dErrors.HasCode(err, CodeDomainDoesNotExist))
}

func TestState(t *testing.T) {
	d := privateDomain(t)
	assert.Equal(t, StatePrivateActive, d.State(t0))
	assert.Equal(t, StatePrivateExpired, d.State(t0.Add(time.Hour)), "expiry is inclusive")
	assert.Equal(t, StatePublic, NewRoot().State(t0))
}

func TestClaimRules(t *testing.T) {
	d := privateDomain(t)

	assert.True(t, dErrors.HasCode(d.CanClaim(owner, t0.Add(2*time.Hour)), CodeDomainIsAlreadyOwnedByCaller))
	assert.True(t, dErrors.HasCode(d.CanClaim(other, t0), CodeDomainHasNotExpired))
	require.NoError(t, d.CanClaim(other, t0.Add(time.Hour)))

	d.ApplyApproval(delegate)
	d.ApplyClaim(other, t0.Add(time.Hour), time.Hour)
	assert.Equal(t, other, d.Owner)
	assert.True(t, d.Approved.IsZero())
	assert.Equal(t, t0.Add(2*time.Hour), d.ExpiresAt)

	assert.True(t, dErrors.HasCode(NewRoot().CanClaim(other, t0), CodeDomainIsPublic))
}

func TestTransferRules(t *testing.T) {
	d := privateDomain(t)

	assert.True(t, dErrors.HasCode(d.CanTransfer(other, owner, false), CodeDomainIsNotOwnedBySender))
	assert.True(t, dErrors.HasCode(d.CanTransfer(owner, other, false), CodeDomainCanNotBeTransferredByCaller))
	require.NoError(t, d.CanTransfer(owner, owner, false))
	require.NoError(t, d.CanTransfer(owner, other, true), "operators may transfer")

	d.ApplyApproval(delegate)
	require.NoError(t, d.CanTransfer(owner, delegate, false), "approved delegate may transfer")

	d.ApplyTransfer(other)
	assert.Equal(t, other, d.Owner)
	assert.True(t, d.Approved.IsZero())
}

func TestApproveRules(t *testing.T) {
	d := privateDomain(t)

	assert.True(t, dErrors.HasCode(d.CanApprove(delegate, other, false), CodeDomainCanNotBeApprovedByCaller))
	assert.True(t, dErrors.HasCode(d.CanApprove(owner, owner, false), CodeAddressesAreIdentical))
	assert.True(t, dErrors.HasCode(d.CanApprove(other, other, true), CodeAddressesAreIdentical),
		"an operator may not approve itself")
	require.NoError(t, d.CanApprove(delegate, other, true))
	require.NoError(t, d.CanApprove(id.ZeroAddress, owner, false), "zero clears the delegate")
}

func TestRefreshEventNeverNilKeys(t *testing.T) {
	e := RefreshEvent(2, nil)
	assert.NotNil(t, e.RecordKeys)
	assert.Empty(t, e.RecordKeys)
	assert.False(t, e.ChangesOwnership())
	assert.True(t, TransferEvent(owner, other, 2).ChangesOwnership())
}

func TestSeedFileValidate(t *testing.T) {
	ok := SeedFile{
		Deployer: other.Hex(),
		Public:   []string{"org", "com"},
		Private: []SeedEntry{{Name: "ethereum.org", Owner: owner.Hex()}},
	}
	require.NoError(t, ok.Validate())

	bad := SeedFile{Deployer: other.Hex(), Public: []string{"co.uk"}}
	assert.True(t, dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidInput))

	bad = SeedFile{Public: []string{"org"}}
	assert.True(t, dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidInput))

	bad = SeedFile{Private: []SeedEntry{{Name: "org", Owner: owner.Hex()}}}
	assert.True(t, dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidInput))

	bad = SeedFile{Private: []SeedEntry{{Name: "a.org", Owner: "nope"}}}
	assert.True(t, dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidInput))

	bad = SeedFile{Private: []SeedEntry{{Name: "a.org", Owner: id.ZeroAddress.Hex()}}}
	assert.True(t, dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidInput))
}
