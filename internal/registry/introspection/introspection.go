// Package introspection answers capability queries. Identifiers follow the
// ERC-165 convention: the XOR of the 4-byte Keccak-256 selectors of every
// function in the capability.
package introspection

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "namereg/pkg/domain-errors"
)

// InterfaceID is a 4-byte capability identifier.
type InterfaceID [4]byte

// InvalidInterfaceID is never supported.
var InvalidInterfaceID = InterfaceID{0xff, 0xff, 0xff, 0xff}

// Function signatures per capability.
var (
	introspectionFunctions = []string{
		"supportsInterface(bytes4)",
	}
	ownershipFunctions = []string{
		"balanceOf(address)",
		"ownerOf(uint256)",
		"safeTransferFrom(address,address,uint256,bytes)",
		"safeTransferFrom(address,address,uint256)",
		"transferFrom(address,address,uint256)",
		"approve(address,uint256)",
		"setApprovalForAll(address,bool)",
		"getApproved(uint256)",
		"isApprovedForAll(address,address)",
	}
	registryFunctions = []string{
		"create(uint256,string)",
		"claim(uint256)",
		"refresh(uint256)",
		"nameOf(uint256)",
		"idOf(string)",
	}
)

// Recognized capability identifiers.
var (
	Introspection = Compute(introspectionFunctions...)
	Ownership     = Compute(ownershipFunctions...)
	Registry      = Compute(registryFunctions...)
)

var supported = map[InterfaceID]bool{
	Introspection: true,
	Ownership:     true,
	Registry:      true,
}

// Selector returns the first four bytes of the Keccak-256 hash of signature.
func Selector(signature string) InterfaceID {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel InterfaceID
	copy(sel[:], h.Sum(nil))
	return sel
}

// Compute XORs the selectors of signatures.
func Compute(signatures ...string) InterfaceID {
	var out InterfaceID
	for _, sig := range signatures {
		sel := Selector(sig)
		for i := range out {
			out[i] ^= sel[i]
		}
	}
	return out
}

// Supports reports whether interfaceID is one of the recognized capabilities.
func Supports(interfaceID InterfaceID) bool {
	return supported[interfaceID]
}

// ParseInterfaceID accepts 8 hex digits with an optional 0x prefix.
func ParseInterfaceID(s string) (InterfaceID, error) {
	var out InterfaceID
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 8 {
		return out, dErrors.New(dErrors.CodeInvalidInput, "interface id must be 4 bytes of hex")
	}
	if _, err := hex.Decode(out[:], []byte(raw)); err != nil {
		return out, dErrors.Wrap(err, dErrors.CodeInvalidInput, "interface id must be 4 bytes of hex")
	}
	return out, nil
}

func (i InterfaceID) String() string {
	return "0x" + hex.EncodeToString(i[:])
}
