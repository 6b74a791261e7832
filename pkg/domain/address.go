package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "namereg/pkg/domain-errors"
)

// AddressLength is the byte length of an Address.
const AddressLength = 20

// Address is an opaque caller/owner identity. The zero value is the reserved
// "no owner" sentinel: public domains are owned by ZeroAddress and an unset
// approval is ZeroAddress. Address is comparable and usable as a map key.
type Address [AddressLength]byte

// ZeroAddress is the sentinel identity.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex digit address. Mixed case is
// accepted without checksum enforcement.
func ParseAddress(s string) (Address, error) {
	var a Address
	hexPart, ok := strings.CutPrefix(s, "0x")
	if !ok {
		hexPart, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x-prefixed")
	}
	if len(hexPart) != AddressLength*2 {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address must be 40 hex digits")
	}
	if _, err := hex.Decode(a[:], []byte(hexPart)); err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address is not valid hex")
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BytesToAddress builds an address from the trailing AddressLength bytes of b.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// IsZero reports whether a is the sentinel identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the lowercase 0x form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String returns the mixed-case checksummed form: a hex digit is upper-cased
// when the matching nibble of keccak256(lowercase hex) is >= 8.
func (a Address) String() string {
	lower := hex.EncodeToString(a[:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
