// Package naming validates name segments and converts between prefixes and
// dotted full names. The root's full name is the empty string.
package naming

import (
	"strings"

	"namereg/internal/registry/models"
	dErrors "namereg/pkg/domain-errors"
)

// Separator joins labels in a full name.
const Separator = "."

// ValidatePrefix accepts any non-empty label without a separator. There is no
// length limit.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return dErrors.New(models.CodeStringIsEmpty, "prefix is empty")
	}
	if strings.Contains(prefix, Separator) {
		return dErrors.New(models.CodeStringContainsPeriods, "prefix contains periods")
	}
	return nil
}

// ComposeName returns the full name of prefix placed under parentName.
func ComposeName(parentName, prefix string) string {
	if parentName == "" {
		return prefix
	}
	return prefix + Separator + parentName
}

// Split returns the labels of name from the top of the tree down, so
// "app.ethereum.org" yields ["org", "ethereum", "app"]. The root yields nil.
func Split(name string) []string {
	if name == "" {
		return nil
	}
	labels := strings.Split(name, Separator)
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}
