package models

import (
	"net/http"

	dErrors "namereg/pkg/domain-errors"
)

// Registry error kinds. Every rejected operation carries exactly one of these.
const (
	CodeAddressIsZero                     dErrors.Code = "AddressIsZero"
	CodeAddressesAreIdentical             dErrors.Code = "AddressesAreIdentical"
	CodeStringIsEmpty                     dErrors.Code = "StringIsEmpty"
	CodeStringContainsPeriods             dErrors.Code = "StringContainsPeriods"
	CodeDomainDoesNotExist                dErrors.Code = "DomainDoesNotExist"
	CodeDomainAlreadyExists               dErrors.Code = "DomainAlreadyExists"
	CodeDomainIsPublic                    dErrors.Code = "DomainIsPublic"
	CodeDomainHasNotExpired               dErrors.Code = "DomainHasNotExpired"
	CodeDomainIsAlreadyOwnedByCaller      dErrors.Code = "DomainIsAlreadyOwnedByCaller"
	CodeDomainIsNotOwnedByCaller          dErrors.Code = "DomainIsNotOwnedByCaller"
	CodeDomainIsNotOwnedBySender          dErrors.Code = "DomainIsNotOwnedBySender"
	CodeDomainCanNotBeTransferredByCaller dErrors.Code = "DomainCanNotBeTransferredByCaller"
	CodeDomainCanNotBeApprovedByCaller    dErrors.Code = "DomainCanNotBeApprovedByCaller"
	CodeDomainTransferFailed              dErrors.Code = "DomainTransferFailed"
)

var registryStatus = map[dErrors.Code]int{
	CodeAddressIsZero:                     http.StatusBadRequest,
	CodeAddressesAreIdentical:             http.StatusBadRequest,
	CodeStringIsEmpty:                     http.StatusBadRequest,
	CodeStringContainsPeriods:             http.StatusBadRequest,
	CodeDomainDoesNotExist:                http.StatusNotFound,
	CodeDomainAlreadyExists:               http.StatusConflict,
	CodeDomainIsPublic:                    http.StatusConflict,
	CodeDomainHasNotExpired:               http.StatusConflict,
	CodeDomainIsAlreadyOwnedByCaller:      http.StatusConflict,
	CodeDomainIsNotOwnedByCaller:          http.StatusForbidden,
	CodeDomainIsNotOwnedBySender:          http.StatusForbidden,
	CodeDomainCanNotBeTransferredByCaller: http.StatusForbidden,
	CodeDomainCanNotBeApprovedByCaller:    http.StatusForbidden,
	CodeDomainTransferFailed:              http.StatusUnprocessableEntity,
}

func init() {
	for code, status := range registryStatus {
		dErrors.RegisterHTTPStatus(code, status)
	}
}
