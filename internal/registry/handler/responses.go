package handler

import (
	id "namereg/pkg/domain"
)

type idResponse struct {
	ID id.DomainID `json:"id"`
}

type ownerResponse struct {
	Owner id.Address `json:"owner"`
}

type approvedResponse struct {
	Approved id.Address `json:"approved"`
}

type nameResponse struct {
	ID   id.DomainID `json:"id"`
	Name string      `json:"name"`
}

type balanceResponse struct {
	Owner   id.Address `json:"owner"`
	Balance int        `json:"balance"`
}

type operatorResponse struct {
	Owner    id.Address `json:"owner"`
	Operator id.Address `json:"operator"`
	Approved bool       `json:"approved"`
}

type interfaceResponse struct {
	InterfaceID string `json:"interface_id"`
	Supported   bool   `json:"supported"`
}
