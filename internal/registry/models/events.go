package models

import (
	"time"

	id "namereg/pkg/domain"
)

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventTransfer       EventKind = "Transfer"
	EventApproval       EventKind = "Approval"
	EventApprovalForAll EventKind = "ApprovalForAll"
	EventRefresh        EventKind = "Refresh"
)

// Event is the single notification a successful mutation produces. Only the
// fields relevant to Kind are set:
//
//	Transfer:       From, To, DomainID
//	Approval:       Owner, Approved, DomainID
//	ApprovalForAll: Owner, Operator, Enabled
//	Refresh:        DomainID, RecordKeys
type Event struct {
	Kind       EventKind   `json:"kind"`
	DomainID   id.DomainID `json:"domain_id"`
	From       id.Address  `json:"from"`
	To         id.Address  `json:"to"`
	Owner      id.Address  `json:"owner"`
	Approved   id.Address  `json:"approved"`
	Operator   id.Address  `json:"operator"`
	Enabled    bool        `json:"enabled"`
	RecordKeys []string    `json:"record_keys,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	RequestID  string      `json:"request_id,omitempty"`
}

func TransferEvent(from, to id.Address, domainID id.DomainID) Event {
	return Event{Kind: EventTransfer, From: from, To: to, DomainID: domainID}
}

func ApprovalEvent(owner, approved id.Address, domainID id.DomainID) Event {
	return Event{Kind: EventApproval, Owner: owner, Approved: approved, DomainID: domainID}
}

func ApprovalForAllEvent(owner, operator id.Address, enabled bool) Event {
	return Event{Kind: EventApprovalForAll, Owner: owner, Operator: operator, Enabled: enabled}
}

// RefreshEvent never carries a nil key list so consumers can rely on [] in JSON.
func RefreshEvent(domainID id.DomainID, recordKeys []string) Event {
	if recordKeys == nil {
		recordKeys = []string{}
	}
	return Event{Kind: EventRefresh, DomainID: domainID, RecordKeys: recordKeys}
}

// ChangesOwnership reports whether the record store must be told that the
// domain's controller changed (create, claim, transfer).
func (e Event) ChangesOwnership() bool {
	return e.Kind == EventTransfer
}
