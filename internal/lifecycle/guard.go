// Package lifecycle enforces the document status state machine. Every status
// change and every mutation of a gated document must pass through the guard
// before being persisted, in the same transaction as the write it protects.
package lifecycle

import (
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status is a document lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusAccepted  Status = "ACCEPTED"
	StatusConverted Status = "CONVERTED"
	StatusCancelled Status = "CANCELLED"
)

// Family identifies which transition table applies.
type Family string

const (
	FamilyOffer Family = "offer"
	FamilyOrder Family = "order"
)

// transitions is the explicit current-state x requested-state table. Absent
// entries are forbidden; nothing leaves CONVERTED or CANCELLED.
var transitions = map[Family]map[Status]map[Status]bool{
	FamilyOffer: {
		StatusDraft:    {StatusAccepted: true, StatusCancelled: true},
		StatusAccepted: {StatusConverted: true, StatusCancelled: true},
	},
	FamilyOrder: {
		StatusDraft:    {StatusAccepted: true, StatusCancelled: true},
		StatusAccepted: {StatusConverted: true, StatusCancelled: true},
	},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(family Family, from, to Status) bool {
	return transitions[family][from][to]
}

// EnsureTransition returns a business-rule error naming the current state
// when the requested status change is not in the table.
func EnsureTransition(family Family, from, to Status) error {
	if !CanTransition(family, from, to) {
		return shared.BusinessRule("%s in status %s cannot move to %s", family, from, to)
	}
	return nil
}

// EnsureMutable gates header and line mutations: documents may only be
// edited while in DRAFT.
func EnsureMutable(family Family, current Status) error {
	if current != StatusDraft {
		return shared.BusinessRule("%s in status %s cannot be modified; only DRAFT documents are editable", family, current)
	}
	return nil
}

// EnsureConvertible gates offer-to-order conversion, which is permitted only
// from ACCEPTED.
func EnsureConvertible(family Family, current Status) error {
	if current != StatusAccepted {
		return shared.BusinessRule("%s in status %s cannot be converted; it must be ACCEPTED first", family, current)
	}
	return nil
}
