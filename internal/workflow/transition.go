// Package workflow provides the shared status-transition component used by the
// message, order, shipment and transaction entities. Each entity declares its
// allowed transitions as a Table; handlers validate through the table before
// mutating the document.
package workflow

import "fmt"

// Status is an entity lifecycle status value.
type Status string

// Table maps a current status to the set of statuses it may move to.
type Table map[Status][]Status

// InvalidTransitionError reports a transition the table does not allow.
type InvalidTransitionError struct {
	Entity string
	From   Status
	To     Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change %s status from %q to %q", e.Entity, e.From, e.To)
}

// Known reports whether s appears in the table at all, either as a source or
// as a target.
func (t Table) Known(s Status) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, targets := range t {
		for _, target := range targets {
			if target == s {
				return true
			}
		}
	}
	return false
}

// Can reports whether the table allows moving from one status to another.
func (t Table) Can(from, to Status) bool {
	for _, target := range t[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns an InvalidTransitionError
// if the table does not allow it. The entity name is used in the error text.
func (t Table) Transition(entity string, from, to Status) error {
	if !t.Can(from, to) {
		return &InvalidTransitionError{Entity: entity, From: from, To: to}
	}
	return nil
}
