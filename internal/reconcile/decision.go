package reconcile

import (
	"fmt"
	"strings"
)

// Decision is a human's answer for a possible match or conflict.
type Decision string

const (
	// Accept links a possible match to the existing book, or overwrites the
	// existing book's metadata for a conflict.
	Accept Decision = "accept"
	// Reject creates a new book for a possible match, or keeps the existing
	// metadata for a conflict.
	Reject Decision = "reject"
)

// ParseDecision accepts the canonical values plus a few spreadsheet-friendly aliases.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "accepted", "yes", "y", "link", "overwrite":
		return Accept, nil
	case "reject", "rejected", "no", "n", "create", "keep":
		return Reject, nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// Decisions maps a Classification.DecisionKey (an existing book ID, or
// "row:N" for a conflict with an earlier row) to the decision for every
// ambiguous classification that carries that key.
type Decisions map[string]Decision

// For returns the decision for a key. A missing decision means Reject so
// nothing is merged silently.
func (d Decisions) For(key string) Decision {
	if decision, ok := d[key]; ok && decision == Accept {
		return Accept
	}
	return Reject
}

// Validate rejects decision values other than accept and reject.
func (d Decisions) Validate() error {
	for key, decision := range d {
		if decision != Accept && decision != Reject {
			return malformed("decision %q for %s must be %q or %q", decision, key, Accept, Reject)
		}
	}
	return nil
}
