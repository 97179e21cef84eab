package ticketing

import "github.com/denbot/den/pkg/entities"

// Outcome is the result of a successful ticket operation. The status change
// recorded in the store is authoritative; failures of non-essential side
// effects (permission updates, notices) are reported as warnings instead of
// failing the operation.
type Outcome struct {
	// Ticket is the ticket after the operation.
	Ticket *entities.Ticket

	// Warnings describe non-essential side effects that failed.
	Warnings []string
}

// Partial reports whether the operation succeeded with warnings.
func (o *Outcome) Partial() bool {
	return len(o.Warnings) > 0
}

// warn appends a warning.
func (o *Outcome) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}
