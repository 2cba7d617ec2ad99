//services/billing-service/internal/ledger/errors.go

package ledger

import "errors"

var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyConsolidated protects the one-fleet-invoice-per-member rule.
	ErrAlreadyConsolidated = errors.New("member invoice already consolidated")

	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotDeletable: only draft fleet invoices can be deleted.
	ErrNotDeletable = errors.New("fleet invoice is not deletable")

	ErrNumberGenerationFailed = errors.New("could not generate a unique invoice number")

	// ErrStoreUnavailable wraps transport and transaction failures. Callers may retry.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateNumber is raised by stores when the invoice number unique key is hit.
	ErrDuplicateNumber = errors.New("invoice number already exists")
)
