//services/billing-service/internal/handler/http/errors.go

package httphandler

import (
	"errors"
	"net/http"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/invoice"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
)

// Error kinds are the only error text the API returns. Clients translate them.
const (
	kindNotFound               = "not_found"
	kindAlreadyConsolidated    = "already_consolidated"
	kindInvalidTransition      = "invalid_transition"
	kindNotDeletable           = "not_deletable"
	kindNumberGenerationFailed = "number_generation_failed"
	kindStoreUnavailable       = "store_unavailable"
	kindCascadeIncomplete      = "cascade_incomplete"
	kindInvalidInput           = "invalid_input"
	kindInternal               = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
}

// MapError turns an engine error into a status code and error kind.
// Unknown errors never leak their text.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, ledger.ErrAlreadyConsolidated):
		return http.StatusConflict, kindAlreadyConsolidated
	case errors.Is(err, ledger.ErrInvalidTransition):
		return http.StatusConflict, kindInvalidTransition
	case errors.Is(err, ledger.ErrNotDeletable):
		return http.StatusConflict, kindNotDeletable
	case errors.Is(err, ledger.ErrNumberGenerationFailed):
		return http.StatusServiceUnavailable, kindNumberGenerationFailed
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, kindStoreUnavailable
	case errors.Is(err, invoice.ErrCascadeIncomplete):
		return http.StatusServiceUnavailable, kindCascadeIncomplete
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest, kindInvalidInput
	}
	return http.StatusInternalServerError, kindInternal
}
