//services/billing-service/internal/invoice/status.go

package invoice

import "github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"

// transitions is the complete fleet invoice state machine. paid and void are terminal.
var transitions = map[ledger.FleetInvoiceStatus][]ledger.FleetInvoiceStatus{
	ledger.FleetDraft: {ledger.FleetSent, ledger.FleetVoid},
	ledger.FleetSent:  {ledger.FleetPaid, ledger.FleetVoid},
}

// CanTransition reports whether from -> to is an allowed move.
func CanTransition(from, to ledger.FleetInvoiceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
