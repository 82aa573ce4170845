package wallet

// Ledger entry sources and reasons. Source names the origin system, reason
// the event category; both end up verbatim on the audit trail.
const (
	SourceOnlineStore = "Online Store"
	SourceApp         = "App"

	ReasonRecharge     = "Recharge"
	ReasonOrderPayment = "Paid for online order"
)

// Defaults
const (
	DefaultCurrency     = "USD"
	DefaultHistoryLimit = 20
)
