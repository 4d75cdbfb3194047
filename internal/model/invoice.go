package model

import "time"

// InvoiceInfo is the decoded content of a BOLT11 payment request.
type InvoiceInfo struct {
	Network            Network   `json:"network"`
	AmountMsat         *uint64   `json:"amount_msat,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	Expiry             int64     `json:"expiry_seconds"`
	PaymentHash        string    `json:"payment_hash,omitempty"`
	Payee              string    `json:"payee_pubkey,omitempty"`
	Description        string    `json:"description,omitempty"`
	DescriptionHash    string    `json:"description_hash,omitempty"`
	FallbackAddress    string    `json:"fallback_address,omitempty"`
	MinFinalCLTVExpiry uint64    `json:"min_final_cltv_expiry"`
	RouteHints         int       `json:"route_hints"`
}
