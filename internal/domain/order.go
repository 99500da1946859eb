package domain

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType indicates the time-in-force policy.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Till-Cancelled
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
	OrderTypeFAK OrderType = "FAK" // Fill-And-Kill
)

// OrderRequest is a sized, priced order ready for signing. Amount is USDC for
// buys and shares for sells.
type OrderRequest struct {
	Side       OrderSide `json:"side"`
	AssetID    string    `json:"asset_id"`
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	FeeRateBps int       `json:"fee_rate_bps"`
	Type       OrderType `json:"order_type"`
	Title      string    `json:"title,omitempty"`
}

// OrderResult wraps the API response after order submission.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	// Filled is the executed amount in the request's units. Zero means the
	// venue did not report it.
	Filled float64 `json:"filled"`
}
