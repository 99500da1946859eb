package polymarket

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIActivity is one record from GET /activity.
type APIActivity struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Type            string  `json:"type"`
	Size            float64 `json:"size"`
	UsdcSize        float64 `json:"usdcSize"`
	Price           float64 `json:"price"`
	Asset           string  `json:"asset"`
	Side            string  `json:"side"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	Outcome         string  `json:"outcome"`
	TransactionHash string  `json:"transactionHash"`
}

// ToDomain converts the record, normalising side to upper case.
func (a APIActivity) ToDomain() domain.TradeEvent {
	return domain.TradeEvent{
		TransactionHash: a.TransactionHash,
		Timestamp:       a.Timestamp,
		ConditionID:     a.ConditionID,
		Asset:           a.Asset,
		Side:            domain.Side(strings.ToUpper(a.Side)),
		Size:            a.Size,
		Price:           a.Price,
		USDCSize:        a.UsdcSize,
		Title:           a.Title,
		Outcome:         a.Outcome,
		Type:            a.Type,
	}
}

// APIPosition is one record from GET /positions.
type APIPosition struct {
	ProxyWallet string  `json:"proxyWallet"`
	Asset       string  `json:"asset"`
	ConditionID string  `json:"conditionId"`
	Size        float64 `json:"size"`
	AvgPrice    float64 `json:"avgPrice"`
	CurPrice    float64 `json:"curPrice"`
	Outcome     string  `json:"outcome"`
	Title       string  `json:"title"`
}

// ToDomain converts the record.
func (p APIPosition) ToDomain() domain.Position {
	return domain.Position{
		ConditionID: p.ConditionID,
		Asset:       p.Asset,
		Size:        p.Size,
		AvgPrice:    p.AvgPrice,
		Outcome:     p.Outcome,
		Title:       p.Title,
	}
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBookLevel is a price level; the CLOB sends both fields as strings.
type APIBookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// APIBook is the response from GET /book.
type APIBook struct {
	Market    string         `json:"market"`
	AssetID   string         `json:"asset_id"`
	Bids      []APIBookLevel `json:"bids"`
	Asks      []APIBookLevel `json:"asks"`
	Hash      string         `json:"hash"`
	Timestamp string         `json:"timestamp"`
	TickSize  string         `json:"tick_size"`
	NegRisk   bool           `json:"neg_risk"`
}

// ToDomain converts the book, keeping level order as sent.
func (b APIBook) ToDomain(now time.Time) domain.OrderBook {
	conv := func(levels []APIBookLevel) []domain.PriceLevel {
		out := make([]domain.PriceLevel, 0, len(levels))
		for _, l := range levels {
			p, _ := l.Price.Float64()
			s, _ := l.Size.Float64()
			out = append(out, domain.PriceLevel{Price: p, Size: s})
		}
		return out
	}
	return domain.OrderBook{
		AssetID:   b.AssetID,
		Bids:      conv(b.Bids),
		Asks:      conv(b.Asks),
		Timestamp: now,
	}
}

// APISignedOrder is the order object inside a POST /order body.
type APISignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// APIPostOrder is the POST /order body.
type APIPostOrder struct {
	Order     APISignedOrder `json:"order"`
	Owner     string         `json:"owner"`
	OrderType string         `json:"orderType"`
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success            bool     `json:"success"`
	ErrorMsg           string   `json:"errorMsg"`
	OrderID            string   `json:"orderID"`
	Status             string   `json:"status"`
	MakingAmount       string   `json:"makingAmount"`
	TakingAmount       string   `json:"takingAmount"`
	TransactionsHashes []string `json:"transactionsHashes"`
}

// ToDomainOrderResult converts the response. makingAmount is what the
// follower gave up: USDC on a buy, shares on a sell, which matches the
// request's units.
func (r APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	res := domain.OrderResult{
		Success: r.Success && r.ErrorMsg == "",
		OrderID: r.OrderID,
		Status:  r.Status,
		Message: r.ErrorMsg,
	}
	if r.MakingAmount != "" {
		if d, err := decimal.NewFromString(r.MakingAmount); err == nil {
			res.Filled, _ = d.Float64()
		}
	}
	return res
}

// APICredentials is the response from the API-key endpoints.
type APICredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}
