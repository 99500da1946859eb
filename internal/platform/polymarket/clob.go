package polymarket

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// amountScale is the number of decimals of both USDC and outcome tokens.
const amountScale = 6

// ClobConfig describes the venue the client signs orders for.
type ClobConfig struct {
	BaseURL string
	// Funder is the wallet that holds collateral and positions. It is the
	// order maker; the signer's EOA only authorises.
	Funder          string
	SignatureType   int
	Exchange        string
	NegRiskExchange string
}

// ClobClient is the REST client for the Polymarket CLOB (Central Limit
// Order Book) API. It reads books and submits signed orders.
type ClobClient struct {
	cfg        ClobConfig
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
	now        func() time.Time

	mu      sync.Mutex
	negRisk map[string]bool
}

// NewClobClient creates a new CLOB REST client. signer may be nil for a
// read-only client. hmac may be nil until DeriveAPIKey is called.
func NewClobClient(cfg ClobConfig, signer *crypto.Signer, hmac *crypto.HMACAuth) *ClobClient {
	return &ClobClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:   signer,
		hmacAuth: hmac,
		now:      time.Now,
		negRisk:  make(map[string]bool),
	}
}

// OrderBook fetches the current book for assetID.
func (c *ClobClient) OrderBook(ctx context.Context, assetID string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("token_id", assetID)

	var book APIBook
	if err := getJSON(ctx, c.httpClient, c.cfg.BaseURL, "/book", q, &book); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: book %s: %w", assetID, err)
	}

	c.mu.Lock()
	c.negRisk[assetID] = book.NegRisk
	c.mu.Unlock()

	snap := book.ToDomain(c.now())
	if snap.AssetID == "" {
		snap.AssetID = assetID
	}
	return snap, nil
}

// SubmitOrder signs req and posts it. A venue-side rejection is returned as
// an unsuccessful result, not an error.
func (c *ClobClient) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if c.signer == nil || c.hmacAuth == nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: submit order: %w: no trading credentials", domain.ErrUnauthorized)
	}

	negRisk, err := c.isNegRisk(ctx, req.AssetID)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: submit order: %w", err)
	}

	body, err := c.buildOrder(req, negRisk)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: build order: %w", err)
	}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		if errors.Is(err, domain.ErrOrderRejected) {
			return domain.OrderResult{Success: false, Message: err.Error()}, nil
		}
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	return apiResult.ToDomainOrderResult(), nil
}

// buildOrder converts req into a signed POST /order body.
func (c *ClobClient) buildOrder(req domain.OrderRequest, negRisk bool) (APIPostOrder, error) {
	maker, taker, err := orderAmounts(req)
	if err != nil {
		return APIPostOrder{}, err
	}

	side := crypto.SideBuy
	if req.Side == domain.OrderSideSell {
		side = crypto.SideSell
	}

	exchange := c.cfg.Exchange
	if negRisk {
		exchange = c.cfg.NegRiskExchange
	}

	salt := newSalt()
	funder := c.cfg.Funder
	if funder == "" {
		funder = c.signer.Address().Hex()
	}

	payload := crypto.OrderPayload{
		Salt:          strconv.FormatInt(salt, 10),
		Maker:         funder,
		Signer:        c.signer.Address().Hex(),
		Taker:         zeroAddress,
		TokenID:       req.AssetID,
		MakerAmount:   maker.String(),
		TakerAmount:   taker.String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    strconv.Itoa(req.FeeRateBps),
		Side:          side,
		SignatureType: c.cfg.SignatureType,
	}
	sig, err := c.signer.SignOrder(payload, common.HexToAddress(exchange))
	if err != nil {
		return APIPostOrder{}, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	return APIPostOrder{
		Order: APISignedOrder{
			Salt:          salt,
			Maker:         payload.Maker,
			Signer:        payload.Signer,
			Taker:         payload.Taker,
			TokenID:       payload.TokenID,
			MakerAmount:   payload.MakerAmount,
			TakerAmount:   payload.TakerAmount,
			Expiration:    payload.Expiration,
			Nonce:         payload.Nonce,
			FeeRateBps:    payload.FeeRateBps,
			Side:          string(req.Side),
			SignatureType: payload.SignatureType,
			Signature:     sig,
		},
		Owner:     c.hmacAuth.Key,
		OrderType: string(req.Type),
	}, nil
}

// orderAmounts returns the base-unit maker and taker amounts. A buy gives
// USDC and takes shares; a sell gives shares and takes USDC.
func orderAmounts(req domain.OrderRequest) (maker, taker *big.Int, err error) {
	amount := decimal.NewFromFloat(req.Amount)
	price := decimal.NewFromFloat(req.Price)
	if !amount.IsPositive() || !price.IsPositive() || price.GreaterThan(decimal.NewFromInt(1)) {
		return nil, nil, fmt.Errorf("%w: amount %s price %s", domain.ErrInvalidOrder, amount, price)
	}

	var give, get decimal.Decimal
	switch req.Side {
	case domain.OrderSideBuy:
		give = amount.RoundFloor(2)
		get = give.Div(price).RoundFloor(4)
	case domain.OrderSideSell:
		give = amount.RoundFloor(4)
		get = give.Mul(price).RoundFloor(4)
	default:
		return nil, nil, fmt.Errorf("%w: side %q", domain.ErrInvalidOrder, req.Side)
	}
	if !give.IsPositive() || !get.IsPositive() {
		return nil, nil, fmt.Errorf("%w: amount rounds to zero", domain.ErrInvalidOrder)
	}
	return give.Shift(amountScale).BigInt(), get.Shift(amountScale).BigInt(), nil
}

// newSalt returns a random positive salt that survives a round trip through
// a JSON number.
func newSalt() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) >> 11)
}

func (c *ClobClient) isNegRisk(ctx context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	v, ok := c.negRisk[tokenID]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	q := url.Values{}
	q.Set("token_id", tokenID)
	var resp struct {
		NegRisk bool `json:"neg_risk"`
	}
	if err := getJSON(ctx, c.httpClient, c.cfg.BaseURL, "/neg-risk", q, &resp); err != nil {
		return false, fmt.Errorf("neg-risk %s: %w", tokenID, err)
	}

	c.mu.Lock()
	c.negRisk[tokenID] = resp.NegRisk
	c.mu.Unlock()
	return resp.NegRisk, nil
}

// DeriveAPIKey obtains the wallet's L2 API credentials, creating them when
// none exist yet, and installs them on the client.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) (*crypto.HMACAuth, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("polymarket/clob: derive api key: %w: no signer", domain.ErrUnauthorized)
	}

	creds, err := c.l1Request(ctx, http.MethodGet, "/auth/derive-api-key")
	if err != nil {
		creds, err = c.l1Request(ctx, http.MethodPost, "/auth/api-key")
		if err != nil {
			return nil, fmt.Errorf("polymarket/clob: derive api key: %w", err)
		}
	}

	c.hmacAuth = &crypto.HMACAuth{
		Key:        creds.APIKey,
		Secret:     creds.Secret,
		Passphrase: creds.Passphrase,
	}
	return c.hmacAuth, nil
}

// l1Request calls an endpoint authenticated by a fresh ClobAuth signature.
func (c *ClobClient) l1Request(ctx context.Context, method, path string) (APICredentials, error) {
	timestamp := c.now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(timestamp, nonce)
	if err != nil {
		return APICredentials{}, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, nil)
	if err != nil {
		return APICredentials{}, fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return APICredentials{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return APICredentials{}, fmt.Errorf("read auth response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return APICredentials{}, err
	}

	var creds APICredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return APICredentials{}, fmt.Errorf("decode auth response: %w", err)
	}
	if creds.APIKey == "" {
		return APICredentials{}, fmt.Errorf("%w: empty api key", domain.ErrUnauthorized)
	}
	return creds, nil
}

// doAuthenticatedRequest builds, signs (HMAC), sends, and reads an HTTP
// request against the CLOB API. It returns the raw response body.
func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	headers := c.hmacAuth.L2HeadersAt(c.signer.Address().Hex(), method, path, bodyStr, c.now().Unix())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}
