package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
)

const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testFunder  = "0x1111111111111111111111111111111111111111"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestDataClientActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activity", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("user"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`[
			{"timestamp":1700000000,"conditionId":"cond","type":"TRADE","size":10,"usdcSize":5,
			 "price":0.5,"asset":"tok","side":"buy","title":"Will it rain?","transactionHash":"0xh1"},
			{"timestamp":1700000001,"conditionId":"cond","type":"REDEEM","asset":"tok"}
		]`))
	}))
	defer srv.Close()

	events, err := NewDataClient(srv.URL).Activity(context.Background(), "0xabc", 50)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.SideBuy, events[0].Side)
	assert.Equal(t, domain.TradeKey("0xh1"), events[0].Key())
	assert.True(t, events[0].IsTrade())
	assert.Equal(t, 5.0, events[0].USDCSize)
	assert.False(t, events[1].IsTrade())
}

func TestDataClientPositionsAndStatusMapping(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		assert.Equal(t, "/positions", r.URL.Path)
		_, _ = w.Write([]byte(`[{"asset":"tok","conditionId":"cond","size":12.5,"avgPrice":0.4,"outcome":"Yes"}]`))
	}))
	defer srv.Close()

	client := NewDataClient(srv.URL)
	positions, err := client.Positions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 12.5, positions[0].Size)
	assert.True(t, positions[0].Open())

	for code, want := range map[int]error{
		http.StatusTooManyRequests: domain.ErrRateLimited,
		http.StatusNotFound:        domain.ErrNotFound,
		http.StatusForbidden:       domain.ErrUnauthorized,
		http.StatusBadGateway:      domain.ErrUpstream,
	} {
		status = code
		_, err := client.Positions(context.Background(), "0xabc")
		assert.ErrorIs(t, err, want, "status %d", code)
	}
}

func TestClobOrderBookCachesNegRisk(t *testing.T) {
	var negRiskCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/book":
			assert.Equal(t, "tok", r.URL.Query().Get("token_id"))
			_, _ = w.Write([]byte(`{"asset_id":"tok","neg_risk":true,
				"bids":[{"price":"0.48","size":"100"}],
				"asks":[{"price":"0.52","size":"40.5"}]}`))
		case "/neg-risk":
			negRiskCalls++
			_, _ = w.Write([]byte(`{"neg_risk":false}`))
		}
	}))
	defer srv.Close()

	client := NewClobClient(ClobConfig{BaseURL: srv.URL}, nil, nil)
	book, err := client.OrderBook(context.Background(), "tok")
	require.NoError(t, err)

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 0.52, ask.Price)
	assert.Equal(t, 40.5, ask.Size)

	negRisk, err := client.isNegRisk(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, negRisk)
	assert.Zero(t, negRiskCalls)

	negRisk, err = client.isNegRisk(context.Background(), "other")
	require.NoError(t, err)
	assert.False(t, negRisk)
	assert.Equal(t, 1, negRiskCalls)
}

func TestOrderAmounts(t *testing.T) {
	maker, taker, err := orderAmounts(domain.OrderRequest{Side: domain.OrderSideBuy, Amount: 10.009, Price: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "10000000", maker.String())
	assert.Equal(t, "33333300", taker.String())

	maker, taker, err = orderAmounts(domain.OrderRequest{Side: domain.OrderSideSell, Amount: 12.34567, Price: 0.55})
	require.NoError(t, err)
	assert.Equal(t, "12345600", maker.String())
	assert.Equal(t, "6790000", taker.String())

	_, _, err = orderAmounts(domain.OrderRequest{Side: domain.OrderSideBuy, Amount: 0.001, Price: 0.5})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, _, err = orderAmounts(domain.OrderRequest{Side: domain.OrderSideBuy, Amount: 5, Price: 1.2})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func newTestSigner(t *testing.T) *crypto.Signer {
	t.Helper()
	s, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)
	return s
}

func TestClobSubmitOrder(t *testing.T) {
	var posted APIPostOrder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/neg-risk":
			_, _ = w.Write([]byte(`{"neg_risk":false}`))
		case "/order":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "key-1", r.Header.Get("POLY_API_KEY"))
			assert.Equal(t, "pass", r.Header.Get("POLY_PASSPHRASE"))
			assert.Equal(t, testAddress, r.Header.Get("POLY_ADDRESS"))
			assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_, _ = w.Write([]byte(`{"success":true,"orderID":"0xorder","status":"matched","makingAmount":"9.5"}`))
		}
	}))
	defer srv.Close()

	hmac := &crypto.HMACAuth{Key: "key-1", Secret: "c2VjcmV0", Passphrase: "pass"}
	client := NewClobClient(ClobConfig{
		BaseURL:       srv.URL,
		Funder:        testFunder,
		SignatureType: 2,
		Exchange:      "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
	}, newTestSigner(t), hmac)

	res, err := client.SubmitOrder(context.Background(), domain.OrderRequest{
		Side:       domain.OrderSideBuy,
		AssetID:    "12345",
		Amount:     10,
		Price:      0.5,
		FeeRateBps: 1000,
		Type:       domain.OrderTypeFAK,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xorder", res.OrderID)
	assert.Equal(t, 9.5, res.Filled)

	assert.Equal(t, "key-1", posted.Owner)
	assert.Equal(t, "FAK", posted.OrderType)
	assert.Equal(t, testFunder, posted.Order.Maker)
	assert.Equal(t, testAddress, posted.Order.Signer)
	assert.Equal(t, "BUY", posted.Order.Side)
	assert.Equal(t, "10000000", posted.Order.MakerAmount)
	assert.Equal(t, "20000000", posted.Order.TakerAmount)
	assert.Equal(t, "1000", posted.Order.FeeRateBps)
	assert.Equal(t, 2, posted.Order.SignatureType)
	assert.Positive(t, posted.Order.Salt)
	assert.Len(t, posted.Order.Signature, 132)
}

func TestClobSubmitOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/neg-risk" {
			_, _ = w.Write([]byte(`{"neg_risk":true}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"not enough balance"}`))
	}))
	defer srv.Close()

	client := NewClobClient(ClobConfig{BaseURL: srv.URL}, newTestSigner(t),
		&crypto.HMACAuth{Key: "k", Secret: "c2VjcmV0", Passphrase: "p"})
	res, err := client.SubmitOrder(context.Background(), domain.OrderRequest{
		Side: domain.OrderSideSell, AssetID: "1", Amount: 5, Price: 0.4, Type: domain.OrderTypeFOK,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not enough balance")
}

func TestClobSubmitOrderNeedsCredentials(t *testing.T) {
	client := NewClobClient(ClobConfig{BaseURL: "http://unused"}, newTestSigner(t), nil)
	_, err := client.SubmitOrder(context.Background(), domain.OrderRequest{Side: domain.OrderSideBuy})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClobDeriveAPIKeyFallsBackToCreate(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		assert.Equal(t, testAddress, r.Header.Get("POLY_ADDRESS"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.Equal(t, "0", r.Header.Get("POLY_NONCE"))
		if r.URL.Path == "/auth/derive-api-key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"apiKey":"new-key","secret":"c2VjcmV0","passphrase":"pp"}`))
	}))
	defer srv.Close()

	client := NewClobClient(ClobConfig{BaseURL: srv.URL}, newTestSigner(t), nil)
	auth, err := client.DeriveAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-key", auth.Key)
	assert.Equal(t, []string{"GET /auth/derive-api-key", "POST /auth/api-key"}, paths)
}

type fakeCaller struct {
	msg ethereum.CallMsg
	out []byte
	err error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msg = msg
	return f.out, f.err
}

func TestBalanceClient(t *testing.T) {
	usdc := "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	caller := &fakeCaller{out: common.LeftPadBytes(big.NewInt(12_345_678).Bytes(), 32)}
	client := newBalanceClient(caller, usdc, 6)

	bal, err := client.Balance(context.Background(), testAddress)
	require.NoError(t, err)
	assert.InDelta(t, 12.345678, bal, 1e-9)

	require.NotNil(t, caller.msg.To)
	assert.Equal(t, common.HexToAddress(usdc), *caller.msg.To)
	require.Len(t, caller.msg.Data, 36)
	assert.Equal(t, balanceOfSelector, caller.msg.Data[:4])
	assert.Equal(t, common.HexToAddress(testAddress).Bytes(), caller.msg.Data[16:])

	_, err = client.Balance(context.Background(), "not-an-address")
	assert.Error(t, err)

	caller.err = errors.New("rpc down")
	_, err = client.Balance(context.Background(), testAddress)
	assert.Error(t, err)
}
