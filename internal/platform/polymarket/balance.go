package polymarket

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceClient reads a wallet's collateral balance from the chain.
type BalanceClient struct {
	caller   contractCaller
	token    common.Address
	decimals int32
	closeFn  func()
}

// DialBalanceClient connects to a Polygon JSON-RPC endpoint.
func DialBalanceClient(ctx context.Context, rpcURL, token string, decimals int32) (*BalanceClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("polymarket/balance: dial %s: %w", rpcURL, err)
	}
	b := newBalanceClient(client, token, decimals)
	b.closeFn = client.Close
	return b, nil
}

func newBalanceClient(caller contractCaller, token string, decimals int32) *BalanceClient {
	return &BalanceClient{
		caller:   caller,
		token:    common.HexToAddress(token),
		decimals: decimals,
	}
}

// Balance returns user's token balance in whole units.
func (b *BalanceClient) Balance(ctx context.Context, user string) (float64, error) {
	if !common.IsHexAddress(user) {
		return 0, fmt.Errorf("polymarket/balance: invalid address %q", user)
	}

	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(user).Bytes(), 32)...)

	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &b.token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("polymarket/balance: balanceOf %s: %w", user, err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("polymarket/balance: short balanceOf result (%d bytes)", len(out))
	}

	raw := new(big.Int).SetBytes(out[:32])
	v, _ := decimal.NewFromBigInt(raw, -b.decimals).Float64()
	return v, nil
}

// Close releases the RPC connection.
func (b *BalanceClient) Close() {
	if b.closeFn != nil {
		b.closeFn()
	}
}
