package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known hardhat account #0; never funded on Polygon.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestKeyFileRoundTripAndLoad(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	loaded, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, testKey, loaded)

	raw, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKey, EncryptedKeyPath: path})
	require.NoError(t, err)
	assert.Equal(t, testKey, raw)

	_, err = LoadKey(KeyConfig{})
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = EncryptKey("abcd", "pw")
	assert.Error(t, err)
}

func TestSignOrderRecoversSigner(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address().Hex())

	order := OrderPayload{
		Salt:          "12345",
		Maker:         "0x00000000000000000000000000000000000000aa",
		Signer:        s.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "10000000",
		TakerAmount:   "20000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "1000",
		Side:          SideBuy,
		SignatureType: 2,
	}
	exchange := common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")

	sigHex, err := s.SignOrder(order, exchange)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sigHex, "0x"))

	sig := common.FromHex(sigHex)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	structHash, err := orderStructHash(order)
	require.NoError(t, err)
	digest := eip712Hash(s.exchangeDomain(exchange), structHash)

	sig[64] -= 27
	pub, err := ethcrypto.SigToPub(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), ethcrypto.PubkeyToAddress(*pub))

	order.TokenID = "not-a-number"
	_, err = s.SignOrder(order, exchange)
	assert.Error(t, err)
}

func TestSignAuthMessageIsDeterministic(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	a, err := s.SignAuthMessage(1700000000, 0)
	require.NoError(t, err)
	b, err := s.SignAuthMessage(1700000000, 0)
	require.NoError(t, err)
	c, err := s.SignAuthMessage(1700000001, 0)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestL2HeadersAt(t *testing.T) {
	h := &HMACAuth{Key: "key-1", Secret: "c2VjcmV0LXNlY3JldC1zZWNyZXQ=", Passphrase: "pass"}

	got := h.L2HeadersAt("0xabc", "POST", "/order", `{"a":1}`, 1700000000)

	assert.Equal(t, "0xabc", got["POLY_ADDRESS"])
	assert.Equal(t, "key-1", got["POLY_API_KEY"])
	assert.Equal(t, "1700000000", got["POLY_TIMESTAMP"])
	assert.Equal(t, "pass", got["POLY_PASSPHRASE"])
	assert.NotEmpty(t, got["POLY_SIGNATURE"])
	assert.Equal(t, got, h.L2HeadersAt("0xabc", "POST", "/order", `{"a":1}`, 1700000000))
	assert.NotContains(t, h.String(), "c2VjcmV0")
}
