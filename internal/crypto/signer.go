package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// authAttestation is the fixed message every CLOB auth signature carries.
const authAttestation = "This message attests that I control the given wallet"

var (
	authDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)
	exchangeDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"),
	)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// Order sides as encoded in the signed struct.
const (
	SideBuy  = 0
	SideSell = 1
)

// OrderPayload is the signed portion of a CLOB order. Integers travel as
// decimal strings so token ids and base-unit amounts keep full precision.
type OrderPayload struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          int    `json:"side"`
	SignatureType int    `json:"signatureType"` // 0 = EOA, 1 = POLY_PROXY, 2 = POLY_GNOSIS_SAFE
}

// Signer produces EIP-712 signatures for CLOB auth and exchange orders.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
	authDomain []byte
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and
// the chain id (137 for Polygon mainnet).
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
		authDomain: ethcrypto.Keccak256(concatBytes(
			authDomainTypeHash,
			ethcrypto.Keccak256([]byte("ClobAuthDomain")),
			ethcrypto.Keccak256([]byte("1")),
			bigIntTo32Bytes(big.NewInt(chainID)),
		)),
	}, nil
}

// Address returns the signing EOA.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignAuthMessage signs the ClobAuth attestation used for L1 requests such as
// API-key derivation.
func (s *Signer) SignAuthMessage(timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(concatBytes(
		clobAuthTypeHash,
		common.LeftPadBytes(s.address.Bytes(), 32),
		ethcrypto.Keccak256([]byte(strconv.FormatInt(timestamp, 10))),
		bigIntTo32Bytes(big.NewInt(nonce)),
		ethcrypto.Keccak256([]byte(authAttestation)),
	))
	return s.signDigest(eip712Hash(s.authDomain, structHash))
}

// SignOrder signs order for the exchange contract at exchange.
func (s *Signer) SignOrder(order OrderPayload, exchange common.Address) (string, error) {
	structHash, err := orderStructHash(order)
	if err != nil {
		return "", err
	}
	return s.signDigest(eip712Hash(s.exchangeDomain(exchange), structHash))
}

func (s *Signer) exchangeDomain(exchange common.Address) []byte {
	return ethcrypto.Keccak256(concatBytes(
		exchangeDomainTypeHash,
		ethcrypto.Keccak256([]byte("Polymarket CTF Exchange")),
		ethcrypto.Keccak256([]byte("1")),
		bigIntTo32Bytes(big.NewInt(s.chainID)),
		common.LeftPadBytes(exchange.Bytes(), 32),
	))
}

// eip712Hash computes keccak256("\x19\x01" || domainSeparator || structHash).
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(concatBytes([]byte{0x19, 0x01}, domainSep, structHash))
}

// signDigest returns the 65-byte r||s||v signature with v in {27,28}.
func (s *Signer) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

func orderStructHash(o OrderPayload) ([]byte, error) {
	fields := []struct {
		name, value string
	}{
		{"salt", o.Salt},
		{"tokenId", o.TokenID},
		{"makerAmount", o.MakerAmount},
		{"takerAmount", o.TakerAmount},
		{"expiration", o.Expiration},
		{"nonce", o.Nonce},
		{"feeRateBps", o.FeeRateBps},
	}
	ints := make(map[string][]byte, len(fields))
	for _, f := range fields {
		n, ok := new(big.Int).SetString(f.value, 10)
		if !ok {
			return nil, fmt.Errorf("crypto/signer: invalid %s %q", f.name, f.value)
		}
		ints[f.name] = bigIntTo32Bytes(n)
	}

	return ethcrypto.Keccak256(concatBytes(
		orderTypeHash,
		ints["salt"],
		common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32),
		ints["tokenId"],
		ints["makerAmount"],
		ints["takerAmount"],
		ints["expiration"],
		ints["nonce"],
		ints["feeRateBps"],
		bigIntTo32Bytes(big.NewInt(int64(o.Side))),
		bigIntTo32Bytes(big.NewInt(int64(o.SignatureType))),
	)), nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}

func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
