package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// HMACAuth holds the L2 API credentials derived from the wallet signature.
type HMACAuth struct {
	Key        string
	Secret     string // URL-safe base64
	Passphrase string
}

// L2Headers returns the headers for an authenticated CLOB request made now.
func (h *HMACAuth) L2Headers(address, method, path, body string) map[string]string {
	return h.L2HeadersAt(address, method, path, body, time.Now().Unix())
}

// L2HeadersAt is L2Headers with a caller-supplied unix timestamp.
//
// POLY_SIGNATURE = base64url(HMAC-SHA256(secret, timestamp+method+path+body))
func (h *HMACAuth) L2HeadersAt(address, method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	mac := hmac.New(sha256.New, decodeSecret(h.Secret))
	mac.Write([]byte(ts + method + path + body))

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_API_KEY":    h.Key,
		"POLY_TIMESTAMP":  ts,
		"POLY_PASSPHRASE": h.Passphrase,
		"POLY_SIGNATURE":  base64.URLEncoding.EncodeToString(mac.Sum(nil)),
	}
}

// decodeSecret accepts the secret in URL-safe or standard base64 and falls
// back to the raw bytes, which yields a signature the venue will reject.
func decodeSecret(secret string) []byte {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding} {
		if b, err := enc.DecodeString(secret); err == nil {
			return b
		}
	}
	return []byte(secret)
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
