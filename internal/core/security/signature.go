package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// VerifyPaystackSignature checks the x-paystack-signature header: an
// HMAC-SHA512 of the raw body keyed with the secret key. Constant-time
// comparison, same as the API key check this replaced.
func VerifyPaystackSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyKorapaySignature checks the x-korapay-signature header: an
// HMAC-SHA256 of the raw body keyed with the secret key.
func VerifyKorapaySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
