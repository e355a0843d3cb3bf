package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// HeaderName carries the platform's signature of the raw request body.
const HeaderName = "X-Line-Signature"

// Sign returns the base64 HMAC-SHA256 of payload keyed with the channel secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid signature of payload.
// An empty secret, an empty signature or a signature that is not base64
// never verifies.
func Verify(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	actual, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hmac.Equal(mac.Sum(nil), actual)
}
