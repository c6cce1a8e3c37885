package server

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SecretTokenHeader carries the webhook secret Telegram was registered with.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// VerifySecretToken compares a received webhook secret token with the
// configured one in constant time. Both values are hashed first so the
// comparison does not leak the expected length.
func VerifySecretToken(got, want string) bool {
	if got == "" || want == "" {
		return false
	}

	gotSum := sha256.Sum256([]byte(got))
	wantSum := sha256.Sum256([]byte(want))

	return hmac.Equal(gotSum[:], wantSum[:])
}
