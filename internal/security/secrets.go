package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	// MinSecretLength is the minimum allowed length for webhook secret tokens.
	MinSecretLength = 32

	// MaxSecretLength is the longest secret token Telegram accepts.
	MaxSecretLength = 256

	// MinEntropy is the minimum Shannon entropy threshold for secrets.
	MinEntropy = 3.5
)

var (
	// Telegram only accepts A-Z, a-z, 0-9, _ and - in secret tokens.
	secretCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// Bot tokens look like "123456789:AA...". The numeric part is the bot id.
	botTokenPattern = regexp.MustCompile(`^[0-9]{5,}:[A-Za-z0-9_-]{30,}$`)
)

var forbiddenSecrets = map[string]bool{
	"replace-with-secret":                   true,
	"replace-with-secret-min-32-chars":      true,
	"telegram-webhook-secret":               true,
	"topsecret":                             true,
	"secret":                                true,
	"password":                              true,
	"changeme":                              true,
	"your-webhook-secret-min-32-chars-long": true,
}

// ValidateSecret ensures a webhook secret token meets security requirements.
// Checks:
// - Length between 32 and 256 characters
// - Only characters Telegram accepts in secret_token
// - Not a placeholder value
// - Sufficient Shannon entropy (minimum 3.5)
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("secret too short (minimum %d characters, got %d)", MinSecretLength, len(secret))
	}
	if len(secret) > MaxSecretLength {
		return fmt.Errorf("secret too long (maximum %d characters, got %d)", MaxSecretLength, len(secret))
	}

	if !secretCharset.MatchString(secret) {
		return fmt.Errorf("secret contains invalid characters (only A-Z, a-z, 0-9, _, - allowed)")
	}

	secretLower := strings.ToLower(secret)
	if forbiddenSecrets[secretLower] {
		return fmt.Errorf("secret appears to be a placeholder value, please use a real secret")
	}

	if strings.Contains(secretLower, "replace") ||
		strings.Contains(secretLower, "changeme") ||
		strings.Contains(secretLower, "topsecret") ||
		strings.Contains(secretLower, "password") {
		return fmt.Errorf("secret appears to be a placeholder value")
	}

	entropy := calculateEntropy(secret)
	if entropy < MinEntropy {
		return fmt.Errorf("secret has insufficient entropy (%.2f < %.2f) - use a more random secret", entropy, MinEntropy)
	}

	return nil
}

// ValidateBotToken checks the shape of a Telegram bot token. It does not
// contact Telegram.
func ValidateBotToken(token string) error {
	if token == "" {
		return fmt.Errorf("bot token cannot be empty")
	}
	if !botTokenPattern.MatchString(token) {
		return fmt.Errorf("bot token has an invalid format (expected <bot-id>:<key>)")
	}
	return nil
}

// RedactToken hides all but the bot id of a token for logging.
func RedactToken(token string) string {
	if id, _, ok := strings.Cut(token, ":"); ok && id != "" {
		return id + ":***"
	}
	if token == "" {
		return ""
	}
	return "***"
}

// GenerateSecret creates a cryptographically secure random secret.
// Returns a 48-character URL-safe base64 string, which is also a valid
// Telegram secret_token.
func GenerateSecret() (string, error) {
	// 36 bytes encode to exactly 48 characters with no padding
	bytes := make([]byte, 36)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// calculateEntropy computes the Shannon entropy of a string.
// Returns a value between 0 (completely predictable) and ~8 (maximum entropy for byte strings).
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	// H = -Σ(p(x) * log2(p(x)))
	var entropy float64
	length := float64(len(s))

	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// IsWeakSecret performs a quick check if a secret is obviously weak.
// This can be used for warning messages without failing validation.
func IsWeakSecret(secret string) bool {
	if len(secret) < MinSecretLength {
		return true
	}

	// All same character
	if len(strings.Trim(secret, string(secret[0]))) == 0 {
		return true
	}

	if isSequential(secret) {
		return true
	}

	if calculateEntropy(secret) < 2.5 {
		return true
	}

	return false
}

// isSequential checks if a string consists of sequential characters.
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	sequential := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			sequential++
		}
	}

	// More than 70% sequential counts as weak
	return float64(sequential) > float64(len(s))*0.7
}
