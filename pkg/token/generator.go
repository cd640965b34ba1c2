package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// MinTokenLength is the shortest token accepted by Validate callers.
	// 32 random bytes encode to 44 base64 characters.
	MinTokenLength = 41

	// DefaultTokenBytes is the number of random bytes in a token (256 bits).
	DefaultTokenBytes = 32

	redactKeep = 4
)

// Generate returns a new base64-URL-encoded session token.
//
// Returns:
//   - string: A 44-character token built from DefaultTokenBytes random bytes
//   - error: An error if random number generation fails
//
// Example:
//
//	tok, err := token.Generate()
//	if err != nil {
//	    return fmt.Errorf("failed to issue session token: %w", err)
//	}
func Generate() (string, error) {
	return GenerateWithLength(DefaultTokenBytes)
}

// GenerateWithLength returns a token built from numBytes random bytes.
//
// Parameters:
//   - numBytes: Number of random bytes; below DefaultTokenBytes is rejected
//
// Returns:
//   - string: A base64-URL-encoded token
//   - error: An error if numBytes is too small or random number generation fails
func GenerateWithLength(numBytes int) (string, error) {
	// Enforce minimum entropy
	if numBytes < DefaultTokenBytes {
		return "", fmt.Errorf("token length must be at least %d bytes", DefaultTokenBytes)
	}

	// Read from the OS CSPRNG
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// Hash returns the hex HMAC-SHA256 of token under secret. Only hashes are
// kept by the simulator, never the tokens it issued.
//
// Parameters:
//   - token: The plaintext token
//   - secret: The HMAC key
//
// Returns:
//   - string: 64 hex characters
func Hash(token, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate reports whether provided hashes to storedHash, in constant time.
//
// Example:
//
//	if !token.Validate(presented, secret, stored) {
//	    return false
//	}
func Validate(provided, secret, storedHash string) bool {
	return hmac.Equal([]byte(Hash(provided, secret)), []byte(storedHash))
}

// ValidateLength rejects tokens too short to have come from Generate.
func ValidateLength(token string) error {
	if len(token) < MinTokenLength {
		return fmt.Errorf("token too short: got %d characters, need at least %d", len(token), MinTokenLength)
	}
	return nil
}

// Redact returns a log-safe form showing only the first few characters.
func Redact(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= redactKeep {
		return "****"
	}
	return token[:redactKeep] + "****"
}
