package generator

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

const (
	stateLength     = 24
	sessionIDLength = 16
)

// Reader is the entropy source. Tests may replace it.
var Reader io.Reader = rand.Reader

// GenerateID returns a URL-safe random identifier of exactly the given length.
func GenerateID(length int) (string, error) {
	b := make([]byte, length)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return "", err
	}

	id := base64.RawURLEncoding.EncodeToString(b)
	if len(id) > length {
		id = id[:length]
	}

	return id, nil
}

// State returns an OAuth state value.
func State() (string, error) {
	return GenerateID(stateLength)
}

// SessionID returns an identifier for a newly issued session.
func SessionID() (string, error) {
	return GenerateID(sessionIDLength)
}
