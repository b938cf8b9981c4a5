// Package pagination implements the opaque page tokens handed to clients by
// the liked-you listings.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Cursor pins a position in a listing ordered by (updated_at DESC, actor_id
// DESC). UpdatedUnix is in milliseconds. Serialized as URL-safe base64 over
// JSON so clients treat the token as opaque.
type Cursor struct {
	ActorID     uint64 `json:"actor_id"`
	UpdatedUnix int64  `json:"updated_unix,omitempty"`
}

// Encode serializes c into a page token.
func Encode(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode parses a token produced by Encode. An empty token means the first
// page; anything unparseable is rejected without detail, tokens are not a
// debugging surface.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, errors.New("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, errors.New("invalid pagination token")
	}
	return c, nil
}
