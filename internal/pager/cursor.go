package pager

import (
	"encoding/base64"
	"encoding/json"
	"time"

	apperrors "jewgo-discovery/internal/errors"
)

// Cursor encodes enough state to resume a paged query without re-scanning
// prior pages. Resumption is keyset-based (last-seen distance plus tie-break
// id), so pages stay stable if the underlying set changes between requests.
// The offset is carried for prefetch bookkeeping and total-count checks only.
type Cursor struct {
	Signature    string    `json:"sig"`
	LastDistance float64   `json:"last_distance"`
	LastID       string    `json:"last_id"`
	Offset       int       `json:"offset"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Encode serializes the cursor into an opaque token.
func Encode(c Cursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses and validates a cursor token. A cursor is only valid for the
// exact filter signature it was issued under and within its TTL; anything
// else means the caller restarts pagination from the first page.
func Decode(token, signature string, ttl time.Duration, now time.Time) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.NewCursorInvalidError("malformed token")
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperrors.NewCursorInvalidError("malformed token")
	}
	if c.Signature != signature {
		return nil, apperrors.NewCursorInvalidError("cursor was issued for a different filter")
	}
	if now.Sub(c.IssuedAt) > ttl {
		return nil, apperrors.NewCursorInvalidError("cursor expired")
	}
	if c.Offset < 0 {
		return nil, apperrors.NewCursorInvalidError("malformed token")
	}
	return &c, nil
}
