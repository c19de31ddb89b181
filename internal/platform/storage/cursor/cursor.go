// Package cursor provides opaque pagination token encoding/decoding.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Direction indicates the pagination direction.
type Direction string

const (
	// DirectionForward paginates forward (seq > cursor).
	DirectionForward Direction = "fwd"
	// DirectionBackward paginates backward (seq < cursor).
	DirectionBackward Direction = "bwd"
)

// Cursor represents the internal state of a pagination cursor.
type Cursor struct {
	// Seq is the sequence number to paginate from.
	Seq int64 `json:"seq"`
	// Dir is the pagination direction.
	Dir Direction `json:"dir"`
	// ScopeHash binds the token to the listing it was issued for, so a token
	// minted for one user's list is rejected for another's.
	ScopeHash string `json:"scope,omitempty"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque token issued for scope.
func Decode(token string, scope string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.Dir != DirectionForward && c.Dir != DirectionBackward {
		return Cursor{}, fmt.Errorf("invalid cursor direction: %q", c.Dir)
	}
	if c.ScopeHash != HashScope(scope) {
		return Cursor{}, fmt.Errorf("cursor was issued for a different listing")
	}
	return c, nil
}

// HashScope computes a short hash of the scope string for cursor validation.
// Returns empty string for empty scope.
func HashScope(scope string) string {
	if scope == "" {
		return ""
	}
	h := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(h[:8])
}

// NewNextPageCursor creates the cursor for the page after lastSeq.
// Ascending listings continue forward (seq > lastSeq); descending listings
// continue backward (seq < lastSeq).
func NewNextPageCursor(lastSeq int64, descending bool, scope string) Cursor {
	dir := DirectionForward
	if descending {
		dir = DirectionBackward
	}
	return Cursor{
		Seq:       lastSeq,
		Dir:       dir,
		ScopeHash: HashScope(scope),
	}
}
