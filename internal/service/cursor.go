package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
)

// cursorTTL bounds how long a transaction history cursor stays valid.
const cursorTTL = 24 * time.Hour

// CursorCodec encrypts pagination positions into opaque tokens.
// A cursor is bound to the account it was issued for.
type CursorCodec struct {
	key *fernet.Key
}

type cursorPayload struct {
	AccountID string `json:"a"`
	AfterSeq  int64  `json:"s"`
}

// NewCursorCodec creates a codec from a base64 encoded 32-byte fernet key.
// An empty key generates a random one, so cursors do not survive a restart.
func NewCursorCodec(encodedKey string) (*CursorCodec, error) {
	if encodedKey == "" {
		var key fernet.Key
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("failed to generate cursor key: %w", err)
		}
		return &CursorCodec{key: &key}, nil
	}

	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor key: %w", err)
	}
	return &CursorCodec{key: key}, nil
}

// Encode returns a cursor pointing after the transaction with sequence afterSeq.
func (c *CursorCodec) Encode(accountID string, afterSeq int64) (string, error) {
	payload, err := json.Marshal(cursorPayload{AccountID: accountID, AfterSeq: afterSeq})
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}

	token, err := fernet.EncryptAndSign(payload, c.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt cursor: %w", err)
	}
	return string(token), nil
}

// Decode returns the sequence number a cursor points after.
// Expired, tampered or foreign cursors fail with apperrors.ErrInvalidCursor.
func (c *CursorCodec) Decode(accountID, cursor string) (int64, error) {
	payload := fernet.VerifyAndDecrypt([]byte(cursor), cursorTTL, []*fernet.Key{c.key})
	if payload == nil {
		return 0, apperrors.ErrInvalidCursor
	}

	var p cursorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrInvalidCursor, err)
	}
	if p.AccountID != accountID {
		return 0, fmt.Errorf("%w: cursor belongs to another account", apperrors.ErrInvalidCursor)
	}

	return p.AfterSeq, nil
}
