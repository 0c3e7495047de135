// Package auth resolves bearer tokens to caller ids.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/kailas-cloud/tokenmeter/internal/domain"
)

// Verifier resolves a bearer token to the caller it identifies.
// An unknown token yields domain.ErrInvalidToken; any other error means
// the verifier itself failed.
type Verifier interface {
	Verify(ctx context.Context, token string) (callerID string, err error)
}

// Static verifies tokens against a fixed token to caller id table.
// An empty table rejects every token.
type Static struct {
	entries []entry
}

type entry struct {
	digest   [sha256.Size]byte
	callerID string
}

// NewStatic builds a Static verifier. Entries with an empty token or
// caller id are ignored.
func NewStatic(tokens map[string]string) *Static {
	s := &Static{entries: make([]entry, 0, len(tokens))}
	for token, caller := range tokens {
		if token == "" || caller == "" {
			continue
		}
		s.entries = append(s.entries, entry{digest: sha256.Sum256([]byte(token)), callerID: caller})
	}
	return s
}

// Verify compares the token against every entry in constant time.
func (s *Static) Verify(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if token == "" {
		return "", domain.ErrMissingToken
	}

	digest := sha256.Sum256([]byte(token))
	callerID := ""
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(digest[:], e.digest[:]) == 1 {
			callerID = e.callerID
		}
	}
	if callerID == "" {
		return "", domain.ErrInvalidToken
	}
	return callerID, nil
}

// Len returns the number of configured tokens.
func (s *Static) Len() int { return len(s.entries) }

type ctxKey struct{}

// ContextWithCaller stores the authenticated caller id.
func ContextWithCaller(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, callerID)
}

// CallerFromContext returns the authenticated caller id, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
