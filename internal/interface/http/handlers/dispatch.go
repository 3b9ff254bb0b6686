package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
)

// Dispatcher triggers one reminder dispatch run. Implemented by the daily
// reminder job.
type Dispatcher interface {
	Dispatch(ctx context.Context) (*reminder.DispatchResult, error)
}

// BearerAuthorized reports whether the request carries the expected bearer
// secret. An empty secret authorizes nothing. Constant-time comparison.
func BearerAuthorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
