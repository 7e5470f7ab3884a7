package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"earntracker/internal/core"
	"earntracker/internal/log"
)

type ctxKey int

const userIDKey ctxKey = iota

// requireAuth accepts a bearer token issued by the user service. Tokens of
// deleted users are rejected.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, core.ErrUnauthorized)
			return
		}

		claims, err := s.users.ParseToken(strings.TrimSpace(token))
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Token rejected", "error", err)
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		if _, err := s.users.Get(r.Context(), userID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				err = core.ErrUnauthorized
			}
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next(w, r.WithContext(ctx))
	}
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
