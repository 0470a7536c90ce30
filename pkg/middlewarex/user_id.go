package middlewarex

import (
	"net/http"

	"auction_engine/pkg/contextx"
	"auction_engine/pkg/logx"
)

const headerNameUserID = "X-User-Id"

// UserID puts the caller identity set by the upstream gateway into the
// request context. Requests without the header pass through untouched and
// handlers that need a caller reject them.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(headerNameUserID)
		if userID == "" {
			next.ServeHTTP(w, r)

			return
		}

		ctx := contextx.WithUserID(r.Context(), contextx.UserID(userID))
		ctx = contextx.WithLogger(ctx, logger(ctx).With(logx.FieldUserID, userID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
