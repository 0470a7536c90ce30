package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"auction_engine/pkg/logx"
	"auction_engine/pkg/middlewarex"
)

const defaultLogFieldMaxLen = 4096

// Handler wraps the routes with the standard middleware chain. The order
// matters: the logger needs the trace id and the recovery logs through it.
func (s Server) Handler(masker logx.SensitiveDataMaskerInterface) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.UserID,
		middlewarex.RequestLogging(masker, defaultLogFieldMaxLen),
		middlewarex.ResponseLogging(masker, defaultLogFieldMaxLen),
	)

	s.RegisterRoutes(r)

	return r
}
