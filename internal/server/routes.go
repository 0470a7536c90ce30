package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"auction_engine/internal/domain"
	"auction_engine/pkg/httpx/reply"
)

// retryAfter is advertised on contention so clients back off for about one
// lock wait before retrying.
const retryAfter = time.Second

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auctions/{id}", func(r chi.Router) {
			r.Post("/bids", handler(s.postV1Bid))
			r.Get("/bids", handler(s.getV1Bids))
			r.Get("/winner", handler(s.getV1Winner))
			r.Get("/can-bid", handler(s.getV1CanBid))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/auction-settings", handler(s.getV1Settings))
			r.Put("/auction-settings", handler(s.putV1Settings))
			r.Post("/auctions/close-expired", handler(s.postV1CloseExpired))
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

// writeError maps engine errors by kind. Everything else goes through the
// generic failure mapping.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		reply.Error(r.Context(), w, err)

		return
	}

	if appErr.Kind == domain.KindContention {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}

	reply.Fail(r.Context(), w, domain.HTTPStatus(appErr.Kind), appErr.Code, appErr.Message)
}
