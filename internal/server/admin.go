package server

import (
	"context"
	"fmt"
	"net/http"

	"auction_engine/internal/domain/entity"
	"auction_engine/pkg/httpx/reply"
	"auction_engine/pkg/httpx/req"
	"auction_engine/pkg/rest"
)

type settingsService interface {
	Get(ctx context.Context) (entity.AuctionSettings, error)
	Update(ctx context.Context, patch entity.SettingsPatch) (entity.AuctionSettings, error)
}

type expirySweeper interface {
	SweepNow(ctx context.Context) (int, error)
}

type AdminServer struct {
	settingsService settingsService
	expirySweeper   expirySweeper
}

func NewAdminServer(settingsService settingsService, expirySweeper expirySweeper) AdminServer {
	return AdminServer{
		settingsService: settingsService,
		expirySweeper:   expirySweeper,
	}
}

func (s AdminServer) getV1Settings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	settings, err := s.settingsService.Get(ctx)
	if err != nil {
		return fmt.Errorf("settingsService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSettings(settings))

	return nil
}

func (s AdminServer) putV1Settings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.AuctionSettingsPatch
	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	settings, err := s.settingsService.Update(ctx, newDomainSettingsPatch(request))
	if err != nil {
		return fmt.Errorf("settingsService.Update: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSettings(settings))

	return nil
}

func (s AdminServer) postV1CloseExpired(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	closed, err := s.expirySweeper.SweepNow(ctx)
	if err != nil {
		return fmt.Errorf("expirySweeper.SweepNow: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.CloseExpiredResponse{Closed: closed})

	return nil
}
