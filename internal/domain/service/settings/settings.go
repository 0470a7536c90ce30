// Package settings serves the auto-extension settings with bounded staleness.
package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/pkg/contextx"
	"auction_engine/pkg/errcodes"
	"auction_engine/pkg/logx"
)

const (
	DefaultTTL = 60 * time.Second

	cacheKey = "auction-settings"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Store persists the singleton settings row. Load returns found=false when
// nothing was ever saved.
type Store interface {
	LoadSettings(ctx context.Context) (entity.AuctionSettings, bool, error)
	SaveSettings(ctx context.Context, s entity.AuctionSettings) error
}

type Provider struct {
	store    Store
	cache    *cache.Cache
	group    singleflight.Group
	validate *validator.Validate

	// generation counts invalidations; a load only fills the cache when no
	// invalidation happened while it was reading the store.
	mu         sync.Mutex
	generation uint64
}

func NewProvider(store Store, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Provider{
		store:    store,
		cache:    cache.New(ttl, 2*ttl),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Get returns the current settings. A missing row is materialized with the
// defaults. Storage errors degrade to the defaults and are not cached.
func (p *Provider) Get(ctx context.Context) (entity.AuctionSettings, error) {
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(entity.AuctionSettings), nil //nolint:forcetypeassert
	}

	v, err, _ := p.group.Do(cacheKey, func() (any, error) {
		return p.load(ctx)
	})
	if err != nil {
		logger(ctx).Warn("auction settings unavailable, using defaults", logx.Error(err))
		return entity.DefaultAuctionSettings(), nil
	}

	return v.(entity.AuctionSettings), nil //nolint:forcetypeassert
}

func (p *Provider) load(ctx context.Context) (entity.AuctionSettings, error) {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()

	s, found, err := p.store.LoadSettings(ctx)
	if err != nil {
		return entity.AuctionSettings{}, fmt.Errorf("settings.load: %w", err)
	}

	if !found {
		s = entity.DefaultAuctionSettings()
		if err := p.store.SaveSettings(ctx, s); err != nil {
			return entity.AuctionSettings{}, fmt.Errorf("settings.load: materialize defaults: %w", err)
		}
	}

	p.mu.Lock()
	if gen == p.generation {
		p.cache.SetDefault(cacheKey, s)
	}
	p.mu.Unlock()

	return s, nil
}

// Update validates and persists a partial update, then drops the cached
// value so the next read sees it.
func (p *Provider) Update(ctx context.Context, patch entity.SettingsPatch) (entity.AuctionSettings, error) {
	current, err := p.Get(ctx)
	if err != nil {
		return entity.AuctionSettings{}, err
	}

	next := patch.Apply(current)
	if err := p.validate.StructCtx(ctx, next); err != nil {
		return entity.AuctionSettings{}, domain.WrapError(
			err, domain.KindValidation, errcodes.InvalidSettings,
			"threshold must be within 1..60 minutes and duration within 1..120 minutes",
		)
	}

	if err := p.store.SaveSettings(ctx, next); err != nil {
		return entity.AuctionSettings{}, domain.WrapError(
			err, domain.KindPersistence, errcodes.StorageFailure, "save auction settings",
		)
	}

	p.Invalidate()

	logger(ctx).Info("auction settings updated",
		"threshold-minutes", next.AutoExtendThresholdMinutes,
		"duration-minutes", next.AutoExtendDurationMinutes,
	)

	return next, nil
}

func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	p.cache.Delete(cacheKey)
	p.group.Forget(cacheKey)
}
