package settings_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction_engine/internal/domain"
	"auction_engine/internal/domain/entity"
	"auction_engine/internal/domain/service/settings"
	"auction_engine/pkg/errcodes"
)

type fakeStore struct {
	mu      sync.Mutex
	value   *entity.AuctionSettings
	loadErr error
	saveErr error
	loads   atomic.Int32
}

func (f *fakeStore) LoadSettings(context.Context) (entity.AuctionSettings, bool, error) {
	f.loads.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return entity.AuctionSettings{}, false, f.loadErr
	}
	if f.value == nil {
		return entity.AuctionSettings{}, false, nil
	}
	return *f.value, true, nil
}

func (f *fakeStore) SaveSettings(_ context.Context, s entity.AuctionSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	f.value = &s
	return nil
}

func (f *fakeStore) set(s entity.AuctionSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = &s
}

func TestProviderMaterializesDefaults(t *testing.T) {
	rq := require.New(t)

	store := &fakeStore{}
	p := settings.NewProvider(store, time.Minute)

	got, err := p.Get(context.Background())
	rq.NoError(err)
	rq.Equal(entity.DefaultAuctionSettings(), got)
	rq.NotNil(store.value)
	rq.Equal(entity.DefaultAuctionSettings(), *store.value)
}

func TestProviderServesFromCacheWithinTTL(t *testing.T) {
	rq := require.New(t)

	store := &fakeStore{}
	store.set(entity.AuctionSettings{AutoExtendThresholdMinutes: 2, AutoExtendDurationMinutes: 4})
	p := settings.NewProvider(store, time.Minute)

	first, err := p.Get(context.Background())
	rq.NoError(err)

	// Out-of-band change stays invisible until the TTL passes.
	store.set(entity.AuctionSettings{AutoExtendThresholdMinutes: 9, AutoExtendDurationMinutes: 9})

	second, err := p.Get(context.Background())
	rq.NoError(err)
	rq.Equal(first, second)
	rq.EqualValues(1, store.loads.Load())
}

func TestProviderReloadsAfterTTL(t *testing.T) {
	rq := require.New(t)

	store := &fakeStore{}
	store.set(entity.AuctionSettings{AutoExtendThresholdMinutes: 2, AutoExtendDurationMinutes: 4})
	p := settings.NewProvider(store, 50*time.Millisecond)

	_, err := p.Get(context.Background())
	rq.NoError(err)

	store.set(entity.AuctionSettings{AutoExtendThresholdMinutes: 9, AutoExtendDurationMinutes: 9})

	rq.Eventually(func() bool {
		got, err := p.Get(context.Background())
		return err == nil && got.AutoExtendThresholdMinutes == 9
	}, time.Second, 10*time.Millisecond)
}

func TestProviderUpdateInvalidatesCache(t *testing.T) {
	rq := require.New(t)

	store := &fakeStore{}
	p := settings.NewProvider(store, time.Hour)

	_, err := p.Get(context.Background())
	rq.NoError(err)

	threshold := 15
	updated, err := p.Update(context.Background(), entity.SettingsPatch{AutoExtendThresholdMinutes: &threshold})
	rq.NoError(err)
	rq.Equal(15, updated.AutoExtendThresholdMinutes)
	rq.Equal(entity.DefaultAutoExtendDurationMinutes, updated.AutoExtendDurationMinutes)

	got, err := p.Get(context.Background())
	rq.NoError(err)
	rq.Equal(updated, got)
}

// stallingStore reads the row, then holds the first load until proceed is closed.
type stallingStore struct {
	*fakeStore
	once    sync.Once
	read    chan struct{}
	proceed chan struct{}
}

func (s *stallingStore) LoadSettings(ctx context.Context) (entity.AuctionSettings, bool, error) {
	v, found, err := s.fakeStore.LoadSettings(ctx)

	s.once.Do(func() {
		close(s.read)
		<-s.proceed
	})

	return v, found, err
}

func TestProviderDropsLoadOverlappingInvalidate(t *testing.T) {
	rq := require.New(t)

	old := entity.AuctionSettings{AutoExtendThresholdMinutes: 2, AutoExtendDurationMinutes: 4}
	fresh := entity.AuctionSettings{AutoExtendThresholdMinutes: 9, AutoExtendDurationMinutes: 9}

	store := &stallingStore{fakeStore: &fakeStore{}, read: make(chan struct{}), proceed: make(chan struct{})}
	store.set(old)
	p := settings.NewProvider(store, time.Hour)

	stale := make(chan entity.AuctionSettings, 1)
	go func() {
		got, _ := p.Get(context.Background())
		stale <- got
	}()

	<-store.read
	store.set(fresh)
	p.Invalidate()
	close(store.proceed)

	rq.Equal(old, <-stale)

	got, err := p.Get(context.Background())
	rq.NoError(err)
	rq.Equal(fresh, got)
	rq.EqualValues(2, store.loads.Load())
}

func TestProviderUpdateValidation(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	testCases := []struct {
		name  string
		patch entity.SettingsPatch
		valid bool
	}{
		{name: "threshold lower bound", patch: entity.SettingsPatch{AutoExtendThresholdMinutes: intPtr(1)}, valid: true},
		{name: "threshold upper bound", patch: entity.SettingsPatch{AutoExtendThresholdMinutes: intPtr(60)}, valid: true},
		{name: "threshold zero", patch: entity.SettingsPatch{AutoExtendThresholdMinutes: intPtr(0)}},
		{name: "threshold too high", patch: entity.SettingsPatch{AutoExtendThresholdMinutes: intPtr(61)}},
		{name: "duration upper bound", patch: entity.SettingsPatch{AutoExtendDurationMinutes: intPtr(120)}, valid: true},
		{name: "duration too high", patch: entity.SettingsPatch{AutoExtendDurationMinutes: intPtr(121)}},
		{name: "duration negative", patch: entity.SettingsPatch{AutoExtendDurationMinutes: intPtr(-5)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			store := &fakeStore{}
			p := settings.NewProvider(store, time.Minute)

			_, err := p.Update(context.Background(), tc.patch)
			if tc.valid {
				rq.NoError(err)
				return
			}

			rq.Error(err)
			rq.Equal(domain.KindValidation, domain.KindOf(err))
			code, _ := domain.CodeOf(err)
			rq.Equal(errcodes.InvalidSettings, code)
			rq.Equal(entity.DefaultAuctionSettings(), *store.value)
		})
	}
}

func TestProviderStorageErrorFallsBackWithoutCaching(t *testing.T) {
	rq := require.New(t)

	store := &fakeStore{loadErr: errors.New("db down")}
	p := settings.NewProvider(store, time.Hour)

	got, err := p.Get(context.Background())
	rq.NoError(err)
	rq.Equal(entity.DefaultAuctionSettings(), got)

	store.mu.Lock()
	store.loadErr = nil
	store.mu.Unlock()
	store.set(entity.AuctionSettings{AutoExtendThresholdMinutes: 7, AutoExtendDurationMinutes: 8})

	got, err = p.Get(context.Background())
	rq.NoError(err)
	rq.Equal(7, got.AutoExtendThresholdMinutes)
}
