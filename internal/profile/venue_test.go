package profile

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

func mustProfile(t *testing.T, accountID, venue string, types []models.TradingType, maxLev float64) *models.ConstraintProfile {
	t.Helper()
	p, err := models.NewConstraintProfile(accountID, venue, types, maxLev)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestClamp(t *testing.T) {
	registry := DefaultVenueRegistry()

	tests := []struct {
		name      string
		stored    *models.ConstraintProfile
		wantTypes []models.TradingType
		wantLev   float64
	}{
		{
			name: "spot-only venue narrows futures profile",
			stored: &models.ConstraintProfile{
				AccountID:    "a",
				Venue:        "coinbase",
				AllowedTypes: []models.TradingType{models.TradingTypeFutures},
				MaxLeverage:  10,
			},
			wantTypes: []models.TradingType{models.TradingTypeSpot},
			wantLev:   1,
		},
		{
			name: "leverage capped to venue maximum",
			stored: &models.ConstraintProfile{
				AccountID:    "a",
				Venue:        "kraken",
				AllowedTypes: []models.TradingType{models.TradingTypeFutures},
				MaxLeverage:  50,
			},
			wantTypes: []models.TradingType{models.TradingTypeFutures},
			wantLev:   5,
		},
		{
			name: "profile within venue limits passes through",
			stored: &models.ConstraintProfile{
				AccountID:    "a",
				Venue:        "binance",
				AllowedTypes: []models.TradingType{models.TradingTypeSpot, models.TradingTypeFutures},
				MaxLeverage:  10,
			},
			wantTypes: []models.TradingType{models.TradingTypeSpot, models.TradingTypeFutures},
			wantLev:   10,
		},
		{
			name: "unknown venue passes through unchanged",
			stored: &models.ConstraintProfile{
				AccountID:    "a",
				Venue:        "bitmex",
				AllowedTypes: []models.TradingType{models.TradingTypeFutures},
				MaxLeverage:  100,
			},
			wantTypes: []models.TradingType{models.TradingTypeFutures},
			wantLev:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registry.Clamp(tt.stored)
			if got.MaxLeverage != tt.wantLev {
				t.Errorf("MaxLeverage = %v, want %v", got.MaxLeverage, tt.wantLev)
			}
			if len(got.AllowedTypes) != len(tt.wantTypes) {
				t.Fatalf("AllowedTypes = %v, want %v", got.AllowedTypes, tt.wantTypes)
			}
			for i, want := range tt.wantTypes {
				if got.AllowedTypes[i] != want {
					t.Errorf("AllowedTypes[%d] = %v, want %v", i, got.AllowedTypes[i], want)
				}
			}
		})
	}
}

// Property: clamping never widens a profile. Every allowed type in the
// result was allowed before, and leverage never increases.
func TestProperty_ClampNeverWidens(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	registry := DefaultVenueRegistry()
	allTypes := []models.TradingType{
		models.TradingTypeSpot, models.TradingTypeMargin, models.TradingTypeFutures,
	}

	properties.Property("clamped leverage never exceeds stored leverage", prop.ForAll(
		func(venueIdx int, typeMask int, maxLev float64) bool {
			venues := []string{"coinbase", "kraken", "binance"}
			venue := venues[venueIdx%len(venues)]

			var types []models.TradingType
			for i, tt := range allTypes {
				if typeMask&(1<<i) != 0 {
					types = append(types, tt)
				}
			}
			if len(types) == 0 {
				types = []models.TradingType{models.TradingTypeSpot}
			}

			stored := &models.ConstraintProfile{
				AccountID:    "acct",
				Venue:        venue,
				AllowedTypes: types,
				MaxLeverage:  maxLev,
			}
			clamped := registry.Clamp(stored)

			if clamped.MaxLeverage > stored.MaxLeverage {
				return false
			}
			// The intersection fallback narrows to spot; any other kept
			// type must have been in the stored set.
			for _, kept := range clamped.AllowedTypes {
				if kept == models.TradingTypeSpot {
					continue
				}
				if !stored.Allows(kept) {
					return false
				}
			}
			if clamped.SpotOnly() && clamped.MaxLeverage != 1 {
				return false
			}
			return true
		},
		gen.IntRange(0, 2),
		gen.IntRange(1, 7),
		gen.Float64Range(1, 100),
	))

	properties.TestingRun(t)
}

type fakeStore struct {
	profiles map[string]*models.ConstraintProfile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*models.ConstraintProfile)}
}

func (s *fakeStore) GetProfile(_ context.Context, accountID, venue string) (*models.ConstraintProfile, error) {
	p, ok := s.profiles[accountID+"/"+venue]
	if !ok {
		return nil, errors.ErrProfileNotFound
	}
	return p, nil
}

func (s *fakeStore) PutProfile(_ context.Context, p *models.ConstraintProfile) error {
	s.profiles[p.AccountID+"/"+p.Venue] = p
	return nil
}

func TestResolver_MissingProfileFailsClosed(t *testing.T) {
	r := NewResolver(newFakeStore(), nil)
	_, err := r.GetProfile(context.Background(), "acct", "binance")
	if !errors.Is(err, errors.ErrProfileNotFound) {
		t.Fatalf("GetProfile() error = %v, want ErrProfileNotFound", err)
	}
}

func TestResolver_AppliesVenueLimitsOnRead(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, nil)

	// Stored config claims futures at 10x on a spot-only venue.
	stored := mustProfile(t, "acct", "Coinbase",
		[]models.TradingType{models.TradingTypeSpot, models.TradingTypeFutures}, 10)
	if err := r.PutProfile(context.Background(), stored); err != nil {
		t.Fatal(err)
	}

	got, err := r.GetProfile(context.Background(), "acct", "COINBASE")
	if err != nil {
		t.Fatal(err)
	}
	if !got.SpotOnly() {
		t.Errorf("effective profile types = %v, want spot only", got.AllowedTypes)
	}
	if got.MaxLeverage != 1 {
		t.Errorf("effective MaxLeverage = %v, want 1", got.MaxLeverage)
	}
}
