// Package memory provides an in-process canonical store, used for embedding
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/andygrunwald/fuelradar/internal/models"
	"github.com/andygrunwald/fuelradar/internal/store"
)

// Store is a mutex-guarded in-memory store.Store.
type Store struct {
	mu            sync.RWMutex
	stations      map[string]models.Station
	order         []string
	contributions []models.Contribution
	rewards       map[string]models.RewardState
	nextContribID int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		stations: make(map[string]models.Station),
		rewards:  make(map[string]models.RewardState),
	}
}

// GetStation returns a copy of the station with id.
func (s *Store) GetStation(_ context.Context, id string) (models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	if !ok {
		return models.Station{}, fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	return cloneStation(st), nil
}

// ListStations returns matching stations in insertion order.
func (s *Store) ListStations(_ context.Context, filter store.Filter) ([]models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Station, 0)
	for _, id := range s.order {
		st := s.stations[id]
		if !filter.Matches(st) {
			continue
		}
		out = append(out, cloneStation(st))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// UpsertStation inserts or replaces st.
func (s *Store) UpsertStation(_ context.Context, st models.Station) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	prev, exists := s.stations[st.ID]
	if exists {
		st.Version = prev.Version + 1
	} else {
		st.Version = 1
		s.order = append(s.order, st.ID)
	}
	s.stations[st.ID] = cloneStation(st)
	return st.ID, nil
}

// UpdateStationFields applies update under the store lock.
func (s *Store) UpdateStationFields(_ context.Context, id string, update store.StationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		return fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	st = cloneStation(st)

	if update.Price != nil {
		st.Prices[update.Price.FuelType] = update.Price.Price
	}
	if update.LastUpdated != nil {
		st.LastUpdated = *update.LastUpdated
	}
	if update.LastUpdatedTimestamp != nil {
		st.LastUpdatedTimestamp = *update.LastUpdatedTimestamp
	}
	if update.VerifiedBy != nil {
		st.VerifiedBy = *update.VerifiedBy
	}
	if update.VerifiedByLevel != nil {
		st.VerifiedByLevel = *update.VerifiedByLevel
	}
	if update.IsGhost != nil {
		st.IsGhost = *update.IsGhost
	}
	st.Version++
	s.stations[id] = st
	return nil
}

// CountStations returns the number of stations.
func (s *Store) CountStations(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.stations)), nil
}

// InsertContribution appends c.
func (s *Store) InsertContribution(_ context.Context, c models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextContribID++
	c.ID = s.nextContribID
	s.contributions = append(s.contributions, c)
	return nil
}

// ListContributions returns the contributions of userID, oldest first.
func (s *Store) ListContributions(_ context.Context, userID string) ([]models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Contribution, 0)
	for _, c := range s.contributions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetUserRewardState returns the reward state of userID.
func (s *Store) GetUserRewardState(_ context.Context, userID string) (models.RewardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewards[userID], nil
}

// UpdateUserRewardState writes state when its version matches.
func (s *Store) UpdateUserRewardState(_ context.Context, userID string, state models.RewardState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.rewards[userID]
	if current.Version != state.Version {
		return fmt.Errorf("reward state of %s: %w", userID, store.ErrVersionConflict)
	}
	state.Version++
	s.rewards[userID] = state
	return nil
}

// ListUserIDs returns every user with a reward row or a contribution, sorted.
func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.rewards))
	for id := range s.rewards {
		seen[id] = struct{}{}
	}
	for _, c := range s.contributions {
		seen[c.UserID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func cloneStation(st models.Station) models.Station {
	st.Prices = st.Prices.Clone()
	if st.Amenities != nil {
		amenities := make([]string, len(st.Amenities))
		copy(amenities, st.Amenities)
		st.Amenities = amenities
	}
	return st
}
