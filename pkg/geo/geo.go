// Package geo provides the geolocation collaborator used to scope memories
// to the user's surroundings.
package geo

import (
	"context"
	"math"
	"sync"

	"github.com/blevesearch/geo/s2"
	"github.com/m-mizutani/arjournal/pkg/model"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// Locator supplies the device location. Both methods must be free of side
// effects from the caller's point of view.
type Locator interface {
	// CurrentLocation returns nil when no fix is available.
	CurrentLocation(ctx context.Context) *model.Coordinate
	// Distance returns the great-circle distance between a and b in meters.
	Distance(a, b model.Coordinate) float64
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b model.Coordinate) float64 {
	la := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	lb := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return la.Distance(lb).Radians() * EarthRadiusMeters
}

// Static is a Locator whose fix is set explicitly, e.g. from CLI flags or a
// platform location callback.
type Static struct {
	mu  sync.RWMutex
	loc *model.Coordinate
}

// NewStatic creates a Static locator. A nil coordinate means no fix.
func NewStatic(loc *model.Coordinate) *Static {
	s := &Static{}
	s.Set(loc)
	return s
}

// Set replaces the current fix. Passing nil clears it.
func (s *Static) Set(loc *model.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc == nil {
		s.loc = nil
		return
	}
	c := *loc
	s.loc = &c
}

func (s *Static) CurrentLocation(ctx context.Context) *model.Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loc == nil {
		return nil
	}
	c := *s.loc
	return &c
}

func (s *Static) Distance(a, b model.Coordinate) float64 {
	return Distance(a, b)
}

// Offset returns the coordinate reached by moving north and east by the
// given number of meters from c. It is accurate for short distances only.
func Offset(c model.Coordinate, north, east float64) model.Coordinate {
	ll := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
	dLat := north / EarthRadiusMeters
	dLng := east / (EarthRadiusMeters * math.Cos(ll.Lat.Radians()))
	return model.Coordinate{
		Latitude:  c.Latitude + dLat*180/math.Pi,
		Longitude: c.Longitude + dLng*180/math.Pi,
	}
}
