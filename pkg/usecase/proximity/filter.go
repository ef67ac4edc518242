// Package proximity selects the memories recorded near the user's current
// location.
package proximity

import (
	"github.com/m-mizutani/arjournal/pkg/geo"
	"github.com/m-mizutani/arjournal/pkg/model"
)

// DefaultRadiusMeters is the visibility radius around the current location.
const DefaultRadiusMeters = 50.0

// DistanceFunc returns the distance between two coordinates in meters.
type DistanceFunc func(a, b model.Coordinate) float64

// Filter returns the memories within radius meters of current, in input
// order. It fails open: with no current location every memory is returned,
// and memories recorded without a location are always included. A memory
// exactly radius meters away is included.
func Filter(memories []*model.Memory, current *model.Coordinate, radius float64, distance DistanceFunc) []*model.Memory {
	if distance == nil {
		distance = geo.Distance
	}

	out := make([]*model.Memory, 0, len(memories))
	for _, m := range memories {
		if current == nil || m.Location == nil {
			out = append(out, m)
			continue
		}
		if distance(*current, *m.Location) <= radius {
			out = append(out, m)
		}
	}
	return out
}

// Nearby applies Filter with the default radius and great-circle distance.
func Nearby(memories []*model.Memory, current *model.Coordinate) []*model.Memory {
	return Filter(memories, current, DefaultRadiusMeters, geo.Distance)
}

// IDs returns the identifiers of memories, in order.
func IDs(memories []*model.Memory) []model.MemoryID {
	ids := make([]model.MemoryID, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	return ids
}
