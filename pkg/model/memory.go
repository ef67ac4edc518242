package model

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

func (id MemoryID) String() string { return string(id) }

type Color string

const (
	ColorGold     Color = "Gold"
	ColorRuby     Color = "Ruby"
	ColorEmerald  Color = "Emerald"
	ColorSapphire Color = "Sapphire"
	ColorAmethyst Color = "Amethyst"
	ColorCoral    Color = "Coral"
)

// Palette is the fixed set of colors a memory can take, in display order.
var Palette = []Color{
	ColorGold,
	ColorRuby,
	ColorEmerald,
	ColorSapphire,
	ColorAmethyst,
	ColorCoral,
}

// RandomColor picks a color from Palette
func RandomColor() Color {
	return Palette[rand.IntN(len(Palette))]
}

// Validate checks if the color belongs to Palette
func (c Color) Validate() error {
	for _, p := range Palette {
		if c == p {
			return nil
		}
	}
	return goerr.Wrap(ErrValidation, "unknown color", goerr.V("color", c))
}

// RGBA returns the display color components in [0, 1].
func (c Color) RGBA() [4]float32 {
	switch c {
	case ColorRuby:
		return [4]float32{0.88, 0.07, 0.37, 1}
	case ColorEmerald:
		return [4]float32{0.31, 0.78, 0.47, 1}
	case ColorSapphire:
		return [4]float32{0.06, 0.32, 0.73, 1}
	case ColorAmethyst:
		return [4]float32{0.6, 0.4, 0.8, 1}
	case ColorCoral:
		return [4]float32{1, 0.5, 0.31, 1}
	default:
		return [4]float32{1, 0.84, 0, 1}
	}
}

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" firestore:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude" yaml:"longitude"`
}

// Memory is a note anchored to a position in tracking space. Memories are
// never modified after creation; only deletion is allowed.
type Memory struct {
	ID          MemoryID `json:"id" firestore:"id"`
	Title       string   `json:"title" firestore:"title"`
	Description string   `json:"description" firestore:"description"`
	// Position is relative to the tracking-space origin active when the
	// memory was recorded.
	Position  Vec3      `json:"position" firestore:"position"`
	Color     Color     `json:"color" firestore:"color"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`

	// Location is nil when geolocation was unavailable at creation time.
	Location *Coordinate `json:"location,omitempty" firestore:"location"`
	// WorldSnapshot is the serialized tracking map captured at creation.
	WorldSnapshot []byte `json:"world_snapshot,omitempty" firestore:"world_snapshot"`
}

// HasSnapshot reports whether the memory carries a world snapshot.
func (m *Memory) HasSnapshot() bool {
	return len(m.WorldSnapshot) > 0
}

// Validate checks the fields required for a stored memory
func (m *Memory) Validate() error {
	if m.ID == "" {
		return goerr.Wrap(ErrValidation, "memory ID is empty")
	}
	if strings.TrimSpace(m.Title) == "" {
		return goerr.Wrap(ErrValidation, "memory title is empty", goerr.V("memory_id", m.ID))
	}
	return m.Color.Validate()
}
