// Package location provides the optional read-once coordinate source used to
// annotate the session persona with a last-known location.
//
// Lookups are best-effort: a source that cannot produce coordinates reports
// ok=false and the caller proceeds without an annotation. Acquiring a
// location must never block session start beyond the caller's context.
package location

import (
	"context"
	"fmt"
)

// Coords is a latitude/longitude pair in decimal degrees.
type Coords struct {
	Lat float64
	Lng float64
}

// String formats the coordinates for inclusion in a persona annotation.
func (c Coords) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// Source yields at most one coordinate fix per session.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// GetOnce returns the current coordinates. ok is false when no fix is
	// available (denied, unavailable, or ctx expired); the zero Coords value
	// accompanies ok=false.
	GetOnce(ctx context.Context) (coords Coords, ok bool)
}

// Static is a [Source] returning a fixed coordinate pair, typically loaded
// from configuration.
type Static struct {
	Coords Coords
}

// GetOnce implements [Source]. It always succeeds.
func (s Static) GetOnce(_ context.Context) (Coords, bool) {
	return s.Coords, true
}

// None is a [Source] that never produces a fix.
type None struct{}

// GetOnce implements [Source]. It always reports ok=false.
func (None) GetOnce(_ context.Context) (Coords, bool) {
	return Coords{}, false
}

// Func adapts a plain function to the [Source] interface. Useful in tests.
type Func func(ctx context.Context) (Coords, bool)

// GetOnce implements [Source] by calling f.
func (f Func) GetOnce(ctx context.Context) (Coords, bool) {
	return f(ctx)
}
