package geo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"fuel_tracker/internal/models"
)

// Fence is a geofence as described in a GeoJSON file. BowserUnit, when set,
// names the bowser (by telemetry unit id) that owns it.
type Fence struct {
	Name       string
	Center     Point
	Radius     float64
	BowserUnit int64
}

// LoadGeofences parses a FeatureCollection of Point features. Recognised
// properties are "name", "radius" (meters) and "bowser" (unit id).
func LoadGeofences(r io.Reader) ([]Fence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geofences: %w", err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geofences: %w", err)
	}

	fences := make([]Fence, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, fmt.Errorf("%w: feature %d is %T, want Point", ErrInvalidGeofence, i, f.Geometry)
		}
		fence := Fence{
			Name:   stringProp(f.Properties, "name"),
			Center: Point{Lat: pt.Y(), Lon: pt.X()},
			Radius: numberProp(f.Properties, "radius"),
		}
		if fence.Name == "" {
			fence.Name = fmt.Sprintf("geofence-%d", i+1)
		}
		fence.BowserUnit = int64(numberProp(f.Properties, "bowser"))
		if !fence.Center.Valid() || fence.Radius < 0 {
			return nil, fmt.Errorf("%w: feature %q", ErrInvalidGeofence, fence.Name)
		}
		fences = append(fences, fence)
	}
	return fences, nil
}

// GeofencesGeoJSON renders registry geofences as a FeatureCollection.
// bowsers maps geofence id to the owning bowser, when there is one.
func GeofencesGeoJSON(fences []models.Geofence, bowsers map[uint]models.Bowser, defaultRadius float64) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(fences))}
	for _, g := range fences {
		radius := g.Radius
		if radius <= 0 {
			radius = defaultRadius
		}
		props := map[string]interface{}{
			"name":   g.Name,
			"radius": radius,
		}
		if b, ok := bowsers[g.ID]; ok {
			props["bowser_id"] = b.ID
			props["bowser"] = b.UnitID
			props["bowser_name"] = b.Name
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         fmt.Sprint(g.ID),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{g.CenterLon, g.CenterLat}),
			Properties: props,
		})
	}
	return fc
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

// JSON numbers decode to float64; numeric strings are tolerated.
func numberProp(props map[string]interface{}, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscan(v, &f); err == nil {
			return f
		}
	}
	return 0
}
