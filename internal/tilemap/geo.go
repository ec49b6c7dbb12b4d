package tilemap

import (
	"github.com/Faultbox/geotiles/pkg/math"
)

// Geographic positions are Vec3{X: lon, Y: lat, Z: altitude}.

// GeoToMap projects a geographic position into map coordinates.
func (m *Map) GeoToMap(geo math.Vec3) math.Vec3 {
	x, y := m.Projection().Project(geo.X, geo.Y)
	return math.Vec3{X: x, Y: y, Z: geo.Z}
}

// GeoToWorld projects a geographic position into world coordinates.
func (m *Map) GeoToWorld(geo math.Vec3) math.Vec3 {
	return m.world.TransformPoint(m.GeoToMap(geo))
}

// MapToGeo converts map coordinates to a geographic position.
func (m *Map) MapToGeo(p math.Vec3) math.Vec3 {
	lon, lat := m.Projection().Unproject(p.X, p.Y)
	return math.Vec3{X: lon, Y: lat, Z: p.Z}
}

// WorldToGeo converts world coordinates to a geographic position.
func (m *Map) WorldToGeo(p math.Vec3) math.Vec3 {
	return m.MapToGeo(m.world.Inverse().TransformPoint(p))
}

// PickGeo intersects a world-space ray with the map surface at zero altitude.
func (m *Map) PickGeo(ray math.Ray) (math.Vec3, bool) {
	inv := m.world.Inverse()
	origin := inv.TransformPoint(ray.Origin)
	dir := inv.TransformPoint(ray.Origin.Add(ray.Direction)).Sub(origin)

	hit, ok := math.Ray{Origin: origin, Direction: dir}.IntersectPlaneZ(0)
	if !ok {
		return math.Vec3{}, false
	}
	return m.MapToGeo(hit), true
}
