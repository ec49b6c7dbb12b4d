package projection

import "math"

// earthRadius is the WGS84 semi-major axis in meters.
const earthRadius = 6378137.0

// MaxLatitude is the latitude where Web Mercator's square map ends.
const MaxLatitude = 85.05112877980659

type mercator struct {
	lon0 float64
}

func (m mercator) project(lon, lat float64) (float64, float64) {
	lonRad := (lon - m.lon0) * math.Pi / 180
	latRad := lat * math.Pi / 180
	x := earthRadius * lonRad
	y := earthRadius * math.Log(math.Tan(math.Pi/4+latRad/2))
	return x, y
}

func (m mercator) unproject(x, y float64) (float64, float64) {
	lon := x/earthRadius*180/math.Pi + m.lon0
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return wrapLon(lon), lat
}
