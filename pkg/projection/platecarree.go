package projection

// unitsPerDegree scales degrees to plane units on the equirectangular map.
const unitsPerDegree = 100000.0

type plateCarree struct {
	lon0 float64
}

func (p plateCarree) project(lon, lat float64) (float64, float64) {
	return (lon - p.lon0) * unitsPerDegree, lat * unitsPerDegree
}

func (p plateCarree) unproject(x, y float64) (float64, float64) {
	return wrapLon(x/unitsPerDegree + p.lon0), y / unitsPerDegree
}
