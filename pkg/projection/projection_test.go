package projection

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestNewUnknownProjection(t *testing.T) {
	_, err := New("900913", 0)
	if !errors.Is(err, ErrUnknownProjection) {
		t.Errorf("New(900913) error = %v, want ErrUnknownProjection", err)
	}
}

func TestNewInvalidCenterLongitude(t *testing.T) {
	_, err := New(Mercator, 45)
	if !errors.Is(err, ErrInvalidCenterLongitude) {
		t.Errorf("New(3857, 45) error = %v, want ErrInvalidCenterLongitude", err)
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	for _, lon0 := range []float64{0, 90, -90} {
		p, err := New(Mercator, lon0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		for lon := -179.5; lon < 180; lon += 12.25 {
			for lat := -84.9; lat < 85; lat += 7.3 {
				x, y := p.Project(lon, lat)
				gotLon, gotLat := p.Unproject(x, y)
				if math.Abs(gotLon-lon) > 1e-6 || math.Abs(gotLat-lat) > 1e-6 {
					t.Errorf("lon0=%v: round trip (%v, %v) = (%v, %v)", lon0, lon, lat, gotLon, gotLat)
				}
			}
		}
	}
}

func TestPlateCarreeRoundTrip(t *testing.T) {
	p, err := New(PlateCarree, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	x, y := p.Project(12.5, -33.25)
	if x != 1250000 || y != -3325000 {
		t.Errorf("Project(12.5, -33.25) = (%v, %v), want (1250000, -3325000)", x, y)
	}
	lon, lat := p.Unproject(x, y)
	if math.Abs(lon-12.5) > 1e-9 || math.Abs(lat+33.25) > 1e-9 {
		t.Errorf("Unproject() = (%v, %v), want (12.5, -33.25)", lon, lat)
	}
}

func TestRootTileCoversFullExtent(t *testing.T) {
	tests := []struct {
		id     ID
		lon0   float64
		maxLat float64
	}{
		{Mercator, 0, MaxLatitude},
		{Mercator, 90, MaxLatitude},
		{Mercator, -90, MaxLatitude},
		{PlateCarree, 0, 90},
		{PlateCarree, 90, 90},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.id, tt.lon0), func(t *testing.T) {
			p, err := New(tt.id, tt.lon0)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			b := p.LonLatBounds(0, 0, 0)
			if math.Abs(b.Min.Lon()+180) > 1e-9 || math.Abs(b.Max.Lon()-180) > 1e-9 {
				t.Errorf("longitude span = [%v, %v], want [-180, 180]", b.Min.Lon(), b.Max.Lon())
			}
			if math.Abs(b.Min.Lat()+tt.maxLat) > 1e-6 || math.Abs(b.Max.Lat()-tt.maxLat) > 1e-6 {
				t.Errorf("latitude span = [%v, %v], want ±%v", b.Min.Lat(), b.Max.Lat(), tt.maxLat)
			}
		})
	}
}

func TestProjBoundsRowZeroIsTop(t *testing.T) {
	p, _ := New(Mercator, 0)
	half := p.MapWidth / 2

	top := p.ProjBounds(0, 0, 1)
	if top.MinX != -half || top.MaxX != 0 || top.MaxY != half || top.MinY != 0 {
		t.Errorf("ProjBounds(0,0,1) = %+v", top)
	}
	bottom := p.ProjBounds(1, 1, 1)
	if bottom.MinX != 0 || bottom.MaxX != half || bottom.MaxY != 0 || bottom.MinY != -half {
		t.Errorf("ProjBounds(1,1,1) = %+v", bottom)
	}
}

func TestProjBoundsFromLonLat(t *testing.T) {
	p, _ := New(PlateCarree, 0)
	b := p.ProjBoundsFromLonLat(p.LonLatBounds(3, 1, 2))
	want := p.ProjBounds(3, 1, 2)
	if math.Abs(b.MinX-want.MinX) > 1e-6 || math.Abs(b.MaxY-want.MaxY) > 1e-6 {
		t.Errorf("ProjBoundsFromLonLat() = %+v, want %+v", b, want)
	}
}

func TestTileXWithCenterLon(t *testing.T) {
	tests := []struct {
		lon0 float64
		x, z uint32
		want uint32
	}{
		{0, 3, 2, 3},
		{90, 0, 2, 1},
		{90, 3, 2, 0},
		{-90, 0, 2, 3},
		{-90, 5, 3, 3},
		{90, 1, 1, 1},
		{90, 0, 0, 0},
	}

	for _, tt := range tests {
		p, _ := New(Mercator, tt.lon0)
		if got := p.TileXWithCenterLon(tt.x, tt.z); got != tt.want {
			t.Errorf("lon0=%v TileXWithCenterLon(%d, %d) = %d, want %d", tt.lon0, tt.x, tt.z, got, tt.want)
		}
	}
}

func TestLonLatBoundsAcrossAntimeridian(t *testing.T) {
	p, err := New(Mercator, 90)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Plane column 3 at zoom 2 spans lon 180..270, i.e. 180 then -180..-90.
	b := p.LonLatBounds(3, 1, 2)
	if math.Abs(b.Min.Lon()-180) > 1e-9 || math.Abs(b.Max.Lon()+90) > 1e-9 {
		t.Errorf("longitude span = [%v, %v], want [180, -90]", b.Min.Lon(), b.Max.Lon())
	}
}

func TestTileXWithCenterLonMatchesBounds(t *testing.T) {
	const z = 3
	n := uint32(1) << z
	for _, lon0 := range []float64{-90, 0, 90} {
		p, err := New(Mercator, lon0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		for x := range n {
			// West edge of the XYZ source column in a standard map.
			src := p.TileXWithCenterLon(x, z)
			want := -180 + 360*float64(src)/float64(n)
			got := p.LonLatBounds(x, 0, z).Min.Lon()
			if got > 180-1e-9 {
				got -= 360
			}
			if math.Abs(got-want) > 1e-6 {
				t.Errorf("lon0=%v column %d: west edge %v, source column %d starts at %v", lon0, x, got, src, want)
			}
		}
	}
}
