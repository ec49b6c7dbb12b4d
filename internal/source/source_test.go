package source

import (
	"errors"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/geotiles/pkg/projection"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

func TestNewDefaults(t *testing.T) {
	s := New("image", "tiles/{z}/{x}/{y}.png")

	if s.MinLevel != 0 || s.MaxLevel != 18 {
		t.Errorf("levels = [%d, %d], want [0, 18]", s.MinLevel, s.MaxLevel)
	}
	if s.ProjectionID != projection.Mercator {
		t.Errorf("ProjectionID = %q, want 3857", s.ProjectionID)
	}
	if s.Opacity != 1 {
		t.Errorf("Opacity = %v, want 1", s.Opacity)
	}
	if s.Bound() != DefaultBound {
		t.Errorf("Bound() = %v, want default", s.Bound())
	}
}

func TestTileURL(t *testing.T) {
	tests := []struct {
		name string
		tms  bool
		x, y uint32
		z    uint32
		want string
	}{
		{"xyz", false, 3, 1, 2, "tiles/2/3/1.png"},
		{"tms flips rows", true, 3, 1, 2, "tiles/2/3/2.png"},
		{"tms root", true, 0, 0, 0, "tiles/0/0/0.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("image", "tiles/{z}/{x}/{y}.png")
			s.TMS = tt.tms
			if got := s.TileURL(tileid.New(tt.x, tt.y, tt.z)); got != tt.want {
				t.Errorf("TileURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTileURLSubdomains(t *testing.T) {
	s := New("image", "https://{s}.tile.example/{z}/{x}/{y}.png")
	s.Subdomains = []string{"one", "two"}

	for range 20 {
		got := s.TileURL(tileid.New(0, 0, 0))
		if got != "https://one.tile.example/0/0/0.png" && got != "https://two.tile.example/0/0/0.png" {
			t.Fatalf("TileURL() = %q, want a listed subdomain", got)
		}
	}

	s.Subdomains = nil
	got := s.TileURL(tileid.New(0, 0, 0))
	ok := slices.ContainsFunc(DefaultSubdomains, func(sub string) bool {
		return got == "https://"+sub+".tile.example/0/0/0.png"
	})
	if !ok {
		t.Errorf("TileURL() = %q, want a default subdomain", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"ok", *New("image", "x"), nil},
		{"no type", Source{URL: "x", MaxLevel: 3}, ErrNoDataType},
		{"no url", Source{DataType: "image", MaxLevel: 3}, ErrNoURL},
		{"levels", Source{DataType: "image", URL: "x", MinLevel: 5, MaxLevel: 3}, ErrBadLevels},
		{"bounds", Source{DataType: "image", URL: "x", MaxLevel: 3, Bounds: []float64{1, 2}}, ErrBadBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	data := []byte(`
data_type: terrain-rgb
url: dem/{z}/{x}/{y}.png
max_level: 12
tms: true
bounds: [10, 40, 20, 50]
`)
	var s Source
	if err := yaml.Unmarshal(data, &s); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	s.ApplyDefaults()

	if s.DataType != "terrain-rgb" || s.MaxLevel != 12 || !s.TMS {
		t.Errorf("decoded source = %+v", s)
	}
	b := s.Bound()
	if b.Min.Lon() != 10 || b.Max.Lat() != 50 {
		t.Errorf("Bound() = %v, want [10 40 20 50]", b)
	}
	if !s.Covers(12) || s.Covers(13) {
		t.Errorf("Covers() disagrees with max level 12")
	}
}
