package loader

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Faultbox/geotiles/pkg/geometry"
)

func TestDecodeTerrainRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			// 0x0186A0 = 100000 -> 0 m
			img.Set(x, y, color.RGBA{0x01, 0x86, 0xA0, 255})
		}
	}
	img.Set(0, 0, color.RGBA{0, 0, 0, 255})

	dem := DecodeTerrainRGB(img, 4)
	if len(dem) != 16 {
		t.Fatalf("len(dem) = %d, want 16", len(dem))
	}
	if dem[0] != -10000 {
		t.Errorf("dem[0] = %v, want -10000", dem[0])
	}
	if dem[5] != 0 {
		t.Errorf("dem[5] = %v, want 0", dem[5])
	}
}

func hgtRaster(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestDecodeHGT(t *testing.T) {
	data := hgtRaster(
		100, 200, 300,
		400, -32768, 600,
		700, 800, 900,
	)

	dem, err := DecodeHGT(data, 3)
	if err != nil {
		t.Fatalf("DecodeHGT() error = %v", err)
	}
	want := []float32{100, 200, 300, 400, 0, 600, 700, 800, 900}
	for i := range want {
		if dem[i] != want[i] {
			t.Errorf("dem[%d] = %v, want %v", i, dem[i], want[i])
		}
	}

	small, err := DecodeHGT(data, 2)
	if err != nil {
		t.Fatalf("DecodeHGT(2) error = %v", err)
	}
	if small[0] != 100 || small[1] != 300 || small[2] != 700 || small[3] != 900 {
		t.Errorf("downsampled dem = %v, want corners", small)
	}
}

func TestDecodeHGTZipped(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("N00E000.hgt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write(hgtRaster(1, 2, 3, 4))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	dem, err := DecodeHGT(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("DecodeHGT(zip) error = %v", err)
	}
	if len(dem) != 4 || dem[3] != 4 {
		t.Errorf("dem = %v, want [1 2 3 4]", dem)
	}
}

func TestDecodeHGTNotSquare(t *testing.T) {
	_, err := DecodeHGT(make([]byte, 6), 2)
	if !errors.Is(err, geometry.ErrInvalidInput) {
		t.Errorf("DecodeHGT(3 samples) error = %v, want ErrInvalidInput", err)
	}
}
