package exifprops

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

type ratTag struct {
	id       uint16
	num, den uint32
}

// buildExifBlob assembles a little-endian TIFF structure with an Exif
// sub-IFD holding the given rational tags and an optional ISO value.
func buildExifBlob(rats []ratTag, iso uint16, withISO bool) []byte {
	le := binary.LittleEndian

	nEntries := len(rats)
	if withISO {
		nEntries++
	}

	const ifd0Offset = 8
	ifd0Size := 2 + 12 + 4
	exifIFDOffset := ifd0Offset + ifd0Size
	exifIFDSize := 2 + 12*nEntries + 4
	dataOffset := exifIFDOffset + exifIFDSize

	blob := make([]byte, dataOffset+8*len(rats))
	blob[0], blob[1] = 'I', 'I'
	le.PutUint16(blob[2:4], 42)
	le.PutUint32(blob[4:8], ifd0Offset)

	// IFD0: a single ExifIFDPointer entry
	le.PutUint16(blob[ifd0Offset:], 1)
	entry := ifd0Offset + 2
	le.PutUint16(blob[entry:], 0x8769) // ExifIFDPointer
	le.PutUint16(blob[entry+2:], 4)    // LONG
	le.PutUint32(blob[entry+4:], 1)
	le.PutUint32(blob[entry+8:], uint32(exifIFDOffset))

	// Exif IFD
	le.PutUint16(blob[exifIFDOffset:], uint16(nEntries))
	entry = exifIFDOffset + 2
	data := dataOffset
	for _, r := range rats {
		le.PutUint16(blob[entry:], r.id)
		le.PutUint16(blob[entry+2:], 5) // RATIONAL
		le.PutUint32(blob[entry+4:], 1)
		le.PutUint32(blob[entry+8:], uint32(data))
		le.PutUint32(blob[data:], r.num)
		le.PutUint32(blob[data+4:], r.den)
		data += 8
		entry += 12
	}
	if withISO {
		le.PutUint16(blob[entry:], 0x8827) // ISOSpeedRatings
		le.PutUint16(blob[entry+2:], 3)    // SHORT
		le.PutUint32(blob[entry+4:], 1)
		le.PutUint16(blob[entry+8:], iso)
	}
	return blob
}

func TestEV100(t *testing.T) {
	blob := buildExifBlob([]ratTag{
		{0x829D, 4, 1},   // FNumber f/4
		{0x829A, 1, 125}, // ExposureTime 1/125s
	}, 100, true)

	p, err := FromBlob(blob)
	if err != nil {
		t.Fatalf("FromBlob: %v", err)
	}
	got, err := p.EV100()
	if err != nil {
		t.Fatalf("EV100: %v", err)
	}
	want := math.Log2(16) + math.Log2(125)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EV100: got %g, want %g", got, want)
	}
}

func TestEV100AtHigherISO(t *testing.T) {
	blob := buildExifBlob([]ratTag{
		{0x829D, 28, 10}, // f/2.8
		{0x829A, 1, 60},  // 1/60s
	}, 400, true)

	p, err := FromBlob(blob)
	if err != nil {
		t.Fatalf("FromBlob: %v", err)
	}
	got, err := p.EV100()
	if err != nil {
		t.Fatalf("EV100: %v", err)
	}
	want := math.Log2(2.8*2.8) + math.Log2(60) - math.Log2(4)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EV100: got %g, want %g", got, want)
	}
}

func TestEV100MissingISO(t *testing.T) {
	blob := buildExifBlob([]ratTag{
		{0x829D, 4, 1},
		{0x829A, 1, 125},
	}, 0, false)

	p, err := FromBlob(blob)
	if err != nil {
		t.Fatalf("FromBlob: %v", err)
	}
	if _, err := p.EV100(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("got %v, want ErrMissingField", err)
	}
}

func TestEV100MissingFNumber(t *testing.T) {
	blob := buildExifBlob([]ratTag{
		{0x829A, 1, 125},
	}, 100, true)

	p, err := FromBlob(blob)
	if err != nil {
		t.Fatalf("FromBlob: %v", err)
	}
	if _, err := p.EV100(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("got %v, want ErrMissingField", err)
	}
}
