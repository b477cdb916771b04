package jpegio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/metadata"
)

// JPEG marker bytes.
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDHT  = 0xC4
	markerJPG  = 0xC8
	markerDAC  = 0xCC
	markerCOM  = 0xFE
	markerAPP0 = 0xE0

	markerEXIF = markerAPP0 + 1
	markerXMP  = markerAPP0 + 1
	markerICC  = markerAPP0 + 2
	markerIPTC = markerAPP0 + 13
)

const (
	iccMagic  = "ICC_PROFILE\x00"
	iptcMagic = "Photoshop "
)

// maxSegment is the largest marker payload: 65535 minus the two length
// bytes.
const maxSegment = 65533

// segment is one marker segment of a JPEG stream.
type segment struct {
	marker  byte
	payload []byte
}

// scanSegments walks the marker segments of a JPEG stream up to the start
// of scan, invoking fn for each segment that carries a payload.
func scanSegments(data []byte, fn func(seg segment) error) error {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return fmt.Errorf("%w: missing SOI marker", ErrFormat)
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return fmt.Errorf("%w: bad marker alignment at offset %d", ErrFormat, i)
		}
		marker := data[i+1]
		i += 2
		// padding bytes before the marker
		for marker == 0xFF && i < len(data) {
			marker = data[i]
			i++
		}
		if marker == markerEOI || marker == markerSOS {
			return nil
		}
		// restart markers carry no length
		if marker >= 0xD0 && marker <= 0xD7 {
			continue
		}
		if i+2 > len(data) {
			return fmt.Errorf("%w: truncated segment header", ErrFormat)
		}
		length := int(binary.BigEndian.Uint16(data[i : i+2]))
		if length < 2 || i+length > len(data) {
			return fmt.Errorf("%w: bad segment length at offset %d", ErrFormat, i)
		}
		if err := fn(segment{marker: marker, payload: data[i+2 : i+length]}); err != nil {
			return err
		}
		i += length
	}
	return nil
}

// collectMetadata attaches the metadata carried by a segment to the image,
// following the camera-file conventions: multi-segment comments and ICC
// chunks concatenate, APP1 splits into EXIF and XMP, APP13 holds
// Photoshop/IPTC data, anything else keeps its raw marker name.
func collectMetadata(im *imgbuf.Image8, seg segment) error {
	switch seg.marker {
	case markerCOM:
		return im.AppendMetadatum(metadata.TagComment,
			metadata.Datum{Blob: append([]byte(nil), seg.payload...)})

	case markerICC:
		p := seg.payload
		if len(p) <= 14 || string(p[:12]) != iccMagic {
			return nil
		}
		// the two bytes after the magic are the chunk index and count
		return im.AppendMetadatum(metadata.TagICC, metadata.Datum{
			ID:   string(p[:12]),
			Blob: append([]byte(nil), p[14:]...),
		})

	case markerIPTC:
		p := seg.payload
		if len(p) <= 14 || string(p[:10]) != iptcMagic {
			return nil
		}
		// the magic plus the 4-byte version form the id
		return im.AppendMetadatum(metadata.TagIPTC, metadata.Datum{
			ID:   string(p[:14]),
			Blob: append([]byte(nil), p[14:]...),
		})

	case markerEXIF:
		return collectAPP1(im, seg.payload)

	default:
		// APP0 (JFIF) belongs to the codec, not to the metadata store
		if seg.marker > markerAPP0 && seg.marker < markerAPP0+16 {
			name := "jpeg_app" + strconv.Itoa(int(seg.marker-markerAPP0))
			return im.AppendMetadatum(name,
				metadata.Datum{Blob: append([]byte(nil), seg.payload...)})
		}
	}
	return nil
}

// collectAPP1 branches on the APP1 payload magic: EXIF, XMP, or a generic
// application segment.
func collectAPP1(im *imgbuf.Image8, p []byte) error {
	if len(p) >= 4 && strings.EqualFold(string(p[:4]), "exif") {
		if len(p) < 6 {
			return nil
		}
		return im.AppendMetadatum(metadata.TagEXIF, metadata.Datum{
			ID:   string(p[:6]),
			Blob: append([]byte(nil), p[6:]...),
		})
	}
	if len(p) >= 5 && strings.EqualFold(string(p[:5]), "http:") {
		// the id is the NUL-terminated namespace URI
		if nul := bytes.IndexByte(p, 0); nul >= 0 {
			return im.AppendMetadatum(metadata.TagXMP, metadata.Datum{
				ID:   string(p[:nul+1]),
				Blob: append([]byte(nil), p[nul+1:]...),
			})
		}
	}
	return im.AppendMetadatum("jpeg_app1",
		metadata.Datum{Blob: append([]byte(nil), p...)})
}

func appendSegment(out *bytes.Buffer, marker byte, chunks ...[]byte) {
	length := 2
	for _, c := range chunks {
		length += len(c)
	}
	out.WriteByte(0xFF)
	out.WriteByte(marker)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	for _, c := range chunks {
		out.Write(c)
	}
}

// writeComment emits the comment blob as one or more COM segments.
func writeComment(out *bytes.Buffer, im *imgbuf.Image8) {
	d, ok := im.GetMetadatum(metadata.TagComment)
	if !ok {
		return
	}
	for i := 0; i < len(d.Blob); i += maxSegment {
		end := i + maxSegment
		if end > len(d.Blob) {
			end = len(d.Blob)
		}
		appendSegment(out, markerCOM, d.Blob[i:end])
	}
}

// writeICCProfile splits the ICC blob into APP2 chunks, each prefixed with
// the id and the 1-indexed (chunk, total) pair.
func writeICCProfile(out *bytes.Buffer, im *imgbuf.Image8) {
	d, ok := im.GetMetadatum(metadata.TagICC)
	if !ok || len(d.Blob) == 0 {
		return
	}
	chunkLen := maxSegment - len(d.ID) - 2
	nChunks := (len(d.Blob)-1)/chunkLen + 1
	pos := 0
	for i := 0; i < nChunks; i++ {
		end := pos + chunkLen
		if end > len(d.Blob) {
			end = len(d.Blob)
		}
		appendSegment(out, markerICC,
			[]byte(d.ID), []byte{byte(i + 1), byte(nChunks)}, d.Blob[pos:end])
		pos = end
	}
}

// writeOtherProfile emits a metadata entry under its marker, chunking
// oversized blobs with the id repeated per chunk.
func writeOtherProfile(out *bytes.Buffer, name string, d metadata.Datum) {
	var marker byte
	switch {
	case strings.HasPrefix(name, "jpeg_app"):
		n, err := strconv.Atoi(name[len("jpeg_app"):])
		if err != nil || n < 0 || n > 15 {
			return
		}
		marker = markerAPP0 + byte(n)
	case name == metadata.TagIPTC:
		marker = markerIPTC
	case name == metadata.TagEXIF:
		marker = markerEXIF
	case name == metadata.TagXMP:
		marker = markerXMP
	default:
		// unrecognized metadata is not representable in a JPEG stream
		return
	}

	chunkLen := maxSegment - len(d.ID)
	for pos := 0; pos < len(d.Blob); pos += chunkLen {
		end := pos + chunkLen
		if end > len(d.Blob) {
			end = len(d.Blob)
		}
		appendSegment(out, marker, []byte(d.ID), d.Blob[pos:end])
	}
}

// metadataSegments renders the image's metadata in file order: comment,
// ICC profile, then everything else.
func metadataSegments(im *imgbuf.Image8) []byte {
	var out bytes.Buffer
	writeComment(&out, im)
	writeICCProfile(&out, im)
	for _, tag := range im.Metadata().Tags() {
		if tag == metadata.TagComment || tag == metadata.TagICC {
			continue
		}
		d, _ := im.GetMetadatum(tag)
		writeOtherProfile(&out, tag, d)
	}
	return out.Bytes()
}

// spliceMetadata inserts the segments right after the SOI marker (and any
// APP0 the encoder wrote).
func spliceMetadata(encoded, segments []byte) []byte {
	if len(segments) == 0 {
		return encoded
	}
	insert := 2
	for insert+4 <= len(encoded) && encoded[insert] == 0xFF && encoded[insert+1] == markerAPP0 {
		length := int(binary.BigEndian.Uint16(encoded[insert+2 : insert+4]))
		insert += 2 + length
	}
	out := make([]byte, 0, len(encoded)+len(segments))
	out = append(out, encoded[:insert]...)
	out = append(out, segments...)
	out = append(out, encoded[insert:]...)
	return out
}
