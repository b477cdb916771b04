package jpegio

import (
	"encoding/binary"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/metadata"
)

const orientationTag = 0x0112

// exifByteOrder reads the TIFF byte-order mark of an EXIF blob.
func exifByteOrder(blob []byte) (binary.ByteOrder, bool) {
	if len(blob) < 8 || blob[0] != blob[1] {
		return nil, false
	}
	switch blob[0] {
	case 'I':
		return binary.LittleEndian, true
	case 'M':
		return binary.BigEndian, true
	}
	return nil, false
}

// findOrientationOffset locates the orientation value inside the EXIF
// blob and returns its byte offset, or -1. Only a well-formed SHORT tag
// with a single component counts.
func findOrientationOffset(blob []byte, bo binary.ByteOrder) int {
	if len(blob) < 8 {
		return -1
	}
	ifdOffset := int(bo.Uint32(blob[4:8]))
	if ifdOffset < 0 || len(blob) < ifdOffset+2 {
		return -1
	}
	nEntries := int(bo.Uint16(blob[ifdOffset : ifdOffset+2]))
	if len(blob) < ifdOffset+2+12*nEntries {
		return -1
	}
	p := ifdOffset + 2
	for i := 0; i < nEntries; i++ {
		if bo.Uint16(blob[p:p+2]) == orientationTag {
			if bo.Uint16(blob[p+2:p+4]) != 3 { // SHORT
				return -1
			}
			if bo.Uint32(blob[p+4:p+8]) != 1 {
				return -1
			}
			return p + 8
		}
		p += 12
	}
	return -1
}

// exifOrientation reads the orientation value of an EXIF blob; absent or
// malformed tags read as 1 (upright).
func exifOrientation(blob []byte) int {
	bo, ok := exifByteOrder(blob)
	if !ok {
		return 1
	}
	off := findOrientationOffset(blob, bo)
	if off < 0 {
		return 1
	}
	return int(bo.Uint16(blob[off : off+2]))
}

// applyOrientation normalizes the image to orientation 1: it applies the
// flip/rotate combination the tag encodes, flattens the now-strided
// pixels, and rewrites the tag in place (in the blob's own byte order).
func applyOrientation(im *imgbuf.Image8) {
	d, ok := im.GetMetadatum(metadata.TagEXIF)
	if !ok {
		return
	}
	bo, okBO := exifByteOrder(d.Blob)
	if !okBO {
		return
	}
	off := findOrientationOffset(d.Blob, bo)
	if off < 0 {
		return
	}
	orientation := int(bo.Uint16(d.Blob[off : off+2]))

	switch orientation {
	case 2:
		im.Flip(imgbuf.XAxis)
	case 3:
		im.CoarseRotate(2)
	case 4:
		im.Flip(imgbuf.XAxis)
		im.CoarseRotate(2)
	case 5:
		im.Flip(imgbuf.YAxis)
		im.CoarseRotate(1)
	case 6:
		im.CoarseRotate(1)
	case 7:
		im.Flip(imgbuf.YAxis)
		im.CoarseRotate(-1)
	case 8:
		im.CoarseRotate(-1)
	default:
		// 1 is upright; values outside 1–8 are ignored
		return
	}

	im.Flatten()
	im.MakeUnique(imgbuf.SelMeta)
	d, _ = im.GetMetadatum(metadata.TagEXIF)
	bo.PutUint16(d.Blob[off:off+2], 1)
}
