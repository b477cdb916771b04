package cms

import (
	"encoding/binary"
	"fmt"
)

// ICC tag and type signatures used by the matrix/shaper parser.
const (
	sigAcsp = 0x61637370 // 'acsp'
	sigRGB  = 0x52474220 // 'RGB '
	sigGray = 0x47524159 // 'GRAY'

	tagRXYZ = 0x7258595A // 'rXYZ'
	tagGXYZ = 0x6758595A // 'gXYZ'
	tagBXYZ = 0x6258595A // 'bXYZ'
	tagRTRC = 0x72545243 // 'rTRC'
	tagGTRC = 0x67545243 // 'gTRC'
	tagBTRC = 0x62545243 // 'bTRC'
	tagKTRC = 0x6B545243 // 'kTRC'

	typeXYZ  = 0x58595A20 // 'XYZ '
	typeCurv = 0x63757276 // 'curv'
	typePara = 0x70617261 // 'para'
)

// FromMemory parses an ICC profile blob. Matrix/shaper RGB profiles (the
// kind embedded by cameras and converters) and gray profiles are
// supported; LUT-based profiles yield ErrUnsupportedProfile.
func FromMemory(data []byte) (*Profile, error) {
	if len(data) < 132 {
		return nil, fmt.Errorf("%w: short header", ErrBadProfile)
	}
	be := binary.BigEndian
	if size := be.Uint32(data[0:4]); int(size) > len(data) {
		return nil, fmt.Errorf("%w: truncated (header says %d bytes, have %d)",
			ErrBadProfile, size, len(data))
	}
	if be.Uint32(data[36:40]) != sigAcsp {
		return nil, fmt.Errorf("%w: bad signature", ErrBadProfile)
	}
	space := be.Uint32(data[16:20])

	tagCount := int(be.Uint32(data[128:132]))
	if tagCount < 0 || 132+12*tagCount > len(data) {
		return nil, fmt.Errorf("%w: bad tag table", ErrBadProfile)
	}
	tags := make(map[uint32][]byte, tagCount)
	for i := 0; i < tagCount; i++ {
		base := 132 + 12*i
		sig := be.Uint32(data[base : base+4])
		off := int(be.Uint32(data[base+4 : base+8]))
		size := int(be.Uint32(data[base+8 : base+12]))
		if off < 0 || size < 0 || off+size > len(data) {
			return nil, fmt.Errorf("%w: tag %08x out of range", ErrBadProfile, sig)
		}
		tags[sig] = data[off : off+size]
	}

	switch space {
	case sigRGB:
		return parseMatrixRGB(tags)
	case sigGray:
		return parseGray(tags)
	default:
		return nil, fmt.Errorf("%w: device space %08x", ErrUnsupportedProfile, space)
	}
}

func parseMatrixRGB(tags map[uint32][]byte) (*Profile, error) {
	var matrix [3][3]float64
	for col, sig := range []uint32{tagRXYZ, tagGXYZ, tagBXYZ} {
		data, ok := tags[sig]
		if !ok {
			return nil, fmt.Errorf("%w: no colorant matrix", ErrUnsupportedProfile)
		}
		xyz, err := parseXYZTag(data)
		if err != nil {
			return nil, err
		}
		for row := 0; row < 3; row++ {
			matrix[row][col] = xyz[row]
		}
	}
	inv, ok := invertMat(matrix)
	if !ok {
		return nil, fmt.Errorf("%w: singular colorant matrix", ErrBadProfile)
	}

	var trc [3]toneCurve
	for i, sig := range []uint32{tagRTRC, tagGTRC, tagBTRC} {
		data, ok := tags[sig]
		if !ok {
			return nil, fmt.Errorf("%w: no tone curves", ErrUnsupportedProfile)
		}
		curve, err := parseCurveTag(data)
		if err != nil {
			return nil, err
		}
		trc[i] = curve
	}

	return &Profile{
		name:   "embedded RGB",
		kind:   kindMatrixRGB,
		matrix: matrix,
		inv:    inv,
		trc:    trc,
	}, nil
}

func parseGray(tags map[uint32][]byte) (*Profile, error) {
	data, ok := tags[tagKTRC]
	if !ok {
		return nil, fmt.Errorf("%w: gray profile without kTRC", ErrUnsupportedProfile)
	}
	curve, err := parseCurveTag(data)
	if err != nil {
		return nil, err
	}
	return &Profile{name: "embedded gray", kind: kindGray, grayTRC: curve}, nil
}

// parseXYZTag decodes an XYZType tag: signature, reserved, then three
// s15Fixed16 numbers.
func parseXYZTag(data []byte) ([3]float64, error) {
	be := binary.BigEndian
	if len(data) < 20 || be.Uint32(data[0:4]) != typeXYZ {
		return [3]float64{}, fmt.Errorf("%w: bad XYZ tag", ErrBadProfile)
	}
	var res [3]float64
	for i := 0; i < 3; i++ {
		raw := int32(be.Uint32(data[8+4*i : 12+4*i]))
		res[i] = float64(raw) / 65536
	}
	return res, nil
}

// parseCurveTag decodes a curveType or parametricCurveType tag.
func parseCurveTag(data []byte) (toneCurve, error) {
	be := binary.BigEndian
	if len(data) < 12 {
		return toneCurve{}, fmt.Errorf("%w: short curve tag", ErrBadProfile)
	}
	switch be.Uint32(data[0:4]) {
	case typeCurv:
		count := int(be.Uint32(data[8:12]))
		switch {
		case count == 0:
			return identityCurve, nil
		case count == 1:
			if len(data) < 14 {
				return toneCurve{}, fmt.Errorf("%w: short gamma curve", ErrBadProfile)
			}
			// single u8.8 fixed-point gamma value
			return toneCurve{kind: curveGamma, gamma: float64(be.Uint16(data[12:14])) / 256}, nil
		default:
			if len(data) < 12+2*count {
				return toneCurve{}, fmt.Errorf("%w: short curve table", ErrBadProfile)
			}
			table := make([]float64, count)
			for i := 0; i < count; i++ {
				table[i] = float64(be.Uint16(data[12+2*i:14+2*i])) / 65535
			}
			return toneCurve{kind: curveTable, table: table}, nil
		}
	case typePara:
		ptype := int(be.Uint16(data[8:10]))
		nparams := []int{1, 3, 4, 5, 7}
		if ptype < 0 || ptype > 4 {
			return toneCurve{}, fmt.Errorf("%w: parametric curve type %d", ErrUnsupportedProfile, ptype)
		}
		n := nparams[ptype]
		if len(data) < 12+4*n {
			return toneCurve{}, fmt.Errorf("%w: short parametric curve", ErrBadProfile)
		}
		params := make([]float64, n)
		for i := 0; i < n; i++ {
			params[i] = float64(int32(be.Uint32(data[12+4*i:16+4*i]))) / 65536
		}
		return toneCurve{kind: curveParam, ptype: ptype, params: params}, nil
	default:
		return toneCurve{}, fmt.Errorf("%w: curve tag type", ErrUnsupportedProfile)
	}
}
