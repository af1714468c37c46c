package sourcemap

import (
	"fmt"
	"strings"
)

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqBaseShift    = 5
	vlqBaseMask     = (1 << vlqBaseShift) - 1
	vlqContinuation = 1 << vlqBaseShift
)

var base64Values = func() [128]int8 {
	var v [128]int8
	for i := range v {
		v[i] = -1
	}
	for i := 0; i < len(base64Digits); i++ {
		v[base64Digits[i]] = int8(i)
	}
	return v
}()

// segment is one decoded mapping entry. genLine is implicit in the encoded
// form and only tracked while segments are being rearranged.
type segment struct {
	genLine   int
	genCol    int
	hasSource bool
	sourceIdx int
	srcLine   int
	srcCol    int
	hasName   bool
	nameIdx   int
}

func encodeVLQ(b *strings.Builder, value int) {
	u := value << 1
	if value < 0 {
		u = (-value << 1) | 1
	}
	for {
		digit := u & vlqBaseMask
		u >>= vlqBaseShift
		if u > 0 {
			digit |= vlqContinuation
		}
		b.WriteByte(base64Digits[digit])
		if u == 0 {
			return
		}
	}
}

func decodeVLQ(s string, i int) (value, next int, err error) {
	shiftBy := 0
	u := 0
	for {
		if i >= len(s) {
			return 0, 0, fmt.Errorf("sourcemap: truncated VLQ sequence")
		}
		c := s[i]
		if c >= 128 || base64Values[c] < 0 {
			return 0, 0, fmt.Errorf("sourcemap: invalid base64 digit %q in mappings", c)
		}
		digit := int(base64Values[c])
		i++
		u |= (digit & vlqBaseMask) << shiftBy
		if digit&vlqContinuation == 0 {
			break
		}
		shiftBy += vlqBaseShift
	}
	value = u >> 1
	if u&1 == 1 {
		value = -value
	}
	return value, i, nil
}

// decodeMappings expands the delta-encoded mappings string into absolute
// per-line segments.
func decodeMappings(mappings string) ([][]segment, error) {
	lines := strings.Split(mappings, ";")
	out := make([][]segment, len(lines))

	sourceIdx, srcLine, srcCol, nameIdx := 0, 0, 0, 0
	for li, line := range lines {
		genCol := 0
		if line == "" {
			continue
		}
		for _, field := range strings.Split(line, ",") {
			values := make([]int, 0, 5)
			for i := 0; i < len(field); {
				v, next, err := decodeVLQ(field, i)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
				i = next
			}

			seg := segment{genLine: li}
			switch len(values) {
			case 1:
			case 4, 5:
				seg.hasSource = true
				sourceIdx += values[1]
				srcLine += values[2]
				srcCol += values[3]
				seg.sourceIdx, seg.srcLine, seg.srcCol = sourceIdx, srcLine, srcCol
				if len(values) == 5 {
					seg.hasName = true
					nameIdx += values[4]
					seg.nameIdx = nameIdx
				}
			default:
				return nil, fmt.Errorf("sourcemap: segment with %d fields in mappings", len(values))
			}
			genCol += values[0]
			seg.genCol = genCol
			out[li] = append(out[li], seg)
		}
	}
	return out, nil
}

// encodeMappings is the inverse of decodeMappings.
func encodeMappings(lines [][]segment) string {
	var b strings.Builder

	sourceIdx, srcLine, srcCol, nameIdx := 0, 0, 0, 0
	for li, segs := range lines {
		if li > 0 {
			b.WriteByte(';')
		}
		genCol := 0
		for si, seg := range segs {
			if si > 0 {
				b.WriteByte(',')
			}
			encodeVLQ(&b, seg.genCol-genCol)
			genCol = seg.genCol
			if !seg.hasSource {
				continue
			}
			encodeVLQ(&b, seg.sourceIdx-sourceIdx)
			encodeVLQ(&b, seg.srcLine-srcLine)
			encodeVLQ(&b, seg.srcCol-srcCol)
			sourceIdx, srcLine, srcCol = seg.sourceIdx, seg.srcLine, seg.srcCol
			if seg.hasName {
				encodeVLQ(&b, seg.nameIdx-nameIdx)
				nameIdx = seg.nameIdx
			}
		}
	}
	return b.String()
}
