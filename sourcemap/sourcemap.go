// Package sourcemap implements the subset of the source map v3 format needed
// to keep debug metadata consistent while generated files are rewritten.
//
// A map is decoded into per-line segment lists, shifted through a list of text
// edits and encoded back, so positions in the rewritten text still resolve to
// the original sources.
package sourcemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Version is the only source map revision this package understands.
const Version = 3

var ErrUnsupportedVersion = errors.New("sourcemap: unsupported version")

// SourceMap mirrors the JSON shape of a source map v3 document.
type SourceMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names,omitempty"`
	Mappings       string    `json:"mappings"`
}

// Parse decodes a source map document and verifies its version and mappings
// are usable.
func Parse(data []byte) (*SourceMap, error) {
	var m SourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("sourcemap: decoding document: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if _, err := decodeMappings(m.Mappings); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal serialises the map back to its JSON document form.
func (m *SourceMap) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Pos is a zero-based line and column in some text.
type Pos struct {
	Line int
	Col  int
}

// Before reports whether p comes strictly before q in document order.
func (p Pos) Before(q Pos) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Col < q.Col)
}

// Edit replaces the generated-text range [Start, End) with NewText.
type Edit struct {
	Start   Pos
	End     Pos
	NewText string
}

// end returns the position just past NewText when it is inserted at start.
func (e Edit) end(start Pos) Pos {
	n := strings.Count(e.NewText, "\n")
	if n == 0 {
		return Pos{Line: start.Line, Col: start.Col + len(e.NewText)}
	}
	last := e.NewText[strings.LastIndexByte(e.NewText, '\n')+1:]
	return Pos{Line: start.Line + n, Col: len(last)}
}

type span struct {
	oldStart Pos
	oldEnd   Pos
	newStart Pos
	newEnd   Pos
}

// Remap rewrites the generated positions of every mapping segment through the
// supplied edits. Edits must be given in document order and must not overlap.
// Segments that point into the interior of a replaced range no longer have a
// counterpart in the rewritten text and are dropped; a segment exactly at the
// start of a replaced range survives and keeps pointing at the replacement.
func (m *SourceMap) Remap(edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}

	spans := make([]span, 0, len(edits))
	var prev *span
	for i, e := range edits {
		if e.End.Before(e.Start) {
			return fmt.Errorf("sourcemap: edit %d ends before it starts", i)
		}
		if prev != nil && e.Start.Before(prev.oldEnd) {
			return fmt.Errorf("sourcemap: edit %d overlaps its predecessor", i)
		}
		s := span{oldStart: e.Start, oldEnd: e.End}
		s.newStart = shift(e.Start, prev)
		s.newEnd = e.end(s.newStart)
		spans = append(spans, s)
		prev = &spans[len(spans)-1]
	}

	lines, err := decodeMappings(m.Mappings)
	if err != nil {
		return err
	}

	var moved []segment
	for line, segs := range lines {
		for _, seg := range segs {
			pos, ok := translate(Pos{Line: line, Col: seg.genCol}, spans)
			if !ok {
				continue
			}
			seg.genLine = pos.Line
			seg.genCol = pos.Col
			moved = append(moved, seg)
		}
	}

	lineCount := 0
	for _, seg := range moved {
		if seg.genLine+1 > lineCount {
			lineCount = seg.genLine + 1
		}
	}
	if n := len(lines) + lineDelta(spans); n > lineCount {
		lineCount = n
	}

	out := make([][]segment, lineCount)
	for _, seg := range moved {
		out[seg.genLine] = append(out[seg.genLine], seg)
	}
	for _, segs := range out {
		sort.SliceStable(segs, func(i, j int) bool { return segs[i].genCol < segs[j].genCol })
	}

	m.Mappings = encodeMappings(out)
	return nil
}

// shift maps an untouched position through the deltas introduced by the last
// edit that ended at or before it.
func shift(p Pos, last *span) Pos {
	if last == nil || p.Before(last.oldEnd) {
		return p
	}
	if p.Line == last.oldEnd.Line {
		return Pos{Line: last.newEnd.Line, Col: last.newEnd.Col + (p.Col - last.oldEnd.Col)}
	}
	return Pos{Line: p.Line + (last.newEnd.Line - last.oldEnd.Line), Col: p.Col}
}

// translate maps p from pre-edit to post-edit coordinates. The second result
// is false when p fell strictly inside a replaced range.
func translate(p Pos, spans []span) (Pos, bool) {
	var last *span
	for i := range spans {
		s := &spans[i]
		if p.Before(s.oldStart) {
			break
		}
		if p == s.oldStart {
			return s.newStart, true
		}
		if p.Before(s.oldEnd) {
			return Pos{}, false
		}
		last = s
	}
	return shift(p, last), true
}

func lineDelta(spans []span) int {
	d := 0
	for _, s := range spans {
		d += (s.newEnd.Line - s.newStart.Line) - (s.oldEnd.Line - s.oldStart.Line)
	}
	return d
}
