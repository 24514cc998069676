// Package report serializes a usagemap.Map to the JSON array of
// {start, end, status} objects this tool emits in -r/--report-only mode.
package report

import (
	"encoding/json"

	"github.com/blkscrub/blkscrub/usagemap"
)

// Segment is the JSON-facing mirror of usagemap.Segment: plain field
// names and a string status, independent of the in-memory Status enum's
// representation.
type Segment struct {
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
	Status string `json:"status"`
}

// FromMap converts every segment of m into its JSON-facing form, in
// ascending start order.
func FromMap(m *usagemap.Map) []Segment {
	segs := m.Segments()
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = Segment{Start: s.Start, End: s.End, Status: s.Status.String()}
	}
	return out
}

// Marshal renders m as a JSON array, indented when pretty is set.
func Marshal(m *usagemap.Map, pretty bool) ([]byte, error) {
	segs := FromMap(m)
	if pretty {
		return json.MarshalIndent(segs, "", "  ")
	}
	return json.Marshal(segs)
}
