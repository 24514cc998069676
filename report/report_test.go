package report

import (
	"encoding/json"
	"testing"

	"github.com/blkscrub/blkscrub/usagemap"
)

func TestMarshalRoundTrip(t *testing.T) {
	m := usagemap.New(20)
	m.Update(2, 9, usagemap.Used)

	buf, err := Marshal(m, false)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var segs []Segment
	if err := json.Unmarshal(buf, &segs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	want := []Segment{
		{Start: 0, End: 2, Status: "Free"},
		{Start: 2, End: 11, Status: "Used"},
		{Start: 11, End: 20, Status: "Free"},
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segs[i], want[i])
		}
	}
}

func TestMarshalPretty(t *testing.T) {
	m := usagemap.New(5)
	buf, err := Marshal(m, true)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(buf) == 0 {
		t.Fatal("empty pretty output")
	}
}
