package message

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLabelSetDedupsByName(t *testing.T) {
	s := NewLabelSet()
	first := &Label{UserID: "u1", Name: "INBOX"}
	s.Add(first)
	s.Add(&Label{UserID: "u1", Name: "INBOX"})
	s.Add(&Label{UserID: "u1", Name: "Work"})

	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if got := s.Get("INBOX"); got != first {
		t.Errorf("Get(INBOX) = %p, want the first inserted label %p", got, first)
	}
	if !s.Has("Work") || s.Has("Spam") {
		t.Errorf("Has() = (%v, %v), want (true, false)", s.Has("Work"), s.Has("Spam"))
	}

	var names []string
	for _, l := range s.All() {
		names = append(names, l.Name)
	}
	if diff := cmp.Diff([]string{"INBOX", "Work"}, names); diff != "" {
		t.Errorf("iteration order mismatch (-want +got):\n%s", diff)
	}
}

func TestListMaxHistoryID(t *testing.T) {
	cases := []struct {
		name string
		ids  []uint64
		want uint64
	}{
		{"empty list floors at one", nil, 1},
		{"single", []uint64{5}, 5},
		{"max wins", []uint64{5, 42, 7}, 42},
		{"zero history ids floor at one", []uint64{0, 0}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewList()
			for _, id := range tc.ids {
				l.Add(&Message{HistoryID: id})
			}
			if got := l.MaxHistoryID(); got != tc.want {
				t.Errorf("MaxHistoryID() = %d, want %d", got, tc.want)
			}
		})
	}
}
