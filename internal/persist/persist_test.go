package persist

import (
	"math"
	"net/url"
	"testing"
)

func TestOrdered(t *testing.T) {
	cases := []struct {
		u uint64
		s int64
	}{
		{0, math.MinInt64},
		{math.MaxUint64, math.MaxInt64},
		{math.MaxInt64 + 1, 0},
	}
	for _, tc := range cases {
		s := orderedToSigned(tc.u)
		if s != tc.s {
			t.Errorf("orderedToSigned(%x) = %x, want %x", tc.u, s, tc.s)
		}
		u := orderedToUnsigned(tc.s)
		if u != tc.u {
			t.Errorf("orderedToUnsigned(%x) = %x, want %x", tc.s, u, tc.u)
		}
	}
}

func TestDSNFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/tmp/db.sqlite", "file:///tmp/db.sqlite?k=v"},
		{"file:db.sqlite", "file:db.sqlite?k=v"},
	}
	for _, tc := range cases {
		got, err := dsnFromPath(tc.path, url.Values{"k": {"v"}})
		if err != nil {
			t.Errorf("dsnFromPath(%q) error = %v, want nil", tc.path, err)
			continue
		}
		if got != tc.want {
			t.Errorf("dsnFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
