package finder

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColumnOf(t *testing.T) {
	if got, ok := ColumnOf(24, 24, 16); !ok || got != (ColumnKey{CX: 1, CZ: 1}) {
		t.Fatalf("ColumnOf(24,24)=%+v,%v", got, ok)
	}
	if got, ok := ColumnOf(-0.1, 15.9, 16); !ok || got != (ColumnKey{CX: -1, CZ: 0}) {
		t.Fatalf("ColumnOf(-0.1,15.9)=%+v,%v", got, ok)
	}
	for _, xz := range [][2]float64{{1e300, 0}, {0, -1e300}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		if got, ok := ColumnOf(xz[0], xz[1], 16); ok {
			t.Fatalf("ColumnOf(%v,%v) accepted as %+v", xz[0], xz[1], got)
		}
	}
}

func TestVec3Valid(t *testing.T) {
	if !(Vec3{X: -3e7, Y: 64, Z: 3e7}).Valid() {
		t.Fatalf("ordinary position rejected")
	}
	for _, v := range []Vec3{{X: math.NaN()}, {Y: math.Inf(-1)}, {Z: 1e300}} {
		if v.Valid() {
			t.Fatalf("%+v accepted", v)
		}
	}
}

func TestTargetSet(t *testing.T) {
	if _, err := NewTargetSet(); !errors.Is(err, ErrEmptyTargets) {
		t.Fatalf("expected ErrEmptyTargets, got %v", err)
	}
	ts, err := NewTargetSet(9, 3, 9)
	if err != nil {
		t.Fatalf("NewTargetSet: %v", err)
	}
	if ts.Len() != 2 {
		t.Fatalf("duplicates not collapsed: len=%d", ts.Len())
	}
	if !ts.Has(3) || ts.Has(4) {
		t.Fatalf("membership wrong")
	}
	if diff := cmp.Diff([]Material{3, 9}, ts.IDs()); diff != "" {
		t.Fatalf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestGeometryValidate(t *testing.T) {
	if err := (Geometry{ColumnSize: 0, Band: Band{0, 10}}).Validate(); !errors.Is(err, ErrBadColumnSize) {
		t.Fatalf("expected ErrBadColumnSize, got %v", err)
	}
	if err := (Geometry{ColumnSize: 16, Band: Band{10, 0}}).Validate(); !errors.Is(err, ErrBadBand) {
		t.Fatalf("expected ErrBadBand, got %v", err)
	}
	if err := (Geometry{ColumnSize: 16, Band: Band{-64, 64}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBandClamp(t *testing.T) {
	b := Band{MinY: -100, MaxY: 400}.Clamp(-64, 320)
	if b != (Band{MinY: -64, MaxY: 319}) {
		t.Fatalf("clamp=%+v", b)
	}
	if got := (Band{MinY: 500, MaxY: 600}).Clamp(-64, 320).Height(); got != 0 {
		t.Fatalf("disjoint band height=%d want 0", got)
	}
}

func TestSortColumns(t *testing.T) {
	keys := []ColumnKey{{1, 0}, {0, 2}, {0, -1}}
	SortColumns(keys)
	want := []ColumnKey{{0, -1}, {0, 2}, {1, 0}}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("sort mismatch (-want +got):\n%s", diff)
	}
}
