package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}

	got, err = SplitRange(100, 104, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last := got[len(got)-1]; last != (BlockRange{From: 104, To: 104}) {
		t.Fatalf("unexpected tail %+v", last)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []BlockRange{{From: 5, To: 5}}) {
		t.Fatalf("ranges mismatch: %+v", got)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestBlocksBetween(t *testing.T) {
	if r, ok := blocksBetween(10, 20); !ok || r != (BlockRange{From: 10, To: 19}) {
		t.Fatalf("unexpected range %+v %v", r, ok)
	}
	if _, ok := blocksBetween(10, 10); ok {
		t.Fatalf("expected empty range")
	}
	if _, ok := blocksBetween(0, 0); ok {
		t.Fatalf("expected empty range at genesis")
	}
}
