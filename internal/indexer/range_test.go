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
		{From: 100, To: 102},
		{From: 103, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeWindowSizeStep(t *testing.T) {
	got, err := SplitRange(0, 4001, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 0, To: 2000},
		{From: 2001, To: 4001},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeCoversFinalBlock(t *testing.T) {
	got, err := SplitRange(0, 2001, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 0, To: 2000},
		{From: 2001, To: 2001},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeContiguous(t *testing.T) {
	got, err := SplitRange(10000835, 10100000, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].From != 10000835 || got[len(got)-1].To != 10100000 {
		t.Fatalf("range bounds not covered: %+v .. %+v", got[0], got[len(got)-1])
	}
	for i := 1; i < len(got); i++ {
		if got[i].From != got[i-1].To+1 {
			t.Fatalf("gap or overlap between %+v and %+v", got[i-1], got[i])
		}
		if got[i].To-got[i].From > 2000 {
			t.Fatalf("window too large: %+v", got[i])
		}
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero window size")
	}
}
