package utils

import "testing"

func TestAlignTo(t *testing.T) {
	cases := []struct {
		val, align, want uint64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{1000, 1, 1000},
	}
	for _, c := range cases {
		if got := AlignTo(c.val, c.align); got != c.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", c.val, c.align, got, c.want)
		}
	}
}

func TestBitCeil(t *testing.T) {
	cases := []struct{ val, want uint64 }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {16, 16}, {17, 32},
	}
	for _, c := range cases {
		if got := BitCeil(c.val); got != c.want {
			t.Errorf("BitCeil(%d) = %d, want %d", c.val, got, c.want)
		}
	}
}

func TestSignExtend(t *testing.T) {
	if got := SignExtend(0xFFF, 12); got != -1 {
		t.Errorf("SignExtend(0xFFF, 12) = %d, want -1", got)
	}
	if got := SignExtend(0x7FF, 12); got != 0x7FF {
		t.Errorf("SignExtend(0x7FF, 12) = %d, want 0x7FF", got)
	}
}

func TestRemoveIf(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	out := RemoveIf(in, func(v int) bool { return v%2 == 0 })
	want := []int{1, 3, 5}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}
