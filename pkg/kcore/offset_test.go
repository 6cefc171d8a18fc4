package kcore

import "testing"

func TestPackUnpackOffsetRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   [8]byte
		want uint64
	}{
		{"zero", [8]byte{0, 0, 0, 0, 0, 0, 0, 0}, 0},
		{"allOnes", [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, 18446744073709551615},
		{"allOnesLowByte", [8]byte{0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 72340172838076673},
		{"sixteens", [8]byte{0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x10}, 1157442765409226768},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := UnpackOffset(tc.in[:])
			if err != nil {
				t.Fatalf("UnpackOffset(%v): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("UnpackOffset(%v) = %d, want %d", tc.in, got, tc.want)
			}
			packed := PackUint64(tc.want)
			if packed != tc.in {
				t.Fatalf("PackUint64(%d) = %v, want %v", tc.want, packed, tc.in)
			}
		})
	}
}

func TestPackOffsetSentinel(t *testing.T) {
	packed, err := PackOffset(-1)
	if err != nil {
		t.Fatalf("PackOffset(-1): %v", err)
	}
	want := [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if packed != want {
		t.Fatalf("PackOffset(-1) = %v, want %v", packed, want)
	}
}

func TestPackOffsetRejectsOtherNegatives(t *testing.T) {
	if _, err := PackOffset(-2); err == nil {
		t.Fatal("expected MismatchArgument for PackOffset(-2)")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrMismatchArgument {
		t.Fatalf("expected MismatchArgument, got %v", err)
	}
}

func TestUnpackOffsetRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 4, 7, 9} {
		if _, err := UnpackOffset(make([]byte, n)); err == nil {
			t.Fatalf("expected MismatchArgument for length %d", n)
		}
	}
}

func TestSumOffsetWraps(t *testing.T) {
	if got := SumOffset(2, -5); got != -3 {
		t.Fatalf("SumOffset(2, -5) = %d, want -3", got)
	}
}
