package value

import "testing"

func TestFixnumRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 42, -42, 1073741823, -1073741824}
	for _, v := range cases {
		got := DecodeFixnum(EncodeFixnum(v))
		if got != v {
			t.Errorf("EncodeFixnum/DecodeFixnum(%d) = %d", v, got)
		}
	}
}

func TestFixnumOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range fixnum")
		}
	}()
	EncodeFixnum(FixnumMax)
}

func TestBoolTags(t *testing.T) {
	if EncodeBool(true) != True {
		t.Errorf("EncodeBool(true) = %#x, want %#x", EncodeBool(true), True)
	}
	if EncodeBool(false) != False {
		t.Errorf("EncodeBool(false) = %#x, want %#x", EncodeBool(false), False)
	}
	if !DecodeBool(True) || DecodeBool(False) {
		t.Error("DecodeBool round-trip failed")
	}
	if !IsFalse(False) || IsFalse(True) {
		t.Error("IsFalse must hold only for the false tag")
	}
}

func TestCharRoundTrip(t *testing.T) {
	for _, c := range []byte{'a', 'Z', '0', ' '} {
		got := DecodeChar(EncodeChar(c))
		if got != c {
			t.Errorf("char round trip for %q got %q", c, got)
		}
	}
}

func TestPairTagAndAddress(t *testing.T) {
	addr := uint64(0x1000)
	tagged := TagPair(addr)
	if !IsPair(tagged) {
		t.Fatal("TagPair result does not carry the pair tag")
	}
	if PairAddress(tagged) != addr {
		t.Errorf("PairAddress(%#x) = %#x, want %#x", tagged, PairAddress(tagged), addr)
	}
	if IsPair(EncodeFixnum(4)) {
		t.Error("a fixnum must not be mistaken for a pair")
	}
}

func TestFormatScalars(t *testing.T) {
	noPeek := func(uint64) uint64 { t.Fatal("peek should not be called for scalars"); return 0 }
	cases := []struct {
		w    uint64
		want string
	}{
		{EncodeFixnum(7), "7"},
		{EncodeFixnum(-3), "-3"},
		{True, "#t"},
		{False, "#f"},
		{Nil, "()"},
		{EncodeChar('x'), "#\\x"},
	}
	for _, c := range cases {
		if got := Format(c.w, noPeek); got != c.want {
			t.Errorf("Format(%#x) = %q, want %q", c.w, got, c.want)
		}
	}
}

func TestFormatPair(t *testing.T) {
	// A cons allocated at untagged heap address 1000: car lives at
	// [tagged-1] = 1000, cdr at [tagged+7] = 1008, matching
	// compileCons/compileCar/compileCdr's layout exactly.
	heap := map[uint64]uint64{
		1000: EncodeFixnum(1),
		1008: EncodeFixnum(2),
	}
	peek := func(addr uint64) uint64 { return heap[addr] }
	tagged := TagPair(1000)
	if got, want := Format(tagged, peek), "(1 . 2)"; got != want {
		t.Errorf("Format(pair) = %q, want %q", got, want)
	}
}
