package checksum

import "testing"

func TestSumKnownValue(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestShortIsPrefixStableAndSeparated(t *testing.T) {
	a := Short(12, "ab", "c")
	b := Short(12, "a", "bc")
	if len(a) != 12 {
		t.Fatalf("len = %d", len(a))
	}
	if a == b {
		t.Error("length prefixing should separate part boundaries")
	}
	if Short(12, "ab", "c") != a {
		t.Error("Short must be deterministic")
	}
}
