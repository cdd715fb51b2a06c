package feature

import "testing"

func TestSetHasDefaultsToMVP(t *testing.T) {
	s := MVP
	if s.Has(SIMD) {
		t.Fatal("MVP set should not have SIMD enabled")
	}
}

func TestSetWith(t *testing.T) {
	s := MVP.With(SIMD)
	if !s.Has(SIMD) {
		t.Fatal("expected SIMD to be enabled after With")
	}
	if s.Has(Threads) {
		t.Fatal("With must not enable unrelated flags")
	}
}

func TestNewSet(t *testing.T) {
	s := NewSet(SIMD, Threads)
	if !s.Has(SIMD) || !s.Has(Threads) {
		t.Fatal("expected both flags enabled")
	}
	if s.Has(GC) {
		t.Fatal("unexpected flag enabled")
	}
}

func TestByName(t *testing.T) {
	f, ok := ByName("simd")
	if !ok || f != SIMD {
		t.Fatalf("ByName(simd) = %v, %v", f, ok)
	}
	if _, ok := ByName("not-a-feature"); ok {
		t.Fatal("expected ByName to fail on unknown name")
	}
}

func TestAllEnabled(t *testing.T) {
	s := AllEnabled()
	for _, f := range All() {
		if !s.Has(f) {
			t.Fatalf("expected %v to be enabled", f)
		}
	}
}

func TestFlagString(t *testing.T) {
	if SIMD.String() != "simd" {
		t.Fatalf("unexpected string: %s", SIMD.String())
	}
}
