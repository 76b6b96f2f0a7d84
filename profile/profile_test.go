package profile

import (
	"slices"
	"testing"
)

func TestProfiler_StartEmptyMode(t *testing.T) {
	s := Profiler{}.Start()
	if _, ok := s.(ignore); !ok {
		t.Errorf("Start() with no mode = %T, want no-op", s)
	}

	s.Stop()
}

func TestProfiler_UnknownMode(t *testing.T) {
	if slices.Contains(Modes(), "bogus") {
		t.Fatal("Modes() contains bogus mode")
	}

	s := Profiler{Mode: "bogus", Path: t.TempDir()}.Start()
	if _, ok := s.(ignore); !ok {
		t.Errorf("Start() with unknown mode = %T, want no-op", s)
	}
}

func TestModes_Sorted(t *testing.T) {
	if m := Modes(); !slices.IsSorted(m) {
		t.Errorf("Modes() = %v, not sorted", m)
	}
}
