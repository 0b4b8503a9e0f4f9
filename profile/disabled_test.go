//go:build !pprof

package profile

import "testing"

func TestStartWithoutBuildTag(t *testing.T) {
	if m := Modes(); len(m) != 0 {
		t.Errorf("Modes() = %v, want none without the %s tag", m, Tag)
	}

	p := New(WithMode("cpu"), WithDir(t.TempDir())).Start()
	if _, ok := p.(ignore); !ok {
		t.Fatalf("Start = %T, want no-op without the %s tag", p, Tag)
	}

	p.Stop()
}
