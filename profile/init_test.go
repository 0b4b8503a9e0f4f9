package profile

import "testing"

func TestNew(t *testing.T) {
	p := New(
		WithMode("cpu"),
		WithDir("/tmp/profiles"),
		nil,
		WithQuiet(true),
	)

	want := Profiler{Mode: "cpu", Dir: "/tmp/profiles", Quiet: true}
	if p != want {
		t.Errorf("New() = %+v, want %+v", p, want)
	}
}

func TestStartWithoutMode(t *testing.T) {
	p := New(WithDir(t.TempDir())).Start()
	if _, ok := p.(ignore); !ok {
		t.Fatalf("Start without mode = %T, want no-op", p)
	}

	p.Stop()
}

func TestStartUnknownMode(t *testing.T) {
	p := Profiler{Mode: "bogus", Dir: t.TempDir()}.Start()
	if _, ok := p.(ignore); !ok {
		t.Fatalf("Start(%q) = %T, want no-op", "bogus", p)
	}

	p.Stop()
}
