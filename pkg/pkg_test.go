package pkg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	if Name != "xtera" {
		t.Errorf("Expected Name to be %q, got %q", "xtera", Name)
	}
}

func TestVersion(t *testing.T) {
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version != content {
		t.Errorf("Expected Version to be %q, got %q", content, Version)
	}
}

func TestAuthor(t *testing.T) {
	if !slices.ContainsFunc(Author, func(a AuthorInfo) bool {
		return a.Name == "ardnew" && a.Email == "andrew@ardnew.com"
	}) {
		t.Errorf("Expected Author to contain ardnew, got %v", Author)
	}

	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestErrorChain(t *testing.T) {
	first := errors.New("a.xt:1:3: unexpected '}'")
	second := errors.New("b.xt:2:1: unterminated string")

	err := ErrCheckFailed.Wrap(first, second)

	if got, want := err.Error(), "check failed: a.xt:1:3: unexpected '}': b.xt:2:1: unterminated string"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	for _, target := range []error{first, second} {
		if !errors.Is(err, target) {
			t.Errorf("errors.Is(err, %v) = false", target)
		}
	}

	if len(ErrCheckFailed) != 1 {
		t.Errorf("Wrap modified the sentinel: %v", ErrCheckFailed)
	}
}

func TestMakeError(t *testing.T) {
	if MakeError() != nil || MakeError(nil, nil) != nil {
		t.Error("MakeError without errors should be nil")
	}

	wrapped := MakeError(ErrInvalidFormat.Wrapf("%q", "toml"))
	if got := wrapped.Error(); got != `invalid format: "toml"` {
		t.Errorf("Error() = %q", got)
	}

	chain := UnwrapErrors(errors.Join(io.EOF, io.ErrUnexpectedEOF))
	if len(chain) != 3 || chain[0] != io.EOF || chain[1] != io.ErrUnexpectedEOF {
		t.Errorf("UnwrapErrors = %v", chain)
	}
}

func TestUserDir(t *testing.T) {
	failing := func() (string, error) { return "", errors.New("no dir") }

	tests := []struct {
		name string
		env  string
		base func() (string, error)
		want string
	}{
		{
			name: "environment",
			env:  "/srv/xtera/",
			base: failing,
			want: "/srv/xtera",
		},
		{
			name: "base",
			base: func() (string, error) { return "/home/u/.config", nil },
			want: filepath.Join("/home/u/.config", Prefix()),
		},
		{
			name: "blank environment",
			env:  "  ",
			base: func() (string, error) { return "/var/cache", nil },
			want: filepath.Join("/var/cache", Prefix()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XTERA_TEST_DIR", tt.env)

			if got := userDir("XTERA_TEST_DIR", tt.base, ".config"); got != tt.want {
				t.Errorf("userDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserDirHomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XTERA_TEST_DIR", "")

	got := userDir("XTERA_TEST_DIR", func() (string, error) {
		return "", errors.New("no dir")
	}, ".cache")

	if want := filepath.Join(home, ".cache", Prefix()); got != want {
		t.Errorf("userDir() = %q, want %q", got, want)
	}
}

func TestPrefix(t *testing.T) {
	p := Prefix()
	if p == "" || strings.HasPrefix(p, ".") {
		t.Errorf("Prefix() = %q", p)
	}
}
