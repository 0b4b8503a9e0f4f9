package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/xtera/lang"
)

// initContext parses an empty command line for a small CLI and returns a
// context carrying it, as Run would.
func initContext(t *testing.T, confPath string) context.Context {
	t.Helper()

	var cli struct {
		Level  string `default:"warn"`
		Pretty bool   `default:"true"   negatable:""`
		Empty  string
		Write  bool

		Render Render `cmd:"" default:"withargs"`
		Init   Init   `cmd:""`
	}

	parser, err := kong.New(&cli, kong.Vars{
		ConfigIdentifier:   confPath,
		MaxDepthIdentifier: strconv.Itoa(lang.DefaultMaxDepth),
	})
	if err != nil {
		t.Fatal(err)
	}

	ktx, err := parser.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	return WithContext(t.Context(), ktx)
}

func TestInitRun(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		exists  bool
		wantErr error
	}{
		{name: "create new config"},
		{name: "overwrite existing with force", force: true, exists: true},
		{name: "fail without force", exists: true, wantErr: ErrFileExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confPath := filepath.Join(t.TempDir(), "config.yaml")

			if tt.exists {
				writeFile(t, filepath.Dir(confPath), "config.yaml", "existing: true\n")
			}

			err := (&Init{Force: tt.force}).Run(initContext(t, confPath))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			if tt.wantErr != nil {
				if !errors.Is(err, ErrWriteConfig) {
					t.Errorf("error %v does not match ErrWriteConfig", err)
				}

				return
			}

			data, err := os.ReadFile(confPath)
			if err != nil {
				t.Fatal(err)
			}

			var doc map[string]any
			if err := yaml.Unmarshal(data, &doc); err != nil {
				t.Fatalf("config is not YAML: %v\n%s", err, data)
			}

			if doc["level"] != "warn" || doc["pretty"] != true {
				t.Errorf("top-level flags = %v", doc)
			}

			for _, key := range []string{"empty", "write", "help", "existing"} {
				if _, ok := doc[key]; ok {
					t.Errorf("config contains %q:\n%s", key, data)
				}
			}

			render, _ := doc["render"].(map[string]any)
			if got := fmt.Sprint(render["max-depth"]); got != strconv.Itoa(lang.DefaultMaxDepth) {
				t.Errorf("render.max-depth = %v\n%s", got, data)
			}
		})
	}
}

func TestConfigValue(t *testing.T) {
	type named string

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "<nil>"},
		{"empty string", "", "<nil>"},
		{"string", "x", "x"},
		{"named string", named("debug"), "debug"},
		{"bool", false, "false"},
		{"int", 3, "3"},
		{"empty slice", []string{}, "<nil>"},
		{"slice", []string{"a", "b"}, "[a b]"},
		{"map", map[string]string{"b": "2", "a": "1"}, "[{a 1} {b 2}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fmt.Sprint(configValue(tt.in)); got != tt.want {
				t.Errorf("configValue(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
