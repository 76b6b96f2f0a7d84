package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// TestInitRun tests the Init.Run command.
func TestInitRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		force   bool
		setup   func(t *testing.T, path string)
		wantErr error
	}{
		{
			name: "create_new_config",
		},
		{
			name:  "overwrite_existing_with_force",
			force: true,
			setup: func(t *testing.T, path string) {
				if err := os.WriteFile(path, []byte("existing content"), 0o644); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "fail_without_force",
			setup: func(t *testing.T, path string) {
				if err := os.WriteFile(path, []byte("existing content"), 0o644); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: ErrFileExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			confPath := filepath.Join(t.TempDir(), "config.yaml")

			if tt.setup != nil {
				tt.setup(t, confPath)
			}

			var cli struct {
				Pragma []string `name:"pragma"`
				Depth  int      `default:"100" name:"max-depth"`
			}

			parser, err := kong.New(&cli, kong.Vars{
				ConfigIdentifier: confPath,
			})
			if err != nil {
				t.Fatal(err)
			}

			kctx, err := parser.Parse([]string{"--pragma=FILTERS"})
			if err != nil {
				t.Fatal(err)
			}

			ctx := WithContext(context.Background(), kctx)

			err = (&Init{Force: tt.force}).Run(ctx)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Init.Run() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Init.Run() error = %v", err)
			}

			content, err := os.ReadFile(confPath)
			if err != nil {
				t.Fatal(err)
			}

			var got map[string]any
			if err := yaml.Unmarshal(content, &got); err != nil {
				t.Fatalf("generated config is not valid YAML: %v", err)
			}

			if fmt.Sprint(got["max-depth"]) != "100" {
				t.Errorf("max-depth = %#v, want 100", got["max-depth"])
			}

			if !reflect.DeepEqual(got["pragma"], []any{"FILTERS"}) {
				t.Errorf("pragma = %#v, want [FILTERS]", got["pragma"])
			}
		})
	}
}

// TestInitFlagValues tests that unset and ignored flags are omitted.
func TestInitFlagValues(t *testing.T) {
	t.Parallel()

	var cli struct {
		Verbose bool     `name:"verbose"`
		Output  string   `name:"output"`
		Empty   string   `name:"empty"`
		Count   int      `name:"count"`
		Dirs    []string `name:"dirs"`
		Secret  string   `hidden:""      name:"secret"`
		Mode    string   `name:"pprof-mode"`
	}

	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatal(err)
	}

	kctx, err := parser.Parse([]string{
		"--verbose", "--output=test.txt", "--count=5",
		"--secret=x", "--pprof-mode=cpu",
	})
	if err != nil {
		t.Fatal(err)
	}

	var keys []string
	for _, item := range (&Init{}).flagValues(kctx) {
		keys = append(keys, item.Key.(string))
	}

	want := []string{"verbose", "output", "count"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("flagValues() keys = %v, want %v", keys, want)
	}
}

// TestFlagValue tests the YAML value produced for each flag type.
func TestFlagValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool_false", false, false},
		{"int", 3, 3},
		{"float", 1.5, 1.5},
		{"string", "x", "x"},
		{"empty_string", "", nil},
		{"strings", []string{"a"}, []string{"a"}},
		{"empty_strings", []string{}, nil},
		{"empty_ints", []int{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := flagValue(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("flagValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
