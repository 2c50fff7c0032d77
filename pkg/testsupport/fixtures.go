package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/rules"
)

// LoadRequest reads a YAML request fixture. Missing fields keep the values
// from model.Defaults.
func LoadRequest(t *testing.T, path string) model.ContactRequest {
	t.Helper()

	req, err := LoadRequestFromPath(path)
	if err != nil {
		t.Fatalf("load request: %v", err)
	}
	return req
}

// LoadRequestFromPath is LoadRequest without the testing dependency.
func LoadRequestFromPath(path string) (model.ContactRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ContactRequest{}, fmt.Errorf("read request fixture: %w", err)
	}
	req := model.Defaults()
	if err := yaml.Unmarshal(data, &req); err != nil {
		return model.ContactRequest{}, fmt.Errorf("decode request fixture: %w", err)
	}
	return req, nil
}

// MustVariant returns a variant from the embedded rule table.
func MustVariant(t *testing.T, name string) rules.Variant {
	t.Helper()

	table, err := rules.Default()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	variant, ok := table.Variant(name)
	if !ok {
		t.Fatalf("variant %q not defined", name)
	}
	return variant
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
