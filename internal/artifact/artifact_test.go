package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProviderSourceMapsDisplayNames(t *testing.T) {
	path := writeFile(t, "providers.json", `[
		{"provider": "DeepSeek", "status": "active", "verified": true},
		{"provider": "OpenAI", "status": "active", "verified": false},
		{"provider": "Moonshot", "status": "active", "verified": true, "quotaError": true},
		{"provider": "Zhipu", "status": "disabled", "verified": true}
	]`)
	src := NewFileProviderSource(path)

	verified, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(verified) != 1 || !verified["deepseek"] {
		t.Fatalf("verified = %v, want only deepseek", verified)
	}
}

func TestProviderSourceMissingFile(t *testing.T) {
	src := NewFileProviderSource(filepath.Join(t.TempDir(), "absent.json"))
	verified, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(verified) != 0 {
		t.Fatalf("verified = %v, want empty set", verified)
	}
}

func TestProviderSourceMalformedFile(t *testing.T) {
	src := NewFileProviderSource(writeFile(t, "providers.json", "{not json"))
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestModelSourceLoadsArtifact(t *testing.T) {
	path := writeFile(t, "ltr.json", `{
		"version": "2026-08-20",
		"bias": 0.1,
		"weights": {"fine": 0.8, "langMatch": 0.2}
	}`)
	src := NewFileModelSource(path)

	model, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if model == nil || model.Version != "2026-08-20" || model.Weights["fine"] != 0.8 {
		t.Fatalf("model = %+v", model)
	}
}

func TestModelSourceMissingArtifact(t *testing.T) {
	src := NewFileModelSource(filepath.Join(t.TempDir(), "absent.json"))
	model, err := src.Load(context.Background())
	if err != nil || model != nil {
		t.Fatalf("model, err = %v, %v; want nil, nil", model, err)
	}
}

func TestModelSourceEmptyWeights(t *testing.T) {
	src := NewFileModelSource(writeFile(t, "ltr.json", `{"version": "x", "weights": {}}`))
	model, err := src.Load(context.Background())
	if err != nil || model != nil {
		t.Fatalf("model, err = %v, %v; want nil, nil for a weightless artifact", model, err)
	}
}
