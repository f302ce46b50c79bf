package scm

import "testing"

func TestQuery(t *testing.T) {
	tests := []struct {
		name     string
		language Language
		wantErr  bool
	}{
		{name: "go", language: Go},
		{name: "python", language: Python},
		{name: "javascript", language: JavaScript},
		{name: "typescript", language: TypeScript},
		{name: "java", language: Java},
		{name: "csharp", language: CSharp},
		{name: "rust", language: Rust},
		{name: "bash", language: Bash},
		{name: "css", language: CSS},
		{name: "html", language: HTML},
		{name: "unknown", language: Language("haskell"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(tt.language)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Query(%q): expected error, got none", tt.language)
				}
				return
			}
			if err != nil {
				t.Fatalf("Query(%q): unexpected error: %v", tt.language, err)
			}
			if len(got) == 0 {
				t.Fatalf("Query(%q): expected non-empty query source", tt.language)
			}
		})
	}
}

func TestQueryCaptureNaming(t *testing.T) {
	// Every embedded query must have at least one name.definition.* capture,
	// the convention the extractor depends on. name.reference.* captures are
	// optional (definition-only queries rely on the lexical fallback).
	for lang := range fileNames {
		src, err := Query(lang)
		if err != nil {
			t.Fatalf("Query(%q): %v", lang, err)
		}
		if !containsAny(src, "@name.definition.") {
			t.Errorf("query for %q has no @name.definition.* capture", lang)
		}
	}
}

func containsAny(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
