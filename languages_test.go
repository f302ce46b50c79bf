package repomap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageFromFileName(t *testing.T) {
	cases := []struct {
		name string
		want Language
	}{
		{"main.go", LangGo},
		{"script.PY", LangPython},
		{"component.tsx", LangTypeScript},
		{"index.JS", LangJavaScript},
		{"Main.java", LangJava},
		{"Program.cs", LangCSharp},
		{"lib.rs", LangRust},
		{"deploy.sh", LangBash},
		{"site.css", LangCSS},
		{"page.html", LangHTML},
	}

	for _, tc := range cases {
		got, err := languageFromFileName(tc.name)
		assert.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestLanguageFromFileName_Unsupported(t *testing.T) {
	_, err := languageFromFileName("notes.txt")
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
}
