package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode"
)

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte("data"), ".xlsx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".pdf", ".docx", ".txt", ".md", ".PDF", ".Md"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".exe", ".html", ""} {
		if Supported(ext) {
			t.Errorf("Supported(%q) = true, want false", ext)
		}
	}
}

func TestExtractTxt(t *testing.T) {
	got, err := Extract([]byte("  A carga horária total é de 1.200 horas.\t\r\n"), ".txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "A carga horária total é de 1.200 horas."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractMarkdownKeepsLineBreaks(t *testing.T) {
	got, err := Extract([]byte("# Ementa\n\nDisciplina de multimeios.\n"), ".md")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "\n\n") {
		t.Errorf("paragraph break lost: %q", got)
	}
}

// buildDOCX assembles a minimal DOCX container with the given paragraphs.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte(sb.String())); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := buildDOCX(t, "Primeiro parágrafo.", "Segundo parágrafo.")

	got, err := Extract(data, ".docx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Primeiro parágrafo.\nSegundo parágrafo."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractDOCXNotAZip(t *testing.T) {
	if _, err := Extract([]byte("definitely not a zip"), ".docx"); err == nil {
		t.Fatal("expected error for corrupt docx")
	}
}

func TestExtractPDFCorrupt(t *testing.T) {
	if _, err := Extract([]byte("%PDF-1.4 garbage"), ".pdf"); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  hello  ", "hello"},
		{"removes control chars", "a\x00b\x1fc", "a b c"},
		{"keeps newlines", "a\nb", "a\nb"},
		{"tab becomes space", "a\tb", "a b"},
		{"nfc composition", "é", "é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Extractor output must never contain control characters (other than the
// structural newline) and never carry surrounding whitespace.
func TestNormalizePropertyNoControlChars(t *testing.T) {
	inputs := []string{
		"\x07bell\x08 and \x0cfeed\x1b",
		"́ combining \r\n mixed \t ends\n",
		"plain text stays plain",
	}
	for _, in := range inputs {
		out := Normalize(in)
		for _, r := range out {
			if r != '\n' && unicode.IsControl(r) {
				t.Errorf("control rune %U leaked through Normalize(%q)", r, in)
			}
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("output not trimmed: %q", out)
		}
	}
}
