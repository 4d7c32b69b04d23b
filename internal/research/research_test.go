package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	cases := map[string]Kind{
		"https://example.com/article": KindURL,
		"http://example.com":          KindURL,
		"/tmp/dossie.PDF":             KindPDF,
		"notes.md":                    KindText,
	}
	for in, want := range cases {
		if got := Detect(in); got != want {
			t.Fatalf("Detect(%q): got %q want %q", in, got, want)
		}
	}
}

func TestTextLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("Dyatlov Pass\n\nNove estudantes morreram em 1959.\n"), 0o644)

	m, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Title != "Dyatlov Pass" || m.Kind != KindText || m.WordCount != 7 {
		t.Fatalf("unexpected material: %+v", m)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	os.WriteFile(empty, []byte("  \n"), 0o644)
	if _, err := Load(context.Background(), empty); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := Load(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestURLLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>O Farol de Flannan</title></head><body>
<nav>menu menu menu</nav>
<article><h1>O Farol de Flannan</h1>
<p>Em dezembro de 1900, os três faroleiros da ilha Eilean Mòr desapareceram sem deixar rastros.
O diário registrava tempestades que nenhuma outra estação da costa observou.</p>
<p>As roupas de chuva de dois deles continuavam ausentes, e a mesa estava posta para o jantar.</p>
</article></body></html>`))
	}))
	defer srv.Close()

	m, err := NewURLLoader().Load(context.Background(), srv.URL+"/farol")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(m.Text, "faroleiros") {
		t.Fatalf("article text not extracted: %q", m.Text)
	}
	if m.Kind != KindURL || m.Title == "" {
		t.Fatalf("unexpected material: %+v", m)
	}

	if _, err := NewURLLoader().Load(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestExcerpt(t *testing.T) {
	m := &Material{Text: "um  dois tres\nquatro cinco", WordCount: 5}
	if got := m.Excerpt(10); got != m.Text {
		t.Fatalf("short text should be returned whole: %q", got)
	}
	if got := m.Excerpt(3); got != "um  dois tres [...]" {
		t.Fatalf("excerpt mismatch: got %q", got)
	}
	var nilMat *Material
	if nilMat.Excerpt(5) != "" {
		t.Fatal("nil material should give empty excerpt")
	}
}
