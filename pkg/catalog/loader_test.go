package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "veri.json")
	if err := os.WriteFile(path, []byte(orderedFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ds, err := NewLoader().Load(context.Background(), SourceFromFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"Toyota", "BMW", "Alfa Romeo"}, ds.Brands()); diff != "" {
		t.Fatalf("brands mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_FS(t *testing.T) {
	files := fstest.MapFS{
		"data/veri.json": &fstest.MapFile{Data: []byte(`{"Fiat": {"Egea": ["1.3 Multijet"]}}`)},
	}

	ds, err := NewLoader(WithFileSystem(files)).Load(context.Background(), SourceFromFS("data/veri.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ds.HasModel("Fiat", "Egea", "1.3 Multijet") {
		t.Fatalf("expected Fiat/Egea/1.3 Multijet in %v", ds.Entries())
	}

	if _, err := NewLoader().Load(context.Background(), SourceFromFS("data/veri.json")); err == nil {
		t.Fatalf("expected error without filesystem")
	}
}

func TestLoader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/veri" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected accept header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Renault": {"<b>Clio</b>": ["1.0 TCe"]}}`))
	}))
	defer srv.Close()

	ds, err := NewLoader(WithHTTPClient(srv.Client())).Load(context.Background(), SourceFromURL(srv.URL+"/veri"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"Clio"}, ds.Series("Renault")); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}

	raw, err := NewLoader(WithHTTPClient(srv.Client()), WithKeepMarkup()).Load(context.Background(), SourceFromURL(srv.URL+"/veri"))
	if err != nil {
		t.Fatalf("load keep markup: %v", err)
	}
	if diff := cmp.Diff([]string{"<b>Clio</b>"}, raw.Series("Renault")); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLoader(WithHTTPClient(srv.Client())).Load(context.Background(), SourceFromURL(srv.URL))
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("expected status error, got %v", err)
	}

	_, err = NewLoader().Load(context.Background(), SourceFromURL(srv.URL))
	if err == nil || !strings.Contains(err.Error(), "http support disabled") {
		t.Fatalf("expected disabled http error, got %v", err)
	}
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLoader().Load(ctx, SourceFromFile("does-not-matter.json")); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("https://example.com/veri")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if src.Kind() != SourceKindURL {
		t.Fatalf("expected url source, got %s", src.Kind())
	}

	src, err = ParseSource("  ./testdata/veri.json ")
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if src.Kind() != SourceKindFile || src.Location() != "testdata/veri.json" {
		t.Fatalf("unexpected file source %s %q", src.Kind(), src.Location())
	}

	if _, err := ParseSource(" "); err == nil {
		t.Fatalf("expected error for empty location")
	}
}
