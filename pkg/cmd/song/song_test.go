package song

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/igolaizola/sonicforge"
)

func TestRun(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate-music":
			_, _ = w.Write([]byte(`{"id":"s1","url":"` + srv.URL + `/s1.mp3","status":"completed","duration":30}`))
		case "/s1.mp3":
			_, _ = w.Write([]byte("not really an mp3"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "twinkle.txt")
	if err := os.WriteFile(input, []byte("Little star"), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out.mp3")
	err := Run(context.Background(), &Config{
		Config: sonicforge.Config{Backend: srv.URL},
		Input:  input,
		Output: output,
	})
	if err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	b, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "not really an mp3" {
		t.Fatalf("output = %q", b)
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	if err := Run(ctx, &Config{}); err == nil {
		t.Fatal("Run() without input err = nil; want error")
	}
	if err := Run(ctx, &Config{Input: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("Run() with missing input err = nil; want error")
	}
}
