package vocals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/vocal"
)

func TestRun(t *testing.T) {
	var voice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		voice = r.FormValue("target_voice")
		_, _ = w.Write([]byte(`{"id":"j1","original_url":"http://b/files/j1.wav","converted_url":"http://b/c.mp3","target_voice":"Jazz_Singer","status":"completed"}`))
	}))
	defer srv.Close()

	input := filepath.Join(t.TempDir(), "take.wav")
	if err := os.WriteFile(input, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}
	job, err := Run(context.Background(), &Config{
		Config: sonicforge.Config{Backend: srv.URL},
		Input:  input,
		Voice:  "Jazz_Singer",
	})
	if err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	if voice != "Jazz_Singer" || job.ID != "j1" || job.IsDemo {
		t.Fatalf("Run() = %+v (voice %q)", job, voice)
	}
}

func TestRunFallback(t *testing.T) {
	input := filepath.Join(t.TempDir(), "take.mp3")
	if err := os.WriteFile(input, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}
	job, err := Run(context.Background(), &Config{
		Config: sonicforge.Config{Backend: "http://backend.invalid", VocalDelay: time.Millisecond},
		Input:  input,
		Voice:  "Robot_FX",
	})
	if err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	if !job.IsDemo || job.ConvertedURL != vocal.PlaceholderURL || job.TargetVoice != "Robot_FX" {
		t.Fatalf("Run() = %+v; want demo job", job)
	}
}

func TestRunInvalidVoice(t *testing.T) {
	input := filepath.Join(t.TempDir(), "take.mp3")
	if err := os.WriteFile(input, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), &Config{Input: input, Voice: "Elvis"}); err == nil {
		t.Fatal("Run() err = nil; want error")
	}
}
