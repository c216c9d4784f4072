package sound

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// sine returns a tone whose amplitude goes from start to end.
func sine(rate int, d time.Duration, start, end float64) []float64 {
	n := int(float64(rate) * d.Seconds())
	out := make([]float64, n)
	for i := range out {
		amp := start + (end-start)*float64(i)/float64(n)
		out[i] = amp * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	return out
}

func TestDuration(t *testing.T) {
	a := newAnalyzer(make([]float64, 44100*3), 44100)
	if got := a.Duration(); got != 3*time.Second {
		t.Fatalf("Duration() = %s; want 3s", got)
	}
	if !a.Silent() {
		t.Fatal("Silent() = false; want true")
	}
}

func TestRMS(t *testing.T) {
	a := newAnalyzer(sine(8000, time.Second, 0.5, 0.5), 8000)
	rms := a.RMS(100 * time.Millisecond)
	if len(rms) != 10 {
		t.Fatalf("RMS() len = %d; want 10", len(rms))
	}
	want := 0.5 / math.Sqrt2
	for i, v := range rms {
		if math.Abs(v-want) > 0.01 {
			t.Fatalf("RMS()[%d] = %f; want %f", i, v, want)
		}
	}
	if a.Silent() {
		t.Fatal("Silent() = true; want false")
	}
	if got := len(a.Resample(100 * time.Millisecond)); got != 20 {
		t.Fatalf("Resample() len = %d; want 20", got)
	}
}

func TestHasFadeOut(t *testing.T) {
	steady := newAnalyzer(sine(8000, 3*time.Second, 0.5, 0.5), 8000)
	if steady.HasFadeOut() {
		t.Fatal("HasFadeOut() = true for a steady tone; want false")
	}
	fading := newAnalyzer(append(sine(8000, 2*time.Second, 0.5, 0.5), sine(8000, time.Second, 0.5, 0)...), 8000)
	if !fading.HasFadeOut() {
		t.Fatal("HasFadeOut() = false for a fading tone; want true")
	}
	short := newAnalyzer(sine(8000, 200*time.Millisecond, 0.5, 0), 8000)
	if short.HasFadeOut() {
		t.Fatal("HasFadeOut() = true for a short track; want false")
	}
}

func TestPlot(t *testing.T) {
	a := newAnalyzer(sine(8000, time.Second, 0.5, 0.1), 8000)
	for name, fn := range map[string]func(string) ([]byte, error){
		"PlotWave": a.PlotWave,
		"PlotRMS":  a.PlotRMS,
	} {
		b, err := fn("test")
		if err != nil {
			t.Fatalf("%s() err = %v; want nil", name, err)
		}
		if len(b) < 2 || b[0] != 0xFF || b[1] != 0xD8 {
			t.Fatalf("%s() didn't return a jpeg image", name)
		}
	}
}

func TestNewAnalyzerInvalid(t *testing.T) {
	if _, err := NewAnalyzer([]byte("not an mp3")); err == nil {
		t.Fatal("NewAnalyzer() err = nil; want error")
	}
}

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	ctx := context.Background()
	b, err := Load(ctx, nil, srv.URL+"/song.mp3")
	if err != nil || string(b) != "ID3" {
		t.Fatalf("Load() = %q, %v; want ID3", b, err)
	}
	if _, err := Load(ctx, nil, srv.URL+"/missing.mp3"); err == nil {
		t.Fatal("Load() err = nil; want error")
	}

	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("local"), 0644); err != nil {
		t.Fatal(err)
	}
	b, err = Load(ctx, nil, "file://"+path)
	if err != nil || string(b) != "local" {
		t.Fatalf("Load() = %q, %v; want local", b, err)
	}
}
