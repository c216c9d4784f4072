package vocal

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/igolaizola/sonicforge/pkg/backend"
)

type fakeService struct {
	url   string
	err   error
	calls int
	name  string
	data  string
	voice string
}

func (f *fakeService) URL() string { return f.url }

func (f *fakeService) ConvertVocals(ctx context.Context, name string, r io.Reader, voice string) (*backend.VocalResponse, error) {
	f.calls++
	b, _ := io.ReadAll(r)
	f.name = name
	f.data = string(b)
	f.voice = voice
	if f.err != nil {
		return nil, f.err
	}
	return &backend.VocalResponse{
		ID:           "job1",
		OriginalURL:  "https://host/files/" + name,
		ConvertedURL: "https://host/files/out.mp3",
		TargetVoice:  voice,
		Status:       "completed",
	}, nil
}

var refused = &backend.TransportError{
	Method: "POST",
	Err:    &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
}

func TestConvert(t *testing.T) {
	svc := &fakeService{url: "https://api.example.com"}
	o := NewOrchestrator(&Config{Service: svc})
	f := NewFile("take1.wav", []byte("RIFF"), "/uploads/take1.wav")
	got, err := o.Convert(context.Background(), f, "Jazz_Singer")
	if err != nil {
		t.Fatalf("Convert() err = %v; want nil", err)
	}
	if got.IsDemo || got.TargetVoice != "Jazz_Singer" || got.Status != Completed || got.ID != "job1" {
		t.Fatalf("Convert() = %+v; want real job", got)
	}
	if svc.name != "take1.wav" || svc.data != "RIFF" || svc.voice != "Jazz_Singer" {
		t.Fatalf("request = %s %q %s; want take1.wav RIFF Jazz_Singer", svc.name, svc.data, svc.voice)
	}
}

func TestConvertFallback(t *testing.T) {
	errs := []error{
		refused,
		&backend.StatusError{Code: 500, Message: "boom"},
		&backend.StatusError{Code: 200, Message: "unexpected response from server"},
	}
	for _, url := range []string{"http://localhost:8000", "https://api.example.com"} {
		for _, e := range errs {
			for _, voice := range Voices {
				svc := &fakeService{url: url, err: e}
				o := NewOrchestrator(&Config{Service: svc, FallbackDelay: time.Millisecond})
				f := NewFile("take1.mp3", []byte("ID3"), "blob:local/take1")
				got, err := o.Convert(context.Background(), f, voice)
				if err != nil {
					t.Fatalf("Convert(%s, %v) err = %v; want nil", url, e, err)
				}
				if !got.IsDemo || got.Status != Completed || got.TargetVoice != voice {
					t.Fatalf("Convert() = %+v; want demo job for %s", got, voice)
				}
				if got.ConvertedURL != PlaceholderURL || got.OriginalURL != "blob:local/take1" {
					t.Fatalf("Convert() = %+v; want placeholder and local file", got)
				}
			}
		}
	}
}

func TestConvertNever(t *testing.T) {
	svc := &fakeService{url: "http://localhost", err: refused}
	o := NewOrchestrator(&Config{Service: svc, Fallback: backend.FallbackNever})
	_, err := o.Convert(context.Background(), NewFile("a.mp3", nil, ""), "Robot_FX")
	if !errors.Is(err, refused) {
		t.Fatalf("Convert() err = %v; want %v", err, refused)
	}
}

func TestConvertValidation(t *testing.T) {
	svc := &fakeService{url: "http://localhost"}
	o := NewOrchestrator(&Config{Service: svc})
	if _, err := o.Convert(context.Background(), nil, "Robot_FX"); !errors.Is(err, ErrNoFile) {
		t.Fatalf("Convert() err = %v; want %v", err, ErrNoFile)
	}
	if _, err := o.Convert(context.Background(), NewFile("a.mp3", nil, ""), "Opera"); !errors.Is(err, ErrInvalidVoice) {
		t.Fatalf("Convert() err = %v; want %v", err, ErrInvalidVoice)
	}
	if svc.calls != 0 {
		t.Fatalf("service calls = %d; want 0", svc.calls)
	}
}

func TestCheckFile(t *testing.T) {
	tests := []struct {
		name  string
		size  int64
		hints int
	}{
		{"take.mp3", 1024, 0},
		{"TAKE.WAV", MaxFileSize, 0},
		{"take.flac", 1024, 1},
		{"take.mp3", MaxFileSize + 1, 1},
		{"take", MaxFileSize + 1, 2},
	}
	for _, tt := range tests {
		got := CheckFile(&File{Name: tt.name, Size: tt.size})
		if len(got) != tt.hints {
			t.Fatalf("CheckFile(%s, %d) = %v; want %d hints", tt.name, tt.size, got, tt.hints)
		}
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take 1.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() err = %v; want nil", err)
	}
	if f.Name != "take 1.wav" || f.Size != 4 {
		t.Fatalf("OpenFile() = %+v; want name and size", f)
	}
	if !strings.HasPrefix(f.URL, "file://") {
		t.Fatalf("OpenFile().URL = %q; want file url", f.URL)
	}
	r, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, _ := io.ReadAll(r)
	if string(b) != "RIFF" {
		t.Fatalf("Open() content = %q; want RIFF", b)
	}
	if _, err := OpenFile(filepath.Dir(path)); err == nil {
		t.Fatal("OpenFile(dir) err = nil; want error")
	}
}

func TestPanelKeepsFile(t *testing.T) {
	svc := &fakeService{url: "https://api.example.com", err: &backend.StatusError{Code: 500, Message: "boom"}}
	p := NewPanel(&PanelConfig{
		Orchestrator: NewOrchestrator(&Config{Service: svc, Fallback: backend.FallbackNever}),
	})
	if _, err := p.Convert(context.Background()); !errors.Is(err, ErrNoFile) {
		t.Fatalf("Convert() err = %v; want %v", err, ErrNoFile)
	}
	if hints := p.SetFile(NewFile("take.ogg", []byte("x"), "/uploads/take.ogg")); len(hints) != 1 {
		t.Fatalf("SetFile() hints = %v; want 1", hints)
	}
	if err := p.SetVoice("Robot_FX"); err != nil {
		t.Fatal(err)
	}
	if err := p.SetVoice("Nope"); !errors.Is(err, ErrInvalidVoice) {
		t.Fatalf("SetVoice() err = %v; want %v", err, ErrInvalidVoice)
	}
	if _, err := p.Convert(context.Background()); err == nil {
		t.Fatal("Convert() err = nil; want error")
	}
	s := p.State()
	if s.File == nil || s.File.Name != "take.ogg" {
		t.Fatalf("State().File = %v; want take.ogg", s.File)
	}
	if s.Error != "boom" || s.Voice != "Robot_FX" || s.Converting {
		t.Fatalf("State() = %+v; want error boom and voice Robot_FX", s)
	}
}

type fakeRecorder struct {
	jobs []*Job
}

func (r *fakeRecorder) RecordJob(ctx context.Context, j *Job) error {
	r.jobs = append(r.jobs, j)
	return nil
}

func TestPanelFallback(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewPanel(&PanelConfig{
		Orchestrator: NewOrchestrator(&Config{
			Service:       &fakeService{url: "https://api.example.com", err: refused},
			FallbackDelay: 5 * time.Millisecond,
		}),
		Recorder: rec,
	})
	p.SetFile(NewFile("take.mp3", []byte("ID3"), "/uploads/take.mp3"))
	if err := p.SetVoice("Robot_FX"); err != nil {
		t.Fatal(err)
	}
	job, err := p.Convert(context.Background())
	if err != nil {
		t.Fatalf("Convert() err = %v; want nil", err)
	}
	if !job.IsDemo || job.TargetVoice != "Robot_FX" || job.ConvertedURL != PlaceholderURL {
		t.Fatalf("Convert() = %+v; want Robot_FX demo job", job)
	}
	if len(rec.jobs) != 1 {
		t.Fatalf("recorded jobs = %d; want 1", len(rec.jobs))
	}
	p.Reset()
	if s := p.State(); s.Job != nil || s.File == nil {
		t.Fatalf("State() = %+v; want file kept and no job", s)
	}
}
