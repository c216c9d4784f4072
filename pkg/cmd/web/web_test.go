package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/igolaizola/sonicforge/pkg/music"
	"github.com/igolaizola/sonicforge/pkg/session"
	"github.com/igolaizola/sonicforge/pkg/vocal"
)

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, useCase, genre string) (*lyrics.Lyrics, error) {
	return &lyrics.Lyrics{Title: "Shell Yeah", Style: genre, Verse1: "Slow", Chorus: "Brave"}, nil
}

func unreachable(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return "http://" + addr
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	app, err := sonicforge.New(ctx, &sonicforge.Config{
		Backend:    unreachable(t),
		Generator:  fakeGenerator{},
		MusicDelay: time.Millisecond,
		VocalDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	h, err := newRouter(ctx, app, t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, *State) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s State
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode, &s
}

func TestWorkflow(t *testing.T) {
	srv := newTestServer(t)

	code, s := do(t, srv, "GET", "/api/state", nil)
	if code != http.StatusOK || s.Step != session.Lyrics || len(s.Genres) != 11 || len(s.Voices) != 4 {
		t.Fatalf("GET state = %d %+v", code, s)
	}

	// Music without lyrics sends the user back to the lyrics step
	do(t, srv, "PUT", "/api/step", map[string]string{"step": "music"})
	if code, _ := do(t, srv, "POST", "/api/music/generate", nil); code != http.StatusConflict {
		t.Fatalf("generate music without lyrics = %d; want 409", code)
	}
	if _, s := do(t, srv, "GET", "/api/state", nil); s.Step != session.Lyrics {
		t.Fatalf("step = %s; want lyrics", s.Step)
	}

	if code, _ := do(t, srv, "POST", "/api/lyrics/generate", map[string]string{"genre": "Jazz"}); code != http.StatusBadRequest {
		t.Fatalf("generate without use case = %d; want 400", code)
	}
	code, s = do(t, srv, "POST", "/api/lyrics/generate", map[string]string{"use_case": "a turtle", "genre": "Jazz"})
	if code != http.StatusOK || s.Lyrics.Generated == nil || s.Confirmed != nil {
		t.Fatalf("generate = %d %+v", code, s.Lyrics)
	}
	code, s = do(t, srv, "POST", "/api/lyrics/confirm", nil)
	if code != http.StatusOK || s.Step != session.Music || s.Confirmed == nil || s.Confirmed.Style != "Jazz" {
		t.Fatalf("confirm = %d %+v", code, s)
	}

	// Local backend is down so a demo song is returned
	code, s = do(t, srv, "POST", "/api/music/generate", nil)
	if code != http.StatusOK || s.Music.Song == nil || !s.Music.Song.IsDemo || s.Music.Song.URL != music.PlaceholderURL {
		t.Fatalf("generate music = %d %+v", code, s.Music)
	}
	if code, s = do(t, srv, "POST", "/api/music/play", nil); code != http.StatusOK || !s.Music.Playing {
		t.Fatalf("play = %d %+v", code, s.Music)
	}
	if code, s = do(t, srv, "POST", "/api/music/another", nil); code != http.StatusOK || s.Music.Song != nil || s.Music.Playing {
		t.Fatalf("another = %d %+v", code, s.Music)
	}
}

func TestManualLyrics(t *testing.T) {
	srv := newTestServer(t)
	if code, _ := do(t, srv, "POST", "/api/lyrics/manual", map[string]string{"title": "Twinkle"}); code != http.StatusBadRequest {
		t.Fatalf("manual without body = %d; want 400", code)
	}
	if code, _ := do(t, srv, "POST", "/api/lyrics/manual", map[string]string{"title": "Twinkle", "body": "star", "style": "Polka"}); code != http.StatusBadRequest {
		t.Fatalf("manual with invalid style = %d; want 400", code)
	}
	code, s := do(t, srv, "POST", "/api/lyrics/manual", map[string]string{"title": "Twinkle", "body": "star"})
	if code != http.StatusOK || s.Confirmed == nil || s.Confirmed.Source != lyrics.SourceManual || s.Confirmed.Style != lyrics.DefaultManualGenre {
		t.Fatalf("manual = %d %+v", code, s.Confirmed)
	}
}

func upload(t *testing.T, srv *httptest.Server, path, name, content string) (int, *State) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	resp, err := http.Post(srv.URL+path, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s State
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, &s
}

func TestUploads(t *testing.T) {
	srv := newTestServer(t)

	code, s := upload(t, srv, "/api/lyrics/upload", "twinkle.v2.txt", "Little star")
	if code != http.StatusOK || s.Lyrics.ManualTitle != "twinkle.v2" || s.Lyrics.ManualBody != "Little star" {
		t.Fatalf("lyrics upload = %d %+v", code, s.Lyrics)
	}

	if code, _ := do(t, srv, "POST", "/api/vocals/convert", nil); code != http.StatusBadRequest {
		t.Fatalf("convert without file = %d; want 400", code)
	}
	code, s = upload(t, srv, "/api/vocals/file", "take.ogg", "OggS")
	if code != http.StatusOK || s.Vocals.File == nil || len(s.Vocals.Hints) == 0 {
		t.Fatalf("vocal upload = %d %+v", code, s.Vocals)
	}
	local := s.Vocals.File.URL
	if !strings.HasPrefix(local, "/uploads/") {
		t.Fatalf("file url = %q; want /uploads/ path", local)
	}
	resp, err := http.Get(srv.URL + local)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(b) != "OggS" {
		t.Fatalf("GET %s = %q; want OggS", local, b)
	}

	if code, _ := do(t, srv, "PUT", "/api/vocals/voice", map[string]string{"voice": "Elvis"}); code != http.StatusBadRequest {
		t.Fatalf("invalid voice = %d; want 400", code)
	}
	do(t, srv, "PUT", "/api/vocals/voice", map[string]string{"voice": "Robot_FX"})
	code, s = do(t, srv, "POST", "/api/vocals/convert", nil)
	if code != http.StatusOK || s.Vocals.Job == nil {
		t.Fatalf("convert = %d %+v", code, s.Vocals)
	}
	j := s.Vocals.Job
	if !j.IsDemo || j.TargetVoice != "Robot_FX" || j.ConvertedURL != vocal.PlaceholderURL || j.OriginalURL != local {
		t.Fatalf("convert job = %+v", j)
	}
	if s.Vocals.File == nil {
		t.Fatal("file was discarded after conversion")
	}
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "<title>SonicForge</title>") {
		t.Fatalf("GET / = %d", resp.StatusCode)
	}
}
