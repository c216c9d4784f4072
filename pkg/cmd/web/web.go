package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/filestore"
	"github.com/igolaizola/sonicforge/pkg/lyrics"
	"github.com/igolaizola/sonicforge/pkg/music"
	"github.com/igolaizola/sonicforge/pkg/session"
	"github.com/igolaizola/sonicforge/pkg/vocal"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/browser"
)

type Config struct {
	sonicforge.Config

	Addr        string
	Uploads     string
	Open        bool
	Credentials map[string]string
}

//go:embed static/*
var staticContent embed.FS

// Serve starts the local web interface.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("web: server started")
	defer log.Println("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := sonicforge.New(ctx, &cfg.Config)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}
	defer func() { _ = app.Close() }()

	uploads := cfg.Uploads
	if uploads == "" {
		uploads = filepath.Join(os.TempDir(), "sonicforge-uploads")
	}
	if err := os.MkdirAll(uploads, 0755); err != nil {
		return fmt.Errorf("web: couldn't create uploads directory: %w", err)
	}

	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}

	mux, err := newRouter(ctx, app, uploads, cfg.Debug)
	if err != nil {
		return err
	}
	var handler http.Handler = mux
	if len(cfg.Credentials) > 0 {
		handler = middleware.BasicAuth("private", cfg.Credentials)(mux)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: handler,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if cfg.Open {
			if err := browser.OpenURL(note); err != nil {
				log.Printf("web: couldn't open browser: %v\n", err)
			}
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: couldn't shutdown server: %w", err)
	}
	return nil
}

// State is the whole session as seen by the page.
type State struct {
	Step      session.Step   `json:"step"`
	Confirmed *lyrics.Lyrics `json:"confirmed,omitempty"`
	Lyrics    lyrics.State   `json:"lyrics"`
	Music     music.State    `json:"music"`
	Vocals    vocal.State    `json:"vocals"`
	Genres    []string       `json:"genres"`
	Voices    []string       `json:"voices"`
	Backend   string         `json:"backend"`
}

// newRouter returns the web handler. Panel operations run with ctx instead of
// the request context so that closing the page doesn't abort them.
func newRouter(ctx context.Context, app *sonicforge.App, uploads string, debug bool) (http.Handler, error) {
	staticFS, err := iofs.Sub(staticContent, "static")
	if err != nil {
		return nil, fmt.Errorf("web: couldn't load static content: %w", err)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	r := mux.Group(func(r chi.Router) {
		if debug {
			r.Use(middleware.Logger)
		}
	})

	mux.Get("/*", http.StripPrefix("/", http.FileServer(http.FS(staticFS))).ServeHTTP)
	mux.Get("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads))).ServeHTTP)

	state := func() *State {
		snap := app.Session.Snapshot()
		return &State{
			Step:      snap.Step,
			Confirmed: snap.ConfirmedLyrics,
			Lyrics:    app.Lyrics.State(),
			Music:     app.Music.State(),
			Vocals:    app.Vocals.State(),
			Genres:    lyrics.Genres,
			Voices:    vocal.Voices,
			Backend:   app.Backend.URL(),
		}
	}

	r.Get("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, state())
	})

	r.Put("/api/step", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Step string `json:"step"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		step, err := session.ParseStep(req.Step)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		app.Session.SetActiveStep(step)
		writeJSON(w, http.StatusOK, state())
	})

	r.Put("/api/lyrics/mode", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode lyrics.Mode `json:"mode"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		if err := app.Lyrics.SetMode(req.Mode); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/lyrics/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UseCase string `json:"use_case"`
			Genre   string `json:"genre"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		if _, err := app.Lyrics.Generate(ctx, req.UseCase, req.Genre); err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/lyrics/confirm", func(w http.ResponseWriter, r *http.Request) {
		if _, err := app.Lyrics.ConfirmGenerated(); err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/lyrics/manual", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
			Style string `json:"style"`
			Body  string `json:"body"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		app.Lyrics.SetManualTitle(req.Title)
		app.Lyrics.SetManualBody(req.Body)
		if req.Style != "" {
			if err := app.Lyrics.SetManualStyle(req.Style); err != nil {
				writeError(w, statusCode(err), err)
				return
			}
		}
		if _, err := app.Lyrics.SubmitManual(); err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/lyrics/upload", func(w http.ResponseWriter, r *http.Request) {
		f, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("web: couldn't read file: %w", err))
			return
		}
		defer f.Close()
		if err := app.Lyrics.LoadFile(header.Filename, f); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/music/generate", func(w http.ResponseWriter, r *http.Request) {
		_, err := app.Music.Generate(ctx)
		if errors.Is(err, music.ErrNoLyrics) {
			app.Session.SetActiveStep(session.Lyrics)
		}
		if err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/music/another", func(w http.ResponseWriter, r *http.Request) {
		app.Music.GenerateAnother()
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/music/play", func(w http.ResponseWriter, r *http.Request) {
		if _, err := app.Music.TogglePlay(); err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/vocals/file", func(w http.ResponseWriter, r *http.Request) {
		f, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("web: couldn't read file: %w", err))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("web: couldn't read file: %w", err))
			return
		}
		name := filestore.Name(ulid.Make().String(), header.Filename)
		if err := os.WriteFile(filepath.Join(uploads, name), data, 0644); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("web: couldn't save file: %w", err))
			return
		}
		app.Vocals.SetFile(vocal.NewFile(header.Filename, data, "/uploads/"+name))
		writeJSON(w, http.StatusOK, state())
	})

	r.Put("/api/vocals/voice", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Voice string `json:"voice"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		if err := app.Vocals.SetVoice(req.Voice); err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/vocals/convert", func(w http.ResponseWriter, r *http.Request) {
		if _, err := app.Vocals.Convert(ctx); err != nil {
			writeError(w, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, state())
	})

	r.Post("/api/vocals/reset", func(w http.ResponseWriter, r *http.Request) {
		app.Vocals.Reset()
		writeJSON(w, http.StatusOK, state())
	})

	return mux, nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, lyrics.ErrMissingInput),
		errors.Is(err, lyrics.ErrInvalidGenre),
		errors.Is(err, vocal.ErrInvalidVoice),
		errors.Is(err, vocal.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, lyrics.ErrBusy),
		errors.Is(err, music.ErrBusy),
		errors.Is(err, music.ErrNoLyrics),
		errors.Is(err, music.ErrNoSong),
		errors.Is(err, vocal.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("web: couldn't decode request: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("web: couldn't encode response:", err)
	}
}
