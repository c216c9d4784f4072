package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/igolaizola/sonicforge/pkg/backend"
	"github.com/igolaizola/sonicforge/pkg/filestore"
	"github.com/igolaizola/sonicforge/pkg/replicate"
	"github.com/igolaizola/sonicforge/pkg/storage"
	"github.com/igolaizola/sonicforge/pkg/vocal"
	"github.com/oklog/ulid/v2"
)

const serviceName = "SonicForge Backend"

type Config struct {
	Debug  bool
	DBType string
	DBConn string
	FSType string
	FSConn string
	Proxy  string

	Addr string
	// Public address used to build the links of uploaded files.
	BaseURL        string
	ReplicateToken string
	Duration       int
	ConvertDelay   time.Duration
}

// Generator creates a music track and returns its address.
type Generator interface {
	MusicGen(ctx context.Context, prompt string, duration int) (string, error)
}

type server struct {
	gen      Generator
	fs       *filestore.Store
	store    *storage.Store
	cache    string
	baseURL  string
	duration int
	delay    time.Duration
	debug    bool
}

func (s *server) log(format string, args ...any) {
	if !s.debug {
		return
	}
	format += "\n"
	log.Printf(format, args...)
}

// Serve starts the backend service.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("serve: server started")
	defer log.Println("serve: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	host, port, err := splitAddr(cfg.Addr)
	if err != nil {
		return err
	}

	var store *storage.Store
	if cfg.DBType != "" {
		store, err = storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("serve: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("serve: couldn't start orm store: %w", err)
		}
		defer func() { _ = store.Stop() }()
	}

	fs, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Proxy, cfg.Debug, store)
	if err != nil {
		return fmt.Errorf("serve: couldn't create file storage: %w", err)
	}

	var gen Generator
	if cfg.ReplicateToken != "" {
		gen, err = replicate.New(&replicate.Config{
			Token: cfg.ReplicateToken,
			Debug: cfg.Debug,
		})
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	} else {
		log.Println("serve: replicate token is empty, music generation will fail")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		h := host
		if h == "" {
			h = "localhost"
		}
		baseURL = fmt.Sprintf("http://%s:%d", h, port)
	}
	cache := ".cache"
	if cfg.FSType == "local" {
		cache = cfg.FSConn
	}
	if err := os.MkdirAll(cache, 0755); err != nil {
		return fmt.Errorf("serve: couldn't create cache directory: %w", err)
	}

	s := &server{
		gen:      gen,
		fs:       fs,
		store:    store,
		cache:    cache,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		duration: cfg.Duration,
		delay:    cfg.ConvertDelay,
		debug:    cfg.Debug,
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.router(),
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: couldn't shutdown server: %w", err)
	}
	return nil
}

func splitAddr(addr string) (string, int, error) {
	split := strings.Split(addr, ":")
	if len(split) != 2 {
		return "", 0, fmt.Errorf("serve: invalid address: %s", addr)
	}
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return "", 0, fmt.Errorf("serve: invalid port: %s", split[1])
	}
	return split[0], port, nil
}

func (s *server) router() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	if s.debug {
		mux.Use(middleware.Logger)
	}

	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, &backend.StatusResponse{
			Status:  "active",
			Service: serviceName,
		})
	})
	mux.With(middleware.Timeout(5*time.Minute)).Post("/generate-music", s.generateMusic)
	mux.With(middleware.Timeout(time.Minute)).Post("/convert-vocals", s.convertVocals)
	mux.Get("/files/{name}", s.file)
	return mux
}

// StylePrompt builds the music prompt for a genre and its lyrics. Only the
// first 200 characters of the lyrics are used.
func StylePrompt(genre, lyrics string) string {
	g := strings.ToLower(genre)
	style := "high quality, clear audio"
	switch {
	case strings.Contains(g, "kid") || strings.Contains(g, "nursery"):
		style = "simple, catchy, joyful, playful, children's music, xylophone, bright melody"
	case strings.Contains(g, "jazz"):
		style = "smooth jazz, saxophone, double bass, swing rhythm"
	}
	vibe := []rune(lyrics)
	if len(vibe) > 200 {
		vibe = vibe[:200]
	}
	return fmt.Sprintf("A %s song. %s. Vibe: %s", genre, style, string(vibe))
}

func (s *server) generateMusic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lyrics   *string `json:"lyrics"`
		Genre    *string `json:"genre"`
		Duration *int    `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, []backend.ErrorItem{{
			Loc:  []any{"body"},
			Msg:  "JSON decode error",
			Type: "json_invalid",
		}})
		return
	}
	var missing []backend.ErrorItem
	if req.Lyrics == nil {
		missing = append(missing, fieldRequired("lyrics"))
	}
	if req.Genre == nil {
		missing = append(missing, fieldRequired("genre"))
	}
	if len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, missing)
		return
	}
	duration := s.duration
	if duration <= 0 {
		duration = backend.DefaultDuration
	}
	if req.Duration != nil && *req.Duration > 0 {
		duration = *req.Duration
	}

	if s.gen == nil {
		writeError(w, http.StatusInternalServerError, "Server Error: API Token missing in backend configuration.")
		return
	}

	prompt := StylePrompt(*req.Genre, *req.Lyrics)
	s.log("serve: generating music: %s", prompt)
	u, err := s.gen.MusicGen(r.Context(), prompt, duration)
	if err != nil {
		log.Println("serve: couldn't generate music:", err)
		var apiErr *replicate.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("AI Provider Error: %s", apiErr.Detail))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := &backend.MusicResponse{
		ID:       ulid.Make().String(),
		URL:      u,
		Status:   backend.StatusCompleted,
		Duration: float64(duration),
	}
	if s.store != nil {
		if err := s.store.SetSong(r.Context(), &storage.Song{
			ID:       resp.ID,
			Style:    *req.Genre,
			URL:      resp.URL,
			Status:   resp.Status,
			Duration: resp.Duration,
		}); err != nil {
			log.Println("serve: couldn't record song:", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) convertVocals(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusUnprocessableEntity, []backend.ErrorItem{
			fieldRequired("file"),
			fieldRequired("target_voice"),
		})
		return
	}
	var missing []backend.ErrorItem
	f, header, err := r.FormFile("file")
	if err != nil {
		missing = append(missing, fieldRequired("file"))
	} else {
		defer f.Close()
	}
	voice := r.FormValue("target_voice")
	if voice == "" {
		missing = append(missing, fieldRequired("target_voice"))
	}
	if len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, missing)
		return
	}

	id := ulid.Make().String()
	name := filestore.Name(id, header.Filename)

	// Keep the upload in a temporary file until it is stored
	tmp, err := os.CreateTemp("", "sonicforge-*"+filepath.Ext(name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := io.Copy(tmp, f); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := tmp.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.fs.SetAudio(r.Context(), tmp.Name(), name); err != nil {
		log.Println("serve: couldn't store upload:", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log("serve: stored %s (%s, %d bytes)", name, header.Filename, header.Size)

	// Conversion is simulated with a fixed delay and a placeholder result
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-r.Context().Done():
			t.Stop()
			writeError(w, http.StatusServiceUnavailable, "request cancelled")
			return
		case <-t.C:
		}
	}

	resp := &backend.VocalResponse{
		ID:           id,
		OriginalURL:  fmt.Sprintf("%s/files/%s", s.baseURL, name),
		ConvertedURL: vocal.PlaceholderURL,
		TargetVoice:  voice,
		Status:       backend.StatusCompleted,
	}
	if s.store != nil {
		if err := s.store.SetVocalJob(r.Context(), &storage.VocalJob{
			ID:           resp.ID,
			OriginalURL:  resp.OriginalURL,
			ConvertedURL: resp.ConvertedURL,
			TargetVoice:  resp.TargetVoice,
			Status:       resp.Status,
		}); err != nil {
			log.Println("serve: couldn't record vocal job:", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) file(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	path := filepath.Join(s.cache, name)
	if _, err := os.Stat(path); err != nil {
		if err := s.fs.GetAudio(r.Context(), path, name); err != nil {
			log.Println("serve: couldn't get file:", err)
			_ = os.Remove(path)
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
	}
	http.ServeFile(w, r, path)
}

func fieldRequired(field string) backend.ErrorItem {
	return backend.ErrorItem{
		Loc:  []any{"body", field},
		Msg:  "Field required",
		Type: "missing",
	}
}

func writeError(w http.ResponseWriter, code int, detail any) {
	writeJSON(w, code, &backend.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("serve: couldn't encode response:", err)
	}
}
