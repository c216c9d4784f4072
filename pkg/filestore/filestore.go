package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/igolaizola/sonicforge/pkg/filestore/local"
	"github.com/igolaizola/sonicforge/pkg/filestore/s3"
	"github.com/igolaizola/sonicforge/pkg/filestore/tgstore"
	"github.com/igolaizola/sonicforge/pkg/storage"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
}

// Store keeps audio files uploaded to the backend.
type Store struct {
	fs fs
}

// SetAudio uploads the file at path with the given name.
func (s *Store) SetAudio(ctx context.Context, path, name string) error {
	return s.fs.Upload(ctx, path, name)
}

// GetAudio downloads the file with the given name to path.
func (s *Store) GetAudio(ctx context.Context, path, name string) error {
	return s.fs.Download(ctx, path, name)
}

// New creates a file store. The connection string depends on the type:
//
//   - local: directory path
//   - s3: key:secret@bucket.region[@endpoint]
//   - telegram: token@chat
func New(typ, conn, proxy string, debug bool, store *storage.Store) (*Store, error) {
	var fs fs
	switch typ {
	case "telegram":
		if store == nil {
			return nil, fmt.Errorf("filestore: telegram file store needs a database")
		}
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid telegram connection string %q", conn)
		}
		token := split[0]
		chat, err := strconv.ParseInt(split[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filestore: invalid telegram chat id %q: %w", split[1], err)
		}
		candidate, err := tgstore.New(token, chat, proxy, debug, store)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "s3":
		cfg, err := parseS3(conn)
		if err != nil {
			return nil, err
		}
		cfg.Debug = debug
		candidate, err := s3.New(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		candidate, err := local.New(conn, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

func parseS3(conn string) (*s3.Config, error) {
	split := strings.SplitN(conn, "@", 3)
	if len(split) < 2 {
		return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
	}
	auth := strings.Split(split[0], ":")
	if len(auth) != 2 {
		return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
	}
	loc := strings.Split(split[1], ".")
	if len(loc) != 2 || loc[0] == "" || loc[1] == "" {
		return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
	}
	cfg := &s3.Config{
		Key:    auth[0],
		Secret: auth[1],
		Bucket: loc[0],
		Region: loc[1],
	}
	if len(split) == 3 {
		cfg.Endpoint = split[2]
	}
	return cfg, nil
}

// Name returns the stored name of an uploaded file.
func Name(id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return id + ext
}
