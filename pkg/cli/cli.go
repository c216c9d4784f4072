package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/igolaizola/sonicforge"
	"github.com/igolaizola/sonicforge/pkg/backend"
	"github.com/igolaizola/sonicforge/pkg/cmd/history"
	"github.com/igolaizola/sonicforge/pkg/cmd/lyrics"
	"github.com/igolaizola/sonicforge/pkg/cmd/migrate"
	"github.com/igolaizola/sonicforge/pkg/cmd/serve"
	"github.com/igolaizola/sonicforge/pkg/cmd/song"
	"github.com/igolaizola/sonicforge/pkg/cmd/vocals"
	"github.com/igolaizola/sonicforge/pkg/cmd/web"
	"github.com/igolaizola/sonicforge/pkg/music"
	"github.com/igolaizola/sonicforge/pkg/vocal"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const envPrefix = "SONICFORGE"

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("sonicforge", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sonicforge [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newServeCommand(),
			newWebCommand(),
			newLyricsCommand(),
			newSongCommand(),
			newVocalsCommand(),
			newHistoryCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "sonicforge version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newCommand(cmd, usage, help string, fs *flag.FlagSet, exec func(ctx context.Context, args []string) error) *ffcli.Command {
	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("sonicforge %s %s", cmd, usage),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix(envPrefix),
		},
		ShortHelp: help,
		FlagSet:   fs,
		Exec:      exec,
	}
}

// appFlags registers the flags shared by the commands that run a session.
func appFlags(fs *flag.FlagSet, cfg *sonicforge.Config) {
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type to keep a history (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	fs.StringVar(&cfg.Backend, "backend", backend.DefaultURL, "music and vocal backend address")
	fs.StringVar(&cfg.APIKey, "api-key", "", "lyrics provider api key")
	fs.StringVar(&cfg.Provider, "provider", "gemini", "lyrics provider (gemini, openai)")
	fs.StringVar(&cfg.Model, "model", "", "lyrics provider model (empty means provider default)")
	fs.StringVar(&cfg.ProviderURL, "provider-url", "", "base address of an openai compatible api")

	fs.StringVar(&cfg.MusicFallback, "music-fallback", string(backend.FallbackLocal), "when to return a demo song (never, local)")
	fs.StringVar(&cfg.VocalFallback, "vocal-fallback", string(backend.FallbackAlways), "when to return a demo conversion (never, local, always)")
	fs.DurationVar(&cfg.ColdStart, "cold-start", music.DefaultColdStart, "time before notifying that the backend is waking up")
	fs.DurationVar(&cfg.MusicDelay, "music-delay", music.DefaultFallbackDelay, "delay before returning a demo song")
	fs.DurationVar(&cfg.VocalDelay, "vocal-delay", vocal.DefaultFallbackDelay, "delay before returning a demo conversion")
	fs.IntVar(&cfg.Duration, "duration", backend.DefaultDuration, "song duration in seconds")
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return newCommand(cmd, "[flags]", "create or update the history database", fs, func(ctx context.Context, args []string) error {
		return migrate.Run(ctx, cfg)
	})
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "local", "fs type (local, s3, telegram)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "uploads", "path for local, key:secret@bucket.region[@endpoint] for s3, token@chat for telegram")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")

	fs.StringVar(&cfg.Addr, "addr", ":8000", "address to listen on")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "public address of the service (empty means derived from addr)")
	fs.StringVar(&cfg.ReplicateToken, "replicate-token", "", "replicate api token")
	fs.IntVar(&cfg.Duration, "duration", backend.DefaultDuration, "default song duration in seconds")
	fs.DurationVar(&cfg.ConvertDelay, "convert-delay", 2*time.Second, "simulated vocal conversion time")

	return newCommand(cmd, "[flags]", "run the music and vocal backend", fs, func(ctx context.Context, args []string) error {
		return serve.Serve(ctx, cfg)
	})
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &web.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Addr, "addr", "localhost:1337", "address to listen on")
	fs.StringVar(&cfg.Uploads, "uploads", "", "directory for uploaded vocals (empty means a temporary directory)")
	fs.BoolVar(&cfg.Open, "open", false, "open the browser")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "credentials to use (semicolon separated) Example: user1:pass1;user2:pass2")

	return newCommand(cmd, "[flags]", "run the web interface", fs, func(ctx context.Context, args []string) error {
		return web.Serve(ctx, cfg)
	})
}

func newLyricsCommand() *ffcli.Command {
	cmd := "lyrics"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &lyrics.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.UseCase, "use-case", "", "what the song is about")
	fs.StringVar(&cfg.Genre, "genre", "", "genre of the song")
	fs.StringVar(&cfg.Input, "input", "", "text file with the lyrics (manual mode)")
	fs.StringVar(&cfg.Title, "title", "", "title of the song (manual mode, defaults to the file name)")
	fs.StringVar(&cfg.Style, "style", "", "genre of the song (manual mode)")
	fs.StringVar(&cfg.Format, "format", "", "output format (text, json, yaml)")
	fs.StringVar(&cfg.Output, "output", "", "output file")

	return newCommand(cmd, "[flags]", "generate or load lyrics", fs, func(ctx context.Context, args []string) error {
		return lyrics.Run(ctx, cfg)
	})
}

func newSongCommand() *ffcli.Command {
	cmd := "song"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &song.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Input, "input", "", "lyrics file (json, yaml or text)")
	fs.StringVar(&cfg.Output, "output", "", "output mp3 file")
	fs.StringVar(&cfg.Wave, "wave", "", "output jpeg file with the waveform")
	fs.StringVar(&cfg.Volume, "volume", "", "output jpeg file with the volume")
	fs.BoolVar(&cfg.Play, "play", false, "play the song in the browser")

	return newCommand(cmd, "[flags]", "generate a song from lyrics", fs, func(ctx context.Context, args []string) error {
		return song.Run(ctx, cfg)
	})
}

func newVocalsCommand() *ffcli.Command {
	cmd := "vocals"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &vocals.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Input, "input", "", "audio file (mp3 or wav)")
	fs.StringVar(&cfg.Voice, "voice", vocal.DefaultVoice, fmt.Sprintf("target voice (%s)", strings.Join(vocal.Voices, ", ")))

	return newCommand(cmd, "[flags]", "convert vocals to another voice", fs, func(ctx context.Context, args []string) error {
		_, err := vocals.Run(ctx, cfg)
		return err
	})
}

func newHistoryCommand() *ffcli.Command {
	cmd := "history"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &history.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Kind, "kind", "songs", "records to list (songs, vocals)")
	fs.StringVar(&cfg.Format, "format", "csv", "output format (csv, json, yaml)")
	fs.StringVar(&cfg.Demo, "demo", "", "filter demo results (true, false)")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.Limit, "limit", 100, "page size")
	fs.StringVar(&cfg.Output, "output", "", "output file (empty means stdout)")

	return newCommand(cmd, "[flags]", "list generated songs and vocal conversions", fs, func(ctx context.Context, args []string) error {
		return history.Run(ctx, cfg)
	})
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
