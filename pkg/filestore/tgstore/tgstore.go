package tgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/igolaizola/sonicforge/pkg/storage"
)

// RefStore keeps the telegram reference of every stored file.
type RefStore interface {
	GetFileRef(ctx context.Context, id string) (string, error)
	SetFileRef(ctx context.Context, id, ref string) error
}

// Store keeps files as documents sent to a telegram chat.
type Store struct {
	bot    *tgbot.BotAPI
	chat   int64
	client *http.Client
	debug  bool
	refs   RefStore
}

var _ RefStore = (*storage.Store)(nil)

func New(token string, chat int64, proxy string, debug bool, refs RefStore) (*Store, error) {
	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't create bot: %w", err)
	}

	// Check that chatID is valid
	if _, err := bot.GetChat(tgbot.ChatConfig{ChatID: chat}); err != nil {
		return nil, fmt.Errorf("tgstore: invalid chat id: %w", err)
	}

	client := &http.Client{
		Timeout: 60 * time.Second,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("tgstore: invalid proxy %s: %w", proxy, err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return &Store{
		bot:    bot,
		chat:   chat,
		client: client,
		debug:  debug,
		refs:   refs,
	}, nil
}

var backoff = []time.Duration{
	15 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

// retry runs fn up to three times waiting between attempts.
func (s *Store) retry(ctx context.Context, fn func() error) error {
	maxAttempts := 3
	attempts := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		attempts++
		if attempts >= maxAttempts {
			return err
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		wait := backoff[idx]
		if s.debug {
			log.Printf("%v (retrying in %s)\n", err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("tgstore: cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	doc := tgbot.NewDocumentUpload(s.chat, path)
	doc.Caption = name

	var msg tgbot.Message
	if err := s.retry(ctx, func() error {
		var err error
		msg, err = s.bot.Send(doc)
		if err != nil {
			return fmt.Errorf("tgstore: couldn't send file: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}
	fileID := messageFileID(&msg)
	if fileID == "" {
		js, _ := json.Marshal(msg)
		return fmt.Errorf("tgstore: message doesn't contain file: %s", string(js))
	}
	ref := toRef(s.chat, msg.MessageID, fileID)
	if err := s.refs.SetFileRef(ctx, name, ref); err != nil {
		return fmt.Errorf("tgstore: couldn't set file %s: %w", name, err)
	}
	return nil
}

func messageFileID(msg *tgbot.Message) string {
	switch {
	case msg.Audio != nil && msg.Audio.FileID != "":
		return msg.Audio.FileID
	case msg.Voice != nil && msg.Voice.FileID != "":
		return msg.Voice.FileID
	case msg.Document != nil && msg.Document.FileID != "":
		return msg.Document.FileID
	}
	return ""
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	ref, err := s.refs.GetFileRef(ctx, name)
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file %s: %w", name, err)
	}
	_, _, fileID, err := fromRef(ref)
	if err != nil {
		return err
	}
	file, err := s.bot.GetFile(tgbot.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file: %w", err)
	}
	u := file.Link(s.bot.Token)

	var b []byte
	if err := s.retry(ctx, func() error {
		var err error
		b, err = s.download(ctx, ref, u)
		return err
	}); err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("tgstore: couldn't write %s: %w", path, err)
	}
	return nil
}

func (s *Store) download(ctx context.Context, ref, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't download %s: %w", ref, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't read %s: %w", ref, err)
	}
	return b, nil
}

func toRef(chat int64, msgID int, fileID string) string {
	return fmt.Sprintf("%d/%d/%s", chat, msgID, fileID)
}

func fromRef(ref string) (int64, int, string, error) {
	split := strings.Split(ref, "/")
	if len(split) != 3 {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s", ref)
	}
	chat, err := strconv.ParseInt(split[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", ref, err)
	}
	msgID, err := strconv.Atoi(split[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", ref, err)
	}
	fileID := split[2]
	if fileID == "" {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s", ref)
	}
	return chat, msgID, fileID, nil
}
