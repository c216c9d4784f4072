package tgstore

import (
	"testing"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
)

func TestRef(t *testing.T) {
	ref := toRef(-100123, 42, "AbC")
	if ref != "-100123/42/AbC" {
		t.Fatalf("toRef() = %q; want %q", ref, "-100123/42/AbC")
	}
	chat, msg, file, err := fromRef(ref)
	if err != nil {
		t.Fatalf("fromRef() err = %v; want nil", err)
	}
	if chat != -100123 || msg != 42 || file != "AbC" {
		t.Fatalf("fromRef() = %d %d %s; want -100123 42 AbC", chat, msg, file)
	}
	for _, bad := range []string{"", "1/2", "x/2/a", "1/y/a", "1/2/"} {
		if _, _, _, err := fromRef(bad); err == nil {
			t.Fatalf("fromRef(%q) err = nil; want error", bad)
		}
	}
}

func TestMessageFileID(t *testing.T) {
	if got := messageFileID(&tgbot.Message{Document: &tgbot.Document{FileID: "doc"}}); got != "doc" {
		t.Fatalf("messageFileID() = %q; want doc", got)
	}
	if got := messageFileID(&tgbot.Message{Audio: &tgbot.Audio{FileID: "audio"}}); got != "audio" {
		t.Fatalf("messageFileID() = %q; want audio", got)
	}
	if got := messageFileID(&tgbot.Message{}); got != "" {
		t.Fatalf("messageFileID() = %q; want empty", got)
	}
}
