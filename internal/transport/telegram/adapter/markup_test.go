package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	kit "churchbot/internal/transport"
)

func TestSplitTextShort(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 10, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("splitText = %q", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("a", 6)
	s := line + "\n" + line + "\n" + line
	got := splitText(s, 14, "")
	if len(got) != 2 {
		t.Fatalf("chunks = %d (%q), want 2", len(got), got)
	}
	if got[0] != line+"\n"+line || got[1] != line {
		t.Fatalf("unexpected chunks %q", got)
	}
	if strings.Join(got, "\n") != s {
		t.Fatalf("chunks do not rebuild the input")
	}
}

func TestBuildMarkupInline(t *testing.T) {
	t.Parallel()
	rm := buildMarkup(&kit.SendOptions{Inline: [][]kit.Button{
		{{Text: "Yes", Data: "attendance:yes"}, {Text: "No", Data: "attendance:no"}},
	}})
	if rm == nil || len(rm.InlineKeyboard) != 1 || len(rm.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected inline markup %+v", rm)
	}
	if rm.InlineKeyboard[0][0].Data != "attendance:yes" {
		t.Fatalf("data = %q", rm.InlineKeyboard[0][0].Data)
	}
}

func TestBuildMarkupKeyboard(t *testing.T) {
	t.Parallel()
	rm := buildMarkup(&kit.SendOptions{Keyboard: [][]string{{"📜 Menu"}}})
	if rm == nil || len(rm.ReplyKeyboard) != 1 || rm.ReplyKeyboard[0][0].Text != "📜 Menu" {
		t.Fatalf("unexpected keyboard markup %+v", rm)
	}
	if !rm.ResizeKeyboard || !rm.IsPersistent {
		t.Fatal("menu keyboard should be resized and persistent")
	}
	if buildMarkup(&kit.SendOptions{}) != nil {
		t.Fatal("empty options should produce no markup")
	}
}

func TestMediaFile(t *testing.T) {
	t.Parallel()
	if f, err := mediaFile(kit.Media{FileID: "abc"}); err != nil || f.FileID != "abc" {
		t.Fatalf("file id media = %+v, %v", f, err)
	}
	if _, err := mediaFile(kit.Media{Path: filepath.Join(t.TempDir(), "missing.mp4")}); err == nil {
		t.Fatal("missing file should fail")
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := mediaFile(kit.Media{Path: path}); err != nil {
		t.Fatalf("existing file: %v", err)
	}
}
