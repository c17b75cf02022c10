package adapter

import (
	"errors"
	"os"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "churchbot/internal/transport"
)

// buildMarkup converts transport affordances into telebot markup.
// Inline buttons win when both inline and keyboard rows are set.
func buildMarkup(opt *kit.SendOptions) *tele.ReplyMarkup {
	if opt == nil {
		return nil
	}
	switch {
	case len(opt.Inline) > 0:
		rm := &tele.ReplyMarkup{}
		rows := make([]tele.Row, 0, len(opt.Inline))
		for _, r := range opt.Inline {
			btns := make([]tele.Btn, 0, len(r))
			for _, b := range r {
				if b.URL != "" {
					btns = append(btns, rm.URL(b.Text, b.URL))
					continue
				}
				btns = append(btns, tele.Btn{Text: b.Text, Data: b.Data})
			}
			rows = append(rows, rm.Row(btns...))
		}
		rm.Inline(rows...)
		return rm
	case len(opt.Keyboard) > 0:
		rm := &tele.ReplyMarkup{ResizeKeyboard: true, IsPersistent: true}
		rows := make([]tele.Row, 0, len(opt.Keyboard))
		for _, r := range opt.Keyboard {
			btns := make([]tele.Btn, 0, len(r))
			for _, text := range r {
				btns = append(btns, rm.Text(text))
			}
			rows = append(rows, rm.Row(btns...))
		}
		rm.Reply(rows...)
		return rm
	}
	return nil
}

func mediaFile(m kit.Media) (tele.File, error) {
	if m.FileID != "" {
		return tele.File{FileID: m.FileID}, nil
	}
	if strings.TrimSpace(m.Path) == "" {
		return tele.File{}, errors.New("media has neither file id nor path")
	}
	// Fail before the upload starts so a missing asset is a clean per-send error.
	if _, err := os.Stat(m.Path); err != nil {
		return tele.File{}, err
	}
	return tele.FromDisk(m.Path), nil
}

const textLimit = 4000

// splitText splits long messages into chunks Telegram accepts.
// It prefers newline boundaries and avoids cutting inside an HTML tag.
func splitText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		if strings.EqualFold(parseMode, tele.ModeHTML) && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
