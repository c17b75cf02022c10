package router

import (
	"context"
	"strings"
	"time"
	"unicode"

	kit "churchbot/internal/transport"
)

// PublishMenu sends cmds to adapters that support a command menu.
// Names are made Telegram-safe and duplicates dropped.
func PublishMenu(ctx context.Context, adapter any, cmds []kit.BotCommand) error {
	up, ok := adapter.(kit.CommandMenuUpdater)
	if !ok {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return up.UpdateMenuCommands(cctx, menuCommands(cmds))
}

func menuCommands(cmds []kit.BotCommand) []kit.BotCommand {
	seen := make(map[string]bool, len(cmds))
	out := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeCommand(c.Command)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, kit.BotCommand{Command: name, Description: strings.TrimSpace(c.Description)})
	}
	return out
}

// sanitizeCommand maps s onto Telegram's [a-z0-9_]{1,32} command alphabet.
func sanitizeCommand(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "/")))
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	return out
}
