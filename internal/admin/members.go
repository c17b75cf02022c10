package admin

import (
	"context"
	"fmt"
	"strings"

	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

func (s *Service) showMembers(ctx context.Context, chat kit.ChatTarget, _ string) error {
	members, err := s.d.Store.ListMembers(ctx)
	if err != nil {
		s.d.Log.Error("list members failed", logx.Err(err))
		return s.reply(ctx, chat, "Failed to load members. Please try again.")
	}
	if len(members) == 0 {
		return s.reply(ctx, chat, "No registered members found.")
	}
	var b strings.Builder
	b.WriteString("📋 Registered Members:\n\n")
	for _, m := range members {
		fmt.Fprintf(&b, "Name: %s %s\nPhone: %s\nEmail: %s\nAddress: %s\n", m.FirstName, m.LastName, m.Phone, m.Email, m.Address)
	}
	return s.reply(ctx, chat, b.String())
}
