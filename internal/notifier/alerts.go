package notifier

import (
	"fmt"
	"strings"

	"churchbot/internal/eventbus"
	"churchbot/internal/notifier/broadcast"
	"churchbot/internal/storage"
)

// alertFor maps bus events to admin alerts. Events without an alert
// return false.
func alertFor(e eventbus.Event) (Alert, bool) {
	switch e.Type {
	case eventbus.MemberRegistered:
		m, ok := e.Data.(storage.Member)
		if !ok {
			return Alert{}, false
		}
		var b strings.Builder
		fmt.Fprintf(&b, "🆕 New member registered: %s", m.FullName())
		if m.Phone != "" {
			fmt.Fprintf(&b, "\nPhone: %s", m.Phone)
		}
		if m.Email != "" {
			fmt.Fprintf(&b, "\nEmail: %s", m.Email)
		}
		return Alert{Key: fmt.Sprintf("member:%d", e.Recipient), Text: b.String()}, true
	case eventbus.PrayerSubmitted:
		return Alert{
			Key:  fmt.Sprintf("prayer:%v", e.Data),
			Text: fmt.Sprintf("🙏 New prayer request from member %d.", e.Recipient),
		}, true
	case eventbus.BroadcastFinished:
		r, ok := e.Data.(broadcast.Report)
		if !ok || r.Failed == 0 {
			return Alert{}, false
		}
		return Alert{
			Key:  "broadcast:" + r.ID,
			Text: fmt.Sprintf("⚠️ Broadcast %s: %d of %d deliveries failed.", r.Name, r.Failed, r.Total),
		}, true
	}
	return Alert{}, false
}
