package router

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"churchbot/internal/flow"
	kit "churchbot/internal/transport"
)

// Request is one routed update.
type Request struct {
	ID     string
	Update kit.Update
	Chat   kit.ChatTarget
	FromID int64

	// Command is set for slash commands, without the slash or bot suffix.
	Command string
	Args    string
	// Admin routes the command to the admin handler.
	Admin bool

	CallbackID string
	Event      flow.Event
}

// request maps an update to a Request. It returns nil for updates with no sender.
func (r *Router) request(up kit.Update) *Request {
	req := &Request{Update: up, FromID: up.Sender()}
	if req.FromID == 0 {
		return nil
	}
	switch {
	case up.Message != nil:
		msg := up.Message
		req.Chat = kit.ChatTarget{ChatID: msg.ChatID}
		if name, args, ok := parseCommand(msg.Text); ok {
			req.Command, req.Args = name, args
			req.Event = flow.Command{Name: name, Args: args}
			req.Admin = r.admin != nil && r.admin.Handles(name)
		} else {
			req.Event = flow.Text{Body: msg.Text}
		}
	case up.Callback != nil:
		cb := up.Callback
		req.Chat = kit.ChatTarget{ChatID: cb.ChatID}
		req.CallbackID = cb.ID
		req.Command = "cb:" + cb.Data
		req.Event = flow.Button{Tag: strings.TrimSpace(cb.Data)}
	default:
		return nil
	}
	req.ID = newReqID()
	return req
}

// parseCommand splits "/name@bot rest of line" into a lower-case name and
// the trimmed remainder.
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return "", "", false
	}
	return strings.ToLower(word), strings.TrimSpace(rest), true
}

var ridSeq atomic.Uint64

// newReqID is short: base36 time, sequence and two random chars.
func newReqID() string {
	n := ridSeq.Add(1)
	const alpha = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := []byte{alpha[rand.IntN(len(alpha))], alpha[rand.IntN(len(alpha))]}
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 36) + string(suffix)
}
