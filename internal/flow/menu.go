package flow

import (
	"context"

	"churchbot/internal/session"
	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
)

// mainMenu leaves the session untouched so an active flow can continue.
func (m *Machine) mainMenu(ctx context.Context, recipient int64, st session.State) Step {
	_, registered, err := m.facts.GetMember(ctx, recipient)
	if err != nil {
		return failure(st)
	}
	return keep(st, m.menuReply(registered))
}

func (m *Machine) menuReply(registered bool) Reply {
	text := mainMenuText
	rows := [][]kit.Button{
		{{Text: "📖 Bible Study", Data: TagBible}},
		{{Text: "🙏 Prayer Requests", Data: TagPrayer}},
		{{Text: "💵 Donations", Data: TagDonate}},
		{{Text: "📅 Attendance", Data: TagAttendance}},
		{{Text: "🎥 Service Videos", Data: TagVideos}},
		{{Text: "📚 Bible Lessons", Data: TagLessons}},
		{{Text: "🗓 Upcoming Events", Data: TagEvents}},
	}
	if !registered {
		text += "8. 📝 Register\n"
		rows = append(rows, []kit.Button{{Text: "📝 Register", Data: TagRegister}})
	}
	return Reply{Text: text, Inline: rows}
}

func (m *Machine) donate(st session.State, action string) Step {
	if action == "confirm" {
		return keep(st, Reply{Text: textDonateThanks, Keyboard: MenuKeyboard()})
	}
	return keep(st, Reply{
		Text:   m.cat.Donation.Text(),
		Inline: [][]kit.Button{{{Text: "Confirm Payment", Data: kit.Data("donate", "confirm", "")}}},
	})
}

func (m *Machine) attendance(recipient int64, st session.State, action string) Step {
	var status storage.AttendanceStatus
	var ack string
	switch action {
	case "yes":
		status, ack = storage.AttendanceYes, textAttendanceYes
	case "no":
		status, ack = storage.AttendanceNo, textAttendanceNo
	case "":
		return keep(st, Reply{
			Text: textAttendancePrompt,
			Inline: [][]kit.Button{{
				{Text: "✅ Yes", Data: kit.Data("attendance", "yes", "")},
				{Text: "❌ No", Data: kit.Data("attendance", "no", "")},
			}},
		})
	default:
		return fallback(st)
	}
	now := m.now()
	return Step{
		Next:    st,
		Replies: []Reply{{Text: ack, Keyboard: MenuKeyboard()}},
		Effect: RecordAttendance{Attendance: storage.Attendance{
			RecipientID: recipient,
			ServiceDate: now.In(m.loc).Format("2006-01-02"),
			Status:      status,
			RecordedAt:  now,
		}},
	}
}

func (m *Machine) serviceVideo(st session.State) Step {
	r := Reply{Text: textNoServiceVideo, Keyboard: MenuKeyboard()}
	if path := m.cat.Media.Service; path != "" {
		r.Media = &kit.Media{Kind: kit.MediaVideo, Path: path, Caption: textServiceVideo}
	}
	return keep(st, r)
}

func (m *Machine) events(ctx context.Context, st session.State) Step {
	now := m.now()
	evs, err := m.facts.ListEvents(ctx, now, now.Add(m.horizon))
	if err != nil {
		return failure(st)
	}
	return keep(st, Reply{Text: FormatEvents(evs, m.loc), Keyboard: MenuKeyboard()})
}
