package flow

import (
	"context"
	"fmt"

	"churchbot/internal/session"
	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
)

func (m *Machine) start(ctx context.Context, recipient int64, st session.State) Step {
	mem, ok, err := m.facts.GetMember(ctx, recipient)
	if err != nil {
		return failure(st)
	}
	if !ok {
		return beginRegistration(true)
	}
	menu := m.menuReply(true)
	return Step{
		Next: session.Idle{},
		Replies: []Reply{
			{Text: fmt.Sprintf(textWelcomeBack, mem.FirstName), Keyboard: MenuKeyboard()},
			menu,
		},
	}
}

// beginRegistration discards any active flow and asks for the first field.
func beginRegistration(greet bool) Step {
	var replies []Reply
	if greet {
		replies = append(replies, Reply{Text: textGreeting, Keyboard: MenuKeyboard()})
	}
	replies = append(replies, Reply{Text: session.StepFirstName.Prompt()})
	return Step{Next: session.Registering{Step: session.StepFirstName}, Replies: replies}
}

func (m *Machine) register(recipient int64, reg session.Registering, body string) Step {
	if !reg.Step.Valid() {
		return Step{Next: session.Idle{}, Replies: []Reply{GenericFailure()}}
	}
	if body == "" {
		return keep(reg, Reply{Text: reg.Step.Prompt()})
	}
	reg.Draft[reg.Step] = body
	if !reg.Step.Last() {
		reg.Step++
		return Step{Next: reg, Replies: []Reply{{Text: reg.Step.Prompt()}}}
	}

	d := reg.Draft
	mem := storage.Member{
		RecipientID:   recipient,
		FirstName:     d[session.StepFirstName],
		LastName:      d[session.StepLastName],
		Phone:         d[session.StepPhone],
		Birthday:      d[session.StepBirthday],
		MaritalStatus: d[session.StepMaritalStatus],
		Gender:        d[session.StepGender],
		Email:         d[session.StepEmail],
		Address:       d[session.StepAddress],
		Occupation:    d[session.StepOccupation],
		RegisteredAt:  m.now(),
	}

	welcome := Reply{Text: textWelcomePlain, Keyboard: MenuKeyboard()}
	if path := m.cat.Media.Welcome; path != "" {
		welcome.Media = &kit.Media{Kind: kit.MediaVideo, Path: path, Caption: textWelcomeMedia}
	}
	return Step{
		Next: session.Idle{},
		Replies: []Reply{
			welcome,
			{Text: fmt.Sprintf(textJoined, mem.FirstName), Keyboard: MenuKeyboard()},
		},
		Effect: SaveMember{Member: mem},
		// The draft is dropped even when saving fails; the member starts over.
		OnFailure: &Outcome{
			Next:    session.Idle{},
			Replies: []Reply{{Text: textRegFailed, Keyboard: MenuKeyboard()}},
		},
	}
}
