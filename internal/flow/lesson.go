package flow

import (
	"context"
	"fmt"
	"strconv"

	"churchbot/internal/session"
	kit "churchbot/internal/transport"
)

// startLesson shows the next unread lesson. Any active flow is dropped.
func (m *Machine) startLesson(ctx context.Context, recipient int64, st session.State) Step {
	p, _, err := m.facts.GetProgress(ctx, recipient)
	if err != nil {
		return failure(st)
	}
	next := p.Next()
	if next < 0 {
		next = 0
	}
	lesson, ok := m.cat.Lesson(next)
	if !ok {
		return Step{Next: session.Idle{}, Replies: []Reply{{Text: textLessonsDone, Keyboard: MenuKeyboard()}}}
	}
	return Step{
		Next: session.Idle{},
		Replies: []Reply{{
			Text:   fmt.Sprintf(textLesson, lesson.Title, lesson.Body),
			Inline: [][]kit.Button{{{Text: "I've finished reading", Data: lessonDoneTag(next)}}},
		}},
	}
}

func (m *Machine) completeLesson(st session.State, payload string) Step {
	n, err := strconv.Atoi(payload)
	if err != nil {
		return failure(st)
	}
	lesson, ok := m.cat.Lesson(n)
	if !ok {
		return failure(st)
	}

	step := Step{Effect: CompleteLesson{Lesson: n, At: m.now()}}
	if len(lesson.Questions) == 0 {
		step.Next = session.Idle{}
		step.Replies = []Reply{quizFinished(lesson.Title)}
		return step
	}
	quiz := session.LessonQuiz{Lesson: n, Title: lesson.Title, Questions: lesson.Questions}
	step.Next = quiz
	step.Replies = []Reply{questionReply(quiz)}
	return step
}

func (m *Machine) nextQuestion(st session.State) Step {
	quiz, ok := st.(session.LessonQuiz)
	if !ok {
		return keep(st, Reply{Text: textQuizInactive, Keyboard: MenuKeyboard()})
	}
	quiz.Cursor++
	if quiz.Cursor >= len(quiz.Questions) {
		return Step{Next: session.Idle{}, Replies: []Reply{quizFinished(quiz.Title)}}
	}
	return Step{Next: quiz, Replies: []Reply{questionReply(quiz)}}
}

func questionReply(q session.LessonQuiz) Reply {
	return Reply{
		Text:   fmt.Sprintf(textQuestion, q.Cursor+1, len(q.Questions), q.Questions[q.Cursor]),
		Inline: [][]kit.Button{{{Text: "Next Question", Data: TagQuizNext}}},
	}
}

func quizFinished(title string) Reply {
	return Reply{Text: fmt.Sprintf(textQuizFinished, title), Keyboard: MenuKeyboard()}
}
