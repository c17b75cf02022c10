// Package session keeps the in-memory conversation state of each recipient.
// Sessions are volatile: a restart abandons every in-flight flow.
package session

// State is the conversation state of one recipient. The concrete types
// below are the only implementations.
type State interface {
	isState()
	Name() string
}

// Idle means no flow is active.
type Idle struct{}

// RegStep is a registration field, in prompt order.
type RegStep int

const (
	StepFirstName RegStep = iota
	StepLastName
	StepPhone
	StepBirthday
	StepMaritalStatus
	StepGender
	StepEmail
	StepAddress
	StepOccupation

	regStepCount
)

var regSteps = [...]struct {
	name   string
	prompt string
}{
	StepFirstName:     {"first_name", "Please enter your first name:"},
	StepLastName:      {"last_name", "Please enter your last name:"},
	StepPhone:         {"phone", "Please enter your phone number:"},
	StepBirthday:      {"birthday", "Please enter your Day and Month of birth DD-MM:"},
	StepMaritalStatus: {"marital_status", "Please enter your marital status:"},
	StepGender:        {"gender", "Please enter your Gender Male/Female:"},
	StepEmail:         {"email", "Please enter your email address:"},
	StepAddress:       {"address", "Please enter your address:"},
	StepOccupation:    {"occupation", "Please enter your occupation:"},
}

func (s RegStep) Valid() bool { return s >= StepFirstName && s < regStepCount }

func (s RegStep) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return regSteps[s].name
}

func (s RegStep) Prompt() string {
	if !s.Valid() {
		return ""
	}
	return regSteps[s].prompt
}

// Last reports whether s is the final registration step.
func (s RegStep) Last() bool { return s == regStepCount-1 }

// Draft holds the answers collected so far, indexed by RegStep.
type Draft [regStepCount]string

// Registering collects member details one prompt at a time.
type Registering struct {
	Step  RegStep
	Draft Draft
}

// AwaitingPrayer waits for the prayer request text.
type AwaitingPrayer struct{}

// LessonQuiz walks the questions of a completed lesson.
type LessonQuiz struct {
	Lesson    int
	Title     string
	Questions []string
	Cursor    int
}

func (Idle) isState()           {}
func (Registering) isState()    {}
func (AwaitingPrayer) isState() {}
func (LessonQuiz) isState()     {}

func (Idle) Name() string           { return "idle" }
func (Registering) Name() string    { return "registering" }
func (AwaitingPrayer) Name() string { return "awaiting_prayer" }
func (LessonQuiz) Name() string     { return "lesson_quiz" }

// IsIdle reports whether st represents "no active flow". Nil counts as idle.
func IsIdle(st State) bool {
	if st == nil {
		return true
	}
	_, ok := st.(Idle)
	return ok
}
