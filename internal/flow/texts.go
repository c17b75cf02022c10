package flow

import (
	"fmt"
	"strings"
	"time"

	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
)

// MenuLabel is the persistent keyboard button that opens the main menu.
const MenuLabel = "📜 Menu"

const (
	textGreeting = "📖 Welcome to Reconciliation Church Of God!\n\n" +
		"This AI Chat Bot will help you stay connected with our church community.\n" +
		"Let's start with your registration."
	textWelcomeBack  = "Welcome back, %s! Please click on the menu to access the church services."
	textWelcomeMedia = "🎉 Welcome to our church family!"
	textWelcomePlain = "Welcome to our church family!"
	textJoined       = "Thanks for Joining Us!, %s! Kindly click on the Menu button to access the church services."
	textRegFailed    = "Registration failed. Please try again."

	textPrayerPrompt = "✝️ Please type your prayer request:"
	textPrayerSaved  = "🙏 Your prayer request has been submitted successfully. We will pray for you!"
	textPrayerFailed = "Failed to save request. Please try again."

	textLesson       = "📖 %s\n\n%s"
	textLessonsDone  = "🎉 You've completed all available lessons! Check back later for new content."
	textQuestion     = "❓ Question %d/%d:\n%s"
	textQuizFinished = "🎉 You've finished the questions for %s. Tap 📖 Bible Study for your next lesson."
	textQuizInactive = "That quiz is no longer active. Tap 📚 Bible Lessons to continue."

	textFallback  = "Please use the menu to select an option."
	textGeneric   = "Something went wrong. Please try again."
	textCancelled = "Cancelled."

	textDonateThanks     = "🙏 Thank you! Your payment confirmation has been received."
	textAttendancePrompt = "Did you attend the service today?"
	textAttendanceYes    = "✅ Thank you! Your attendance has been recorded."
	textAttendanceNo     = "Thanks for letting us know. We hope to see you at the next service!"

	textServiceVideo   = "🎥 Latest service video"
	textNoServiceVideo = "🎥 Service videos are not available right now. Please check back later."

	textNoEvents = "No upcoming events."
)

const mainMenuText = "📜 Main Menu:\n\n" +
	"1. 📖 Bible Study\n" +
	"2. 🙏 Prayer Requests\n" +
	"3. 💵 Donations\n" +
	"4. 📅 Attendance\n" +
	"5. 🎥 Service Videos\n" +
	"6. 📚 Bible Lessons\n" +
	"7. 🗓 Upcoming Events\n"

var checkinReplies = map[string]string{
	"good": "😊 We're glad your day went well! Keep shining.",
	"ok":   "😐 Thanks for sharing. Remember that God is with you every day.",
	"bad":  "😞 We're sorry your day was tough. We are praying for you. Tap 🙏 Prayer Requests if you want us to pray about something.",
}

// Callback tags produced by the bot's buttons.
var (
	TagBible      = kit.Data("bible", "", "")
	TagLessons    = kit.Data("lesson", "start", "")
	TagPrayer     = kit.Data("prayer", "", "")
	TagDonate     = kit.Data("donate", "", "")
	TagAttendance = kit.Data("attendance", "", "")
	TagVideos     = kit.Data("videos", "", "")
	TagRegister   = kit.Data("register", "", "")
	TagEvents     = kit.Data("events", "", "")
	TagQuizNext   = kit.Data("quiz", "next", "")
)

func lessonDoneTag(n int) string { return kit.Data("lesson", "done", fmt.Sprint(n)) }

// CheckinButtons is the evening check-in affordance row.
func CheckinButtons() [][]kit.Button {
	return [][]kit.Button{{
		{Text: "😊 Great", Data: kit.Data("checkin", "good", "")},
		{Text: "😐 Okay", Data: kit.Data("checkin", "ok", "")},
		{Text: "😞 Tough", Data: kit.Data("checkin", "bad", "")},
	}}
}

// MenuKeyboard is the persistent reply keyboard attached to most replies.
func MenuKeyboard() [][]string { return [][]string{{MenuLabel}} }

// FormatEvents renders an upcoming events listing in loc.
func FormatEvents(events []storage.Event, loc *time.Location) string {
	if len(events) == 0 {
		return textNoEvents
	}
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("Upcoming Events:")
	for _, e := range events {
		fmt.Fprintf(&b, "\n%s at %s", e.Name, e.StartsAt.In(loc).Format("Mon 02 Jan 2006 15:04"))
	}
	return b.String()
}

// Commands lists the public slash commands for the platform menu.
func Commands() []kit.BotCommand {
	return []kit.BotCommand{
		{Command: "start", Description: "Start or return to the main menu"},
		{Command: "register", Description: "Register as a member"},
		{Command: "menu", Description: "Show the main menu"},
		{Command: "view_events", Description: "Upcoming church events"},
		{Command: "cancel", Description: "Cancel the current step"},
	}
}
