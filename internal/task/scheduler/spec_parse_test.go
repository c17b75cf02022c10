package scheduler

import (
	"testing"
	"time"
)

func TestDailySpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		daily Daily
		want  string
	}{
		{name: "every day", daily: Daily{Hour: 7}, want: "0 7 * * *"},
		{name: "evening", daily: Daily{Hour: 19, Minute: 30}, want: "30 19 * * *"},
		{name: "weekdays sorted", daily: Daily{Hour: 8, Days: []time.Weekday{time.Friday, time.Monday}}, want: "0 8 * * 1,5"},
		{name: "all seven collapse", daily: Daily{Hour: 6, Days: []time.Weekday{0, 1, 2, 3, 4, 5, 6}}, want: "0 6 * * *"},
		{name: "duplicates", daily: Daily{Hour: 9, Days: []time.Weekday{time.Sunday, time.Sunday}}, want: "0 9 * * 0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.daily.Spec()
			if err != nil {
				t.Fatalf("Spec() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Spec() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDailySpecInvalid(t *testing.T) {
	t.Parallel()
	for _, d := range []Daily{{Hour: 24}, {Minute: 60}, {Hour: -1}, {Days: []time.Weekday{9}}} {
		if _, err := d.Spec(); err == nil {
			t.Fatalf("expected error for %+v", d)
		}
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	h, m, err := ParseClock("23:15")
	if err != nil {
		t.Fatalf("ParseClock error: %v", err)
	}
	if h != 23 || m != 15 {
		t.Fatalf("unexpected result: %d:%d", h, m)
	}
	for _, bad := range []string{"24:00", "7", "07:60", "aa:bb"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	t.Parallel()
	got, err := ParseWeekdays([]string{"Mon", "friday", " sun "})
	if err != nil {
		t.Fatalf("ParseWeekdays error: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Friday, time.Sunday}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if days, err := ParseWeekdays([]string{"*"}); err != nil || days != nil {
		t.Fatalf("wildcard = %v, %v", days, err)
	}
	if _, err := ParseWeekdays([]string{"funday"}); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}

func TestIntervalScheduleFirstActivation(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &intervalSchedule{every: cronEvery(time.Minute), delay: 0}
	if got := s.Next(base); !got.Equal(base) {
		t.Fatalf("first Next = %v, want %v", got, base)
	}
	if got := s.Next(base); !got.Equal(base.Add(time.Minute)) {
		t.Fatalf("second Next = %v", got)
	}

	d := &intervalSchedule{every: cronEvery(5 * time.Minute), delay: 10 * time.Second}
	if got := d.Next(base); !got.Equal(base.Add(10 * time.Second)) {
		t.Fatalf("delayed first Next = %v", got)
	}
}
