package plenum

import (
	"testing"
	"time"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		t.Fatalf("Invalid test date %q: %v", s, err)
	}
	return d
}

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		date string
		want Weekday
	}{
		{"2024-06-10", Monday},
		{"2024-06-12", Wednesday},
		{"2024-06-15", Saturday},
		{"2024-06-16", Sunday},
	}

	for _, tt := range tests {
		if got := WeekdayOf(date(t, tt.date)); got != tt.want {
			t.Errorf("WeekdayOf(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestWeekday_TimeRoundTrip(t *testing.T) {
	for w := Monday; w <= Sunday; w++ {
		d := date(t, "2024-06-10").AddDate(0, 0, int(w))
		if d.Weekday() != w.Time() {
			t.Errorf("Weekday %d maps to %v, date has %v", w, w.Time(), d.Weekday())
		}
	}
}

func TestWeekday_Valid(t *testing.T) {
	if Weekday(-1).Valid() || Weekday(7).Valid() {
		t.Error("Expected out of range weekdays to be invalid")
	}
	if !Sunday.Valid() {
		t.Error("Expected Sunday to be valid")
	}
	if got := Weekday(9).String(); got != "Weekday(9)" {
		t.Errorf("Unexpected string for invalid weekday: %s", got)
	}
}

func TestComputeWindow_Examples(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		weekday   Weekday
		wantNext  string
		wantLast  string
	}{
		{"before meeting day", "2024-06-10", Wednesday, "2024-06-12", "2024-06-05"},
		{"after meeting day", "2024-06-14", Wednesday, "2024-06-19", "2024-06-12"},
		{"on meeting day", "2024-06-12", Wednesday, "2024-06-19", "2024-06-12"},
		{"sunday meeting from monday", "2024-06-10", Sunday, "2024-06-16", "2024-06-09"},
		{"monday meeting from sunday", "2024-06-16", Monday, "2024-06-17", "2024-06-10"},
		{"across year end", "2024-12-30", Thursday, "2025-01-02", "2024-12-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ComputeWindow(date(t, tt.reference), tt.weekday)
			if got := FormatDate(w.Next); got != tt.wantNext {
				t.Errorf("Next = %s, want %s", got, tt.wantNext)
			}
			if got := FormatDate(w.Last); got != tt.wantLast {
				t.Errorf("Last = %s, want %s", got, tt.wantLast)
			}
		})
	}
}

func TestComputeWindow_Properties(t *testing.T) {
	start := date(t, "2024-02-20")
	for day := 0; day < 21; day++ {
		ref := start.AddDate(0, 0, day)
		for w := Monday; w <= Sunday; w++ {
			win := ComputeWindow(ref, w)

			if WeekdayOf(win.Next) != w {
				t.Errorf("ref=%s w=%v: next %s has wrong weekday", FormatDate(ref), w, FormatDate(win.Next))
			}
			if WeekdayOf(win.Last) != w {
				t.Errorf("ref=%s w=%v: last %s has wrong weekday", FormatDate(ref), w, FormatDate(win.Last))
			}

			ahead := int(win.Next.Sub(ref).Hours() / 24)
			if ahead < 1 || ahead > 7 {
				t.Errorf("ref=%s w=%v: next is %d days ahead", FormatDate(ref), w, ahead)
			}
			behind := int(ref.Sub(win.Last).Hours() / 24)
			if behind < 0 || behind > 7 {
				t.Errorf("ref=%s w=%v: last is %d days behind", FormatDate(ref), w, behind)
			}
			if WeekdayOf(ref) == w && !win.Last.Equal(ref) {
				t.Errorf("ref=%s w=%v: expected last to equal the reference day", FormatDate(ref), w)
			}
		}
	}
}

func TestComputeWindow_TruncatesTimeOfDay(t *testing.T) {
	ref := time.Date(2024, 6, 10, 23, 59, 0, 0, time.UTC)
	w := ComputeWindow(ref, Monday)

	if w.Reference.Hour() != 0 || w.Reference.Minute() != 0 {
		t.Errorf("Expected reference at midnight, got %v", w.Reference)
	}
	if FormatDate(w.Next) != "2024-06-17" {
		t.Errorf("Expected next 2024-06-17, got %s", FormatDate(w.Next))
	}
}

func TestOccurrences(t *testing.T) {
	dates, err := Occurrences(date(t, "2024-06-12"), Wednesday, 3)
	if err != nil {
		t.Fatalf("Occurrences failed: %v", err)
	}

	want := []string{"2024-06-19", "2024-06-26", "2024-07-03"}
	if len(dates) != len(want) {
		t.Fatalf("Expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if got := FormatDate(dates[i]); got != want[i] {
			t.Errorf("Occurrence %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestOccurrences_Invalid(t *testing.T) {
	dates, err := Occurrences(date(t, "2024-06-12"), Wednesday, 0)
	if err != nil || dates != nil {
		t.Errorf("Expected no dates and no error for zero count, got %v, %v", dates, err)
	}

	if _, err := Occurrences(date(t, "2024-06-12"), Weekday(8), 2); err == nil {
		t.Error("Expected error for invalid weekday")
	}
}

func TestRecurrenceConfig(t *testing.T) {
	cfg := RecurrenceConfig{Weekday: Tuesday, Namespace: "plenum"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Unexpected validation error: %v", err)
	}
	if got := cfg.PageID(date(t, "2024-06-04")); got != "plenum:2024-06-04" {
		t.Errorf("Unexpected page id: %s", got)
	}

	if err := (RecurrenceConfig{Weekday: 7, Namespace: "plenum"}).Validate(); err == nil {
		t.Error("Expected error for invalid weekday")
	}
	if err := (RecurrenceConfig{Weekday: Monday, Namespace: "  "}).Validate(); err == nil {
		t.Error("Expected error for blank namespace")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-17", time.UTC)
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.June || d.Day() != 17 {
		t.Errorf("Unexpected date: %v", d)
	}
	if _, err := ParseDate("17.06.2024", nil); err == nil {
		t.Error("Expected error for non ISO date")
	}
}
