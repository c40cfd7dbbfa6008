package services

import (
	"testing"
	"time"
)

func TestAddBusinessDays_SkipsWeekends(t *testing.T) {
	friday := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)

	got := AddBusinessDays(friday, 1)
	if got.Weekday() != time.Monday {
		t.Errorf("one business day after Friday = %v, expected Monday", got.Weekday())
	}

	got = AddBusinessDays(friday, 5)
	want := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("five business days after Friday = %v, expected %v", got, want)
	}
}

func TestAddBusinessDays_Zero(t *testing.T) {
	start := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) // a Saturday
	if got := AddBusinessDays(start, 0); !got.Equal(start) {
		t.Errorf("zero business days should return the start, got %v", got)
	}
}

func TestBusinessDaysUntil(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	friday := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	nextMonday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	if d := BusinessDaysUntil(monday, friday); d != 4 {
		t.Errorf("Monday to Friday = %d, expected 4", d)
	}
	if d := BusinessDaysUntil(friday, nextMonday); d != 1 {
		t.Errorf("Friday to Monday = %d, expected 1", d)
	}
	if d := BusinessDaysUntil(friday, monday); d != 0 {
		t.Errorf("backwards range = %d, expected 0", d)
	}
}
