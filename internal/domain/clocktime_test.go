package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseClockTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "24h morning", input: "08:30", want: 510},
		{name: "24h midnight", input: "00:00", want: 0},
		{name: "24h evening", input: "23:59", want: 1439},
		{name: "12h am", input: "8:30 AM", want: 510},
		{name: "12h pm", input: "3:15 PM", want: 915},
		{name: "12h pm lowercase", input: "3:15 pm", want: 915},
		{name: "12h pm no space", input: "3:15PM", want: 915},
		{name: "12h noon", input: "12:00 PM", want: 720},
		{name: "12h midnight", input: "12:00 AM", want: 0},
		{name: "with seconds", input: "08:30:00", want: 510},
		{name: "surrounding spaces", input: " 08:30 ", want: 510},
		{name: "empty", input: "", wantErr: true},
		{name: "spaces only", input: "   ", wantErr: true},
		{name: "garbage", input: "morning-ish", wantErr: true},
		{name: "out of range hour", input: "25:00", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseClockTime(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("ParseClockTime(%q) error = %v, want ErrParse", tt.input, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseClockTime(%q) unexpected error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseClockTime(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestClockTimeOnDate(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, time.March, 12, 17, 45, 3, 0, time.UTC)
	got := ClockTimeOnDate(date, 510)
	want := time.Date(2026, time.March, 12, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ClockTimeOnDate() = %s, want %s", got, want)
	}
}

func TestMinutesBetween(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 12, 8, 0, 0, 0, time.UTC)
	if got := MinutesBetween(base, base.Add(25*time.Minute)); got != 25 {
		t.Fatalf("MinutesBetween() = %d, want 25", got)
	}
	if got := MinutesBetween(base, base.Add(90*time.Second)); got != 1 {
		t.Fatalf("MinutesBetween() partial minute = %d, want 1", got)
	}
	if got := MinutesBetween(base.Add(10*time.Minute), base); got != -10 {
		t.Fatalf("MinutesBetween() negative = %d, want -10", got)
	}
}
