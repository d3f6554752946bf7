package frequency

import (
	"testing"
	"time"
)

func TestParseDaysOnly(t *testing.T) {
	r, err := Parse("monday,friday")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Friday}
	if len(r.Days) != len(want) {
		t.Fatalf("Days len = %d, want %d", len(r.Days), len(want))
	}
	for i, d := range r.Days {
		if d != want[i] {
			t.Errorf("Days[%d] = %v, want %v", i, d, want[i])
		}
	}
	if r.At != "" {
		t.Errorf("At = %q, want empty", r.At)
	}
}

func TestParseWithTime(t *testing.T) {
	r, err := Parse("saturday,sunday@09:30")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if r.At != "09:30" {
		t.Errorf("At = %q, want %q", r.At, "09:30")
	}
	if len(r.Days) != 2 {
		t.Errorf("Days len = %d, want 2", len(r.Days))
	}
}

func TestParseNormalizesCaseAndSpace(t *testing.T) {
	r, err := Parse(" Monday , FRIDAY ")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(r.Days) != 2 || r.Days[0] != time.Monday || r.Days[1] != time.Friday {
		t.Errorf("Days = %v, want [Monday Friday]", r.Days)
	}
}

func TestParseDeduplicates(t *testing.T) {
	r, err := Parse("monday,monday,friday")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(r.Days) != 2 {
		t.Errorf("Days len = %d, want 2", len(r.Days))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"@18:00",
		"funday",
		"monday@25:99",
		",,,",
	}

	for _, input := range tests {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should error", input)
		}
	}
}

func TestDueOn(t *testing.T) {
	r, err := Parse("tuesday,thursday")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !r.DueOn(time.Tuesday) {
		t.Error("DueOn(Tuesday) = false, want true")
	}
	if r.DueOn(time.Wednesday) {
		t.Error("DueOn(Wednesday) = true, want false")
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"monday",
		"monday,friday",
		"saturday,sunday@09:30",
		"wednesday@07:00",
	}

	for _, input := range inputs {
		r, err := Parse(input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", input, err)
			continue
		}
		if got := r.String(); got != input {
			t.Errorf("String() = %q, want %q", got, input)
		}
	}
}

func TestDescribe(t *testing.T) {
	r, _ := Parse("monday,friday@18:00")
	got := r.Describe()
	want := "Repeats on Mon, Fri at 18:00"
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
