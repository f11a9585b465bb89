package features

import (
	"errors"
	"testing"

	"github.com/ayusman/fingerspell/internal/detector"
)

func TestPolicy_IsNothing(t *testing.T) {
	tests := []struct {
		name    string
		nothing string
		label   string
		want    bool
	}{
		{"default sentinel", "", "nothing", true},
		{"default sentinel any case", "", "Nothing", true},
		{"other label", "", "A", false},
		{"custom sentinel", "blank", "BLANK", true},
		{"custom sentinel ignores default", "blank", "nothing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{NothingLabel: tt.nothing}
			if got := p.IsNothing(tt.label); got != tt.want {
				t.Errorf("IsNothing(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestPolicy_Apply(t *testing.T) {
	p := Policy{}
	hand := detector.LetterALandmarks()
	static := detector.StaticHandLandmarks()

	tests := []struct {
		name     string
		label    string
		hand     *detector.HandLandmarks
		outcome  Outcome
		zeroes   bool
		cause    error
		wantsVec bool
	}{
		{"hand under a letter", "A", &hand, OutcomeRow, false, nil, true},
		{"hand under nothing is kept", "nothing", &hand, OutcomeRow, false, nil, true},
		{"no hand under nothing is zero-filled", "nothing", nil, OutcomeZeroFill, true, ErrNoDetection, true},
		{"no hand under a letter is skipped", "A", nil, OutcomeSkip, false, ErrNoDetection, false},
		{"degenerate under nothing is zero-filled", "Nothing", &static, OutcomeZeroFill, true, ErrDegenerateGeometry, true},
		{"degenerate under a letter is skipped", "B", &static, OutcomeSkip, false, ErrDegenerateGeometry, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, outcome, err := p.Apply(tt.label, tt.hand)

			if outcome != tt.outcome {
				t.Errorf("outcome = %v, want %v", outcome, tt.outcome)
			}
			if tt.cause == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("error = %v, want %v", err, tt.cause)
			}
			if !tt.wantsVec {
				if v != nil {
					t.Errorf("expected no vector, got %v", v)
				}
				return
			}
			if len(v) != Width {
				t.Fatalf("len = %d, want %d", len(v), Width)
			}
			if tt.zeroes {
				for i, f := range v {
					if f != 0 {
						t.Fatalf("feature %d = %v, want 0", i, f)
					}
				}
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeRow:      "row",
		OutcomeZeroFill: "zero-fill",
		OutcomeSkip:     "skip",
		Outcome(99):     "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
