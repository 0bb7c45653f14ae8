package reward

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Scaling != ScalingFlat {
		t.Errorf("Scaling = %q, want flat", p.Scaling)
	}
	if p.PPCPerUnit != 100 {
		t.Errorf("PPCPerUnit = %d, want 100", p.PPCPerUnit)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name                   string
		policy                 Policy
		ppc, hours, totalHours int64
		want                   int64
	}{
		{"flat one unit", DefaultPolicy(), 100, 2, 5, 1},
		{"flat ignores hours", DefaultPolicy(), 100, 3, 5, 1},
		{"flat truncates", DefaultPolicy(), 199, 1, 1, 1},
		{"flat below one unit", DefaultPolicy(), 99, 1, 1, 0},
		{"per hour", Policy{ScalingPerHour, 100}, 100, 3, 5, 3},
		{"hours share", Policy{ScalingHoursShare, 10}, 100, 2, 5, 4},
		{"hours share zero total", Policy{ScalingHoursShare, 10}, 100, 2, 0, 0},
		{"no hours", DefaultPolicy(), 100, 0, 5, 0},
		{"negative ppc", DefaultPolicy(), -100, 1, 1, 0},
		{"custom ratio", Policy{ScalingFlat, 25}, 100, 1, 1, 4},
		{"empty scaling is flat", Policy{"", 100}, 300, 1, 1, 3},
		{"per hour wide product", Policy{ScalingPerHour, 1_000_000}, math.MaxInt64, 1_000, 1, math.MaxInt64 / 1_000},
		{"hours share wide product", Policy{ScalingHoursShare, 1}, math.MaxInt64, 3, 4, math.MaxInt64/4*3 + 2},
		{"hours share wide divisor", Policy{ScalingHoursShare, math.MaxInt64}, math.MaxInt64, 1, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.Amount(tt.ppc, tt.hours, tt.totalHours)
			if err != nil {
				t.Fatalf("Amount(%d, %d, %d) error: %v", tt.ppc, tt.hours, tt.totalHours, err)
			}
			if got != tt.want {
				t.Errorf("Amount(%d, %d, %d) = %d, want %d", tt.ppc, tt.hours, tt.totalHours, got, tt.want)
			}
		})
	}
}

func TestAmount_Overflow(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		hours  int64
	}{
		{"per hour", Policy{ScalingPerHour, 1}, 2},
		{"per hour large", Policy{ScalingPerHour, 10}, math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.policy.Amount(math.MaxInt64, tt.hours, tt.hours); !errors.Is(err, ErrOverflow) {
				t.Errorf("Amount() error = %v, want ErrOverflow", err)
			}
		})
	}
}

func TestParseScaling(t *testing.T) {
	for in, want := range map[string]Scaling{
		"flat":        ScalingFlat,
		" PER_HOUR ":  ScalingPerHour,
		"hours_share": ScalingHoursShare,
		"":            ScalingFlat,
	} {
		got, err := ParseScaling(in)
		if err != nil {
			t.Errorf("ParseScaling(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseScaling(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseScaling("quadratic"); err == nil {
		t.Error("ParseScaling(quadratic) should fail")
	}
}

func TestValidate_Rejects(t *testing.T) {
	if err := (Policy{ScalingFlat, 0}).Validate(); err == nil {
		t.Error("zero ppc_per_unit should be rejected")
	}
	if err := (Policy{"bogus", 100}).Validate(); err == nil {
		t.Error("unknown scaling should be rejected")
	}
}
