// Package reward converts the validator-assigned ppc metric into reward
// token units. The scaling is configuration, not a constant: it decides how
// much each worker with reported hours receives on validation.
package reward

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrOverflow is returned when a reward amount does not fit in an int64.
var ErrOverflow = errors.New("reward amount overflows int64")

// Scaling selects how a worker's share is derived from ppc.
type Scaling string

const (
	// ScalingFlat mints ppc / PPCPerUnit to every worker with hours > 0.
	ScalingFlat Scaling = "flat"
	// ScalingPerHour mints ppc * hours / PPCPerUnit.
	ScalingPerHour Scaling = "per_hour"
	// ScalingHoursShare splits ppc / PPCPerUnit pro rata by hours.
	ScalingHoursShare Scaling = "hours_share"
)

// DefaultPPCPerUnit is 1 reward unit per 100 ppc points.
const DefaultPPCPerUnit int64 = 100

// Policy is the configured reward formula.
type Policy struct {
	Scaling    Scaling `toml:"scaling"`
	PPCPerUnit int64   `toml:"ppc_per_unit"`
}

// DefaultPolicy returns the flat 1-unit-per-100-ppc policy.
func DefaultPolicy() Policy {
	return Policy{Scaling: ScalingFlat, PPCPerUnit: DefaultPPCPerUnit}
}

// ParseScaling normalizes a scaling name.
func ParseScaling(s string) (Scaling, error) {
	switch sc := Scaling(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScalingFlat, ScalingPerHour, ScalingHoursShare:
		return sc, nil
	case "":
		return ScalingFlat, nil
	default:
		return "", fmt.Errorf("unknown reward scaling %q (want flat, per_hour or hours_share)", s)
	}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if _, err := ParseScaling(string(p.Scaling)); err != nil {
		return err
	}
	if p.PPCPerUnit <= 0 {
		return fmt.Errorf("ppc_per_unit must be positive, got %d", p.PPCPerUnit)
	}
	return nil
}

// Amount returns the reward units for one worker. Integer division
// truncates; a zero result means nothing is minted for that worker.
// Products are computed exactly, so only a result that itself exceeds
// int64 fails, with ErrOverflow.
func (p Policy) Amount(ppc, hours, totalHours int64) (int64, error) {
	if ppc <= 0 || hours <= 0 || p.PPCPerUnit <= 0 {
		return 0, nil
	}
	scaling, err := ParseScaling(string(p.Scaling))
	if err != nil {
		return 0, nil
	}
	switch scaling {
	case ScalingPerHour:
		return quotient(ppc, hours, p.PPCPerUnit, 1)
	case ScalingHoursShare:
		if totalHours <= 0 {
			return 0, nil
		}
		return quotient(ppc, hours, p.PPCPerUnit, totalHours)
	default:
		return ppc / p.PPCPerUnit, nil
	}
}

// quotient returns a*b / (c*d) truncated.
func quotient(a, b, c, d int64) (int64, error) {
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	den := new(big.Int).Mul(big.NewInt(c), big.NewInt(d))
	q := num.Quo(num, den)
	if !q.IsInt64() {
		return 0, ErrOverflow
	}
	return q.Int64(), nil
}
