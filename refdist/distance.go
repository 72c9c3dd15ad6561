package refdist

import (
	"fmt"

	"github.com/pkg/errors"
)

// Unit is a unit of measured distance
type Unit uint8

const (
	// UnitPixels is used while no calibration has been done
	UnitPixels Unit = iota
	// UnitCentimeters is used once pixels-per-centimeter scale is known
	UnitCentimeters
)

func (u Unit) String() string {
	switch u {
	case UnitCentimeters:
		return "cm"
	default:
		return "px"
	}
}

// MarshalText makes unit human-readable in JSON reports
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Unit) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cm":
		*u = UnitCentimeters
	case "px":
		*u = UnitPixels
	default:
		return errors.Errorf("unknown distance unit %q", text)
	}
	return nil
}

// Distance is a scalar tagged with its unit.
// Consumers never have to guess whether a value is in pixels or centimeters.
type Distance struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func Pixels(v float64) Distance {
	return Distance{Value: v, Unit: UnitPixels}
}

func Centimeters(v float64) Distance {
	return Distance{Value: v, Unit: UnitCentimeters}
}

// IsCalibrated reports whether the value is a physical length
func (d Distance) IsCalibrated() bool {
	return d.Unit == UnitCentimeters
}

func (d Distance) String() string {
	return fmt.Sprintf("%.1f %s", d.Value, d.Unit)
}
