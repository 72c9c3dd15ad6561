package refdist

import (
	"image"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultReferenceWidthCm is the width of a standard A4 sheet
	DefaultReferenceWidthCm = 21.0
)

// CalibrationScale is the physical-to-pixel scale derived from a known-size reference card
type CalibrationScale struct {
	PixelsPerCentimeter float64
	Calibrated          bool
	// Bounding box of the accepted card in the calibration frame
	CardBox      image.Rectangle
	CalibratedAt time.Time
}

// NewCalibrationScale derives scale from card's bounding box width and its known physical width.
// Only axis-aligned box width is used, so rotated or skewed cards give approximate results
func NewCalibrationScale(cardBox image.Rectangle, referenceWidthCm float64) (CalibrationScale, error) {
	if referenceWidthCm <= 0 {
		return CalibrationScale{}, errors.Wrapf(ErrInvalidScale, "reference width %f cm", referenceWidthCm)
	}
	ppcm := float64(cardBox.Dx()) / referenceWidthCm
	if ppcm <= 0 {
		return CalibrationScale{}, errors.Wrapf(ErrInvalidScale, "card width %d px", cardBox.Dx())
	}
	return CalibrationScale{
		PixelsPerCentimeter: ppcm,
		Calibrated:          true,
		CardBox:             cardBox,
		CalibratedAt:        time.Now(),
	}, nil
}

// Measure converts pixel distance to tagged distance: centimeters when calibrated, pixels otherwise
func (scale CalibrationScale) Measure(pixels float64) Distance {
	if !scale.Calibrated {
		return Pixels(pixels)
	}
	return Centimeters(pixels / scale.PixelsPerCentimeter)
}
