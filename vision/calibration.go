package vision

import (
	"image"

	"github.com/LdDl/refdist-go/refdist"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CalibratorConfig holds tunables of reference card search
type CalibratorConfig struct {
	ReferenceWidthCm float64 // Physical width of the card (default 21.0, A4 sheet)
	BlurKernel       int     // Gaussian blur kernel side (default 5)
	Threshold        float32 // Global binarization threshold (default 127)
	MinCardArea      float64 // Coarse cutoff for card candidates, px^2 (default 10000)
	EpsilonRatio     float64 // Polygon approximation tolerance as fraction of perimeter (default 0.02)
}

// DefaultCalibratorConfig returns defaults for an A4 sheet
func DefaultCalibratorConfig() CalibratorConfig {
	return CalibratorConfig{
		ReferenceWidthCm: refdist.DefaultReferenceWidthCm,
		BlurKernel:       5,
		Threshold:        127,
		MinCardArea:      10000,
		EpsilonRatio:     0.02,
	}
}

// Calibrator derives pixels-per-centimeter scale from a rectangular card of known width
type Calibrator struct {
	config CalibratorConfig
}

// NewCalibrator creates calibrator
func NewCalibrator(cfg CalibratorConfig) *Calibrator {
	return &Calibrator{
		config: cfg,
	}
}

// Config returns calibrator settings
func (c *Calibrator) Config() CalibratorConfig {
	return c.config
}

// Estimate searches the frame for the reference card and computes scale from its bounding box width.
// The first large contour approximated by exactly 4 vertices is accepted, no best-match search is done.
// On failure ErrReferenceCardNotFound is returned; the operation has no side effects and may be retried
func (c *Calibrator) Estimate(frame gocv.Mat) (refdist.CalibrationScale, error) {
	binary := c.binarize(frame)
	defer binary.Close()

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	cardBox, ok := c.firstQuadrilateral(contours)
	if !ok {
		return refdist.CalibrationScale{}, refdist.ErrReferenceCardNotFound
	}
	scale, err := refdist.NewCalibrationScale(cardBox, c.config.ReferenceWidthCm)
	if err != nil {
		return refdist.CalibrationScale{}, errors.Wrap(err, "can't derive scale from reference card")
	}
	return scale, nil
}

func (c *Calibrator) binarize(frame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	// Blur to reduce noise
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{c.config.BlurKernel, c.config.BlurKernel}, 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	gocv.Threshold(blurred, &binary, c.config.Threshold, 255, gocv.ThresholdBinary)
	return binary
}

func (c *Calibrator) firstQuadrilateral(contours gocv.PointsVector) (image.Rectangle, bool) {
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) <= c.config.MinCardArea {
			continue
		}
		epsilon := c.config.EpsilonRatio * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		vertices := approx.Size()
		approx.Close()
		if vertices == 4 {
			return gocv.BoundingRect(contour), true
		}
	}
	return image.Rectangle{}, false
}
