package vision

import (
	"github.com/LdDl/refdist-go/refdist"
	"gocv.io/x/gocv"
)

// Detector finds colored objects of every configured band in a frame
type Detector struct {
	table     refdist.ColorTable
	segmenter *Segmenter
	extractor *ContourExtractor
}

// NewDetector creates detector over the given color table
func NewDetector(table refdist.ColorTable, segmenter *Segmenter, extractor *ContourExtractor) *Detector {
	return &Detector{
		table:     table,
		segmenter: segmenter,
		extractor: extractor,
	}
}

// NewDetectorDefault creates detector with default bands, 5x5 cleanup kernel and 800 px^2 area cutoff
func NewDetectorDefault() *Detector {
	return NewDetector(refdist.DefaultColorTable(), NewSegmenter(DefaultKernelSize), NewContourExtractor(DefaultMinContourArea))
}

// Table returns color table of the detector
func (d *Detector) Table() refdist.ColorTable {
	return d.table
}

// DetectAll returns descriptors over all bands in table order. Within a band contour discovery order is kept
func (d *Detector) DetectAll(frame gocv.Mat) []refdist.ObjectDescriptor {
	hsv := d.segmenter.ToHSV(frame)
	defer hsv.Close()
	objects := make([]refdist.ObjectDescriptor, 0)
	for _, band := range d.table.Bands() {
		objects = append(objects, d.detectBand(hsv, band)...)
	}
	return objects
}

// DetectColor returns descriptors of a single band. Unknown band gives empty result
func (d *Detector) DetectColor(frame gocv.Mat, name string) []refdist.ObjectDescriptor {
	band, ok := d.table.Lookup(name)
	if !ok {
		return []refdist.ObjectDescriptor{}
	}
	hsv := d.segmenter.ToHSV(frame)
	defer hsv.Close()
	return d.detectBand(hsv, band)
}

func (d *Detector) detectBand(hsv gocv.Mat, band refdist.ColorBand) []refdist.ObjectDescriptor {
	mask := d.segmenter.Segment(hsv, band)
	defer mask.Close()
	return d.extractor.Extract(mask, band.Name)
}
