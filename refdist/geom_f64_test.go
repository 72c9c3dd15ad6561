package refdist

import (
	"image"
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := NewPoint(341, 264)
	p2 := NewPoint(421, 427)
	correnctAnswer := 181.57367
	answer := euclideanDistance(p1, p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestPixelDistance(t *testing.T) {
	answer := PixelDistance(image.Pt(0, 0), image.Pt(30, 40))
	if math.Abs(answer-50.0) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, 50.0)
	}
}
