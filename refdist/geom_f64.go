package refdist

import (
	"image"

	"gonum.org/v1/gonum/spatial/r2"
)

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func euclideanDistance(p1, p2 Point) float64 {
	return r2.Norm(r2.Sub(p1.vec(), p2.vec()))
}

// PixelDistance returns euclidean distance between two pixel positions
func PixelDistance(p1, p2 image.Point) float64 {
	return euclideanDistance(NewPointFrom(p1), NewPointFrom(p2))
}
