package types

import "fmt"

// Width is the number of points on each digital terminal.
const Width = 8

const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// Vector holds one 0/1 value per point; index 0 is point 1.
type Vector [Width]int

type Point struct {
	Value int    `json:"value"`
	State string `json:"state"`
}

// Points labels every position as <prefix>_<n>, n starting at 1.
func (v Vector) Points(prefix string) map[string]Point {
	out := make(map[string]Point, Width)
	for i, x := range v {
		state := StateOff
		if x == 1 {
			state = StateOn
		}
		out[fmt.Sprintf("%s_%d", prefix, i+1)] = Point{Value: x, State: state}
	}
	return out
}

func (v Vector) Slice() []int {
	return append([]int(nil), v[:]...)
}
