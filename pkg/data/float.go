package data

import "math"

func mathFloatBits(f float64) uint64       { return math.Float64bits(f) }
func mathFloatFromBits(u uint64) float64    { return math.Float64frombits(u) }
