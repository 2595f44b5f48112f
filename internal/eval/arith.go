package eval

import "math"

func floatMod(a, b float64) float64 { return math.Mod(a, b) }
func floatPow(a, b float64) float64 { return math.Pow(a, b) }
