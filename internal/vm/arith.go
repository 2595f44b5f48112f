package vm

import "math"

// floatMod/floatPow mirror internal/eval's arith.go helpers so % and **
// behave identically on both backends (spec §8 property 2).
func floatMod(a, b float64) float64 { return math.Mod(a, b) }
func floatPow(a, b float64) float64 { return math.Pow(a, b) }
