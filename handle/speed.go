package handle

import "github.com/samber/lo"

// Speed levels shown to the user while long-pressing.
const (
	MinLevel = 1
	MaxLevel = 4
)

// rates maps a speed level to the physically applied rate. The level-4 label reads "4x"
// but plays at 2.5x; higher physical rates stutter on typical feed encodes.
var rates = [MaxLevel + 1]float32{
	1: 1.0,
	2: 2.0,
	3: 2.2,
	4: 2.5,
}

// ClampLevel bounds level to MinLevel..MaxLevel.
func ClampLevel(level int) int {
	return lo.Clamp(level, MinLevel, MaxLevel)
}

// RateFor returns the effective playback rate of level, clamped to the table.
func RateFor(level int) float32 {
	return rates[ClampLevel(level)]
}
