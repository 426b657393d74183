package curve

import (
	"math"
)

// Curve is the deterministic XP/level mapping. The cost to advance from
// level i to i+1 is floor(Base * Multiplier^(i-1)); cumulative totals are
// clamped at MaxXP. All methods are pure.
type Curve struct {
	Base       int64
	Multiplier float64
	MaxLevel   int
	MaxXP      int64
}

func New(base int64, multiplier float64, maxLevel int, maxXP int64) Curve {
	return Curve{Base: base, Multiplier: multiplier, MaxLevel: maxLevel, MaxXP: maxXP}
}

// stepCost is the XP needed to advance from level to level+1, truncated
// to an integer before any summing. Costs at or beyond MaxXP saturate.
func (c Curve) stepCost(level int) int64 {
	cost := float64(c.Base) * math.Pow(c.Multiplier, float64(level-1))
	if cost >= float64(c.MaxXP) {
		return c.MaxXP
	}
	return int64(cost)
}

// XPForLevel returns the total cumulative XP needed to reach level,
// starting from level 1 (XPForLevel(1) == 0). Levels above MaxLevel are
// clamped; the running sum short-circuits at MaxXP.
func (c Curve) XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > c.MaxLevel {
		level = c.MaxLevel
	}

	var total int64
	for i := 1; i < level; i++ {
		cost := c.stepCost(i)
		if total >= c.MaxXP-cost {
			return c.MaxXP
		}
		total += cost
	}
	return total
}

// LevelFromXP returns the largest level whose cumulative requirement does
// not exceed xp. Negative xp is treated as 0; xp at MaxXP maps to MaxLevel.
func (c Curve) LevelFromXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	if xp >= c.MaxXP {
		return c.MaxLevel
	}

	level := 1
	var accumulated int64
	for level < c.MaxLevel {
		needed := c.stepCost(level)
		if accumulated > xp-needed {
			break
		}
		accumulated += needed
		if accumulated >= c.MaxXP {
			return c.MaxLevel
		}
		level++
	}
	return level
}

// Progress reports the level for xp together with the XP earned within
// that level and the XP span of the level. At MaxLevel both are zero.
func (c Curve) Progress(xp int64) (level int, progressXP, neededXP int64) {
	level = c.LevelFromXP(xp)
	if level >= c.MaxLevel {
		return level, 0, 0
	}
	levelFloor := c.XPForLevel(level)
	progressXP = xp - levelFloor
	neededXP = c.XPForLevel(level+1) - levelFloor
	return level, progressXP, neededXP
}
