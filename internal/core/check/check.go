// Package check evaluates 2d6 target numbers for combat and morale rolls.
package check

// Bounds for a roll-over target. A target of MaxTarget can never be met.
const (
	MinTarget = 2
	MaxTarget = 13
)

// ClampTarget bounds a modified roll-over target to [MinTarget, MaxTarget].
func ClampTarget(target int) int {
	return min(max(target, MinTarget), MaxTarget)
}

// RollOver reports whether roll meets a roll-over target. An unreachable
// target (MaxTarget or more) always fails.
func RollOver(roll, target int) bool {
	return target < MaxTarget && roll >= target
}

// RollUnder reports whether roll is at or below a roll-under target.
func RollUnder(roll, target int) bool {
	return roll <= target
}

