package game

import "time"

// DefaultPoints is the budget used when a question does not set one.
const DefaultPoints = 100

// DefaultTimeLimit is used when a question does not set a limit.
const DefaultTimeLimit = 30 * time.Second

// Score computes the points earned for one answer. It is pure so it can be
// tested without any session or network state.
//
// Incorrect answers and answers at or past the time limit score zero; an
// answer landing exactly on the limit takes the timeout path. A correct
// answer within the limit earns at least half the budget, plus a speed
// bonus proportional to the remaining time fraction, so scores fall
// monotonically from maxPoints toward the floor as latency grows.
func Score(correct bool, maxPoints int, responseTime, timeLimit time.Duration) int {
	if !correct || timeLimit <= 0 {
		return 0
	}
	if responseTime >= timeLimit {
		return 0
	}
	if responseTime < 0 {
		responseTime = 0
	}
	if maxPoints < 1 {
		maxPoints = 1
	}

	floor := maxPoints / 2
	if floor < 1 {
		floor = 1
	}
	remaining := float64(timeLimit-responseTime) / float64(timeLimit)
	bonus := int(float64(maxPoints-floor) * remaining)

	points := floor + bonus
	if points < 1 {
		points = 1
	}
	if points > maxPoints {
		points = maxPoints
	}
	return points
}
