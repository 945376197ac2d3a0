package searcher

// DefaultPeriodLength is a college basketball half, in seconds.
const DefaultPeriodLength = 1200

// VideoOffset returns the seconds into a full-game recording at which a
// play with clock seconds remaining in period begins, given periods of
// length periodLength. Periods after the second extrapolate linearly.
// Unknown periods map to 0 and the result is never negative.
func VideoOffset(period, clock, periodLength int) int {
	if period <= 0 || periodLength <= 0 {
		return 0
	}
	elapsed := periodLength - clock
	return max(0, (period-1)*periodLength+elapsed)
}
