//go:build !race

package hostbridge_test

// raceEnabled is false when the race detector is not active.
const raceEnabled = false
