//go:build race

package hostbridge_test

// raceEnabled is true when the race detector is active. The atomic cores
// order memory with atomix acquire/release operations, which the race
// detector cannot see, so stress tests that rely on that ordering skip.
const raceEnabled = true
