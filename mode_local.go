// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !hostbridge_atomic

package hostbridge

// DefaultMode is the [Mode] used when no [WithMode] option is given.
// Build with the hostbridge_atomic tag to default to [ModeAtomic].
const DefaultMode = ModeLocal
