// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects [Real]; tests inject [Fake] and drive time with Advance,
// so retry/backoff and poll-interval behavior is deterministic under
// test. Any shopfloor function that would call time.Now, time.After,
// time.NewTicker, or time.Sleep takes a Clock instead.
package clock
