// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for shopfloor packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with a time.After fallback) so
// individual tests do not need direct time.After calls. These are the
// only sanctioned uses of real wall-clock timeouts in the test suite;
// everything else drives time through lib/clock's FakeClock.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
