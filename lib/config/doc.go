// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for shopfloor
// components.
//
// Configuration is loaded from a single YAML file specified by:
//   - SHOPFLOOR_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The config file is
// the single source of truth: environment variables never override
// values from it.
package config
