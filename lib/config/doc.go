// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for desktop-assist.
//
// Configuration is loaded from a single YAML file specified by:
//   - the DESKTOP_ASSIST_CONFIG environment variable, or
//   - the --config flag passed to the command.
//
// There is no automatic discovery. When neither is given the built-in
// [Default] is used unchanged, so a bare invocation behaves the same on
// every machine. Values in the file are merged over the defaults;
// ${HOME} and ${VAR:-default} are expanded in paths.
//
// Durations are written as Go duration strings ("10m", "3s"). A
// timeout of "0" or "" means unbounded.
package config
