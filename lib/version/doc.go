// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the desktop-assist
// binaries. Values are injected at build time:
//
//	go build -ldflags "-X github.com/desktop-assist/desktop-assist/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
