// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolcatalog is the static registry of desktop automation
// primitives the agent may call. The registry is declared in the
// embedded catalog.jsonc (JSON with comments) and parsed once at
// startup; the runner only consumes its rendered text form.
package toolcatalog
