// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across peeksy.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandHome, ResolveUnderHome: "~/" handling for user supplied paths
//
// String Utilities:
//   - TruncateRunes, TruncateWidth: UTF-8 and display-width safe truncation
//   - MaskSecret: hide API keys in terminal output
//
// # Usage
//
//	// Write the config without ever leaving a half-written file
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a value into a fixed-width column
//	cell := util.TruncateWidth(value, 40)
package util
