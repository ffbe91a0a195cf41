// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components holds the small widgets shared by peeksy screens: the
// navbar and the loading spinner.
package components
