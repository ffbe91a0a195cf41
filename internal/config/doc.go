// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// # Key Types
//
//   - Config: the full settings tree (openai, auth, daemon, log, ui)
//   - ValidationError / ValidateErrors: returned by Validate
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Ready(); err != nil {
//	    fmt.Println(err) // peeksy is not configured: OpenAI API key is not set
//	}
//
// Values can be read and written with dot notation, which backs
// `peeksy config set`:
//
//	_ = cfg.Set("openai.model", "gpt-4o-mini")
//	model, _ := cfg.Get("openai.model")
package config
