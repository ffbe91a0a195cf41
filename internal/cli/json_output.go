// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/anubhavitis/peeksy/internal/daemon"
	"github.com/anubhavitis/peeksy/internal/history"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response, indented, to w.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode %s response: %w", r.Command, err)
	}
	return nil
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// StatusData is the status command payload.
type StatusData struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid,omitempty"`
	Manager       string `json:"manager"`
	ScreenshotDir string `json:"screenshot_dir"`
	Configured    bool   `json:"configured"`
	Problem       string `json:"problem,omitempty"`
}

// WhoamiData is the whoami command payload.
type WhoamiData struct {
	SignedIn bool   `json:"signed_in"`
	ID       string `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
}

// HistoryItem is one row of the history command payload.
type HistoryItem struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Model     string    `json:"model"`
	RenamedAt time.Time `json:"renamed_at"`
}

func statusData(st daemon.Status, manager string) StatusData {
	return StatusData{Running: st.Running, PID: st.PID, Manager: manager}
}

func historyItems(entries []history.Entry) []HistoryItem {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			From:      e.OriginalPath,
			To:        e.NewPath,
			Model:     e.Model,
			RenamedAt: e.RenamedAt,
		})
	}
	return items
}
