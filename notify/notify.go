// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package notify sends a run summary to a shoutrrr service URL.
package notify

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
)

// Sender abstracts the shoutrrr send call for testing.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender sends through the shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// Summary describes one finished aggregation run.
type Summary struct {
	RunID        string
	Input        string
	Output       string
	Files        int64
	FilesFailed  int64
	FilesSkipped int64
	Rows         int64
	RowsFailed   int64
	Drives       int
	Anomalies    int64 // capacity changes and repeated failures
	Elapsed      time.Duration
}

// Message renders the summary as a short plain-text paragraph.
func (s Summary) Message() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "drivestats: aggregated %s into %s", s.Input, s.Output)
	if s.RunID != "" {
		fmt.Fprintf(&sb, " (run %s)", s.RunID)
	}
	fmt.Fprintf(&sb, ".\nfiles: %d ingested, %d failed, %d skipped.", s.Files, s.FilesFailed, s.FilesSkipped)
	fmt.Fprintf(&sb, "\nrows: %d applied, %d failed.", s.Rows, s.RowsFailed)
	fmt.Fprintf(&sb, "\ndrives: %d; anomalies: %d; elapsed: %v.", s.Drives, s.Anomalies, s.Elapsed.Round(time.Millisecond))
	return sb.String()
}

// Notifier delivers summaries to a single service URL.
type Notifier struct {
	url    string
	sender Sender
}

// New returns a notifier for url. A nil sender uses shoutrrr.
func New(url string, sender Sender) *Notifier {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Notifier{url: url, sender: sender}
}

// Notify sends the summary. An empty URL sends nothing. A failed send is
// logged and returned; it never affects the stored results.
func (n *Notifier) Notify(s Summary) error {
	if n == nil || n.url == "" {
		return nil
	}
	if err := n.sender.Send(n.url, s.Message()); err != nil {
		log.Printf("notify: send failed: %v", err)
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
