// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package notify_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mdhender/drivestats/notify"
)

// mockSender records calls for assertion.
type mockSender struct {
	mu    sync.Mutex
	urls  []string
	calls []string
	fail  bool
}

func (m *mockSender) Send(url, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	m.calls = append(m.calls, message)
	if m.fail {
		return fmt.Errorf("mock send error")
	}
	return nil
}

func TestNotifier_SendsSummary(t *testing.T) {
	sender := &mockSender{}
	n := notify.New("generic://example.com", sender)
	err := n.Notify(notify.Summary{
		RunID:       "r1",
		Input:       "/data",
		Output:      "drives.csv",
		Files:       3,
		FilesFailed: 1,
		Rows:        1200,
		Drives:      40,
		Anomalies:   2,
		Elapsed:     1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.calls) != 1 || sender.urls[0] != "generic://example.com" {
		t.Fatalf("want one call to the service url, got %v", sender.urls)
	}
	msg := sender.calls[0]
	for _, want := range []string{"/data", "drives.csv", "run r1", "3 ingested, 1 failed", "1200 applied", "anomalies: 2", "1.5s"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message: want %q in %q", want, msg)
		}
	}
}

func TestNotifier_EmptyURLSendsNothing(t *testing.T) {
	sender := &mockSender{}
	if err := notify.New("", sender).Notify(notify.Summary{}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Errorf("want no calls, got %d", len(sender.calls))
	}
}

func TestNotifier_SendFailureIsReturned(t *testing.T) {
	sender := &mockSender{fail: true}
	if err := notify.New("generic://example.com", sender).Notify(notify.Summary{}); err == nil {
		t.Errorf("want error from failed send")
	}
}
