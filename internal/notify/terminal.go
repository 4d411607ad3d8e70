package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// TerminalChannel writes notifications to the terminal.
type TerminalChannel struct {
	writer io.Writer
}

// NewTerminalChannel creates a terminal notification channel.
func NewTerminalChannel() *TerminalChannel {
	return &TerminalChannel{writer: os.Stdout}
}

// Name returns the channel name.
func (t *TerminalChannel) Name() string { return "terminal" }

// IsEnabled reports whether the channel is usable.
func (t *TerminalChannel) IsEnabled() bool { return t.writer != nil }

// Send writes the notification to the terminal.
func (t *TerminalChannel) Send(ctx context.Context, n Notification) error {
	marker := "•"
	switch n.Type {
	case NotificationOpen:
		marker = "▲"
	case NotificationClose:
		marker = "▼"
	}

	_, err := fmt.Fprintf(t.writer, "%s [%s] %s: %s\n",
		marker, n.Timestamp.Format("15:04:05"), n.Title, n.Message)
	return err
}
