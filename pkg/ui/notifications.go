package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/dustin/go-humanize"

	"imgurstats/pkg/fetch"
)

// NotificationSender shows a desktop notification.
type NotificationSender interface {
	Send(title, message string) error
}

// SenderFunc adapts a function to NotificationSender.
type SenderFunc func(title, message string) error

func (f SenderFunc) Send(title, message string) error { return f(title, message) }

type commandSender struct {
	name string
	args func(title, message string) []string
}

func (c commandSender) Send(title, message string) error {
	return exec.Command(c.name, c.args(title, message)...).Run()
}

// PlatformSender returns the notification command of the current platform,
// or nil where there is none.
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return commandSender{name: "notify-send", args: func(t, m string) []string {
			return []string{"--app-name=imgurstats", t, m}
		}}
	case "darwin":
		return commandSender{name: "osascript", args: func(t, m string) []string {
			return []string{"-e", fmt.Sprintf("display notification %q with title %q", m, t)}
		}}
	default:
		return nil
	}
}

// Notifier reports finished fetches on the desktop. Long full fetches
// are its main use.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a notifier; a nil sender makes it a no-op.
func NewNotifier(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// NotifyResult announces how a fetch of scope ended. Delivery errors are
// ignored.
func (n *Notifier) NotifyResult(kind, scope string, res *fetch.Result, err error) {
	if n == nil || n.sender == nil {
		return
	}
	title, message := ResultMessage(kind, scope, res, err)
	_ = n.sender.Send(title, message)
}

// ResultMessage formats the notification of a finished fetch.
func ResultMessage(kind, scope string, res *fetch.Result, err error) (string, string) {
	title := fmt.Sprintf("imgurstats: %s %s", scope, kind)
	switch {
	case err != nil:
		return title, "failed: " + err.Error()
	case res == nil:
		return title, "nothing to do"
	case res.State == fetch.StateCancelled:
		return title, "cancelled, nothing was saved"
	case !res.Saved:
		return title, fmt.Sprintf("finished after %d pages, nothing new to save", res.Pages)
	default:
		return title, fmt.Sprintf("saved %s items from %d pages", humanize.Comma(int64(res.Processed)), res.Pages)
	}
}
