package client

import "log"

// Notifier receives user-facing notifications; what a UI would render
// as toasts. Failure text comes from the server when it provided one.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications to the standard logger. The default
// when no UI is attached.
type LogNotifier struct{}

func (LogNotifier) Success(message string) { log.Printf("[notify] %s", message) }
func (LogNotifier) Error(message string)   { log.Printf("[notify] error: %s", message) }
