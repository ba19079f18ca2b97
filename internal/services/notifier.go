package services

import "log"

// Notifier is best-effort outbound notification. No delivery guarantee, no
// error surface; callers fire and forget. Handlers depend on this
// interface, never on a concrete transport.
type Notifier interface {
	Notify(to, subject, text, html string)
}

// LogNotifier writes the message to the application log. It is the default
// transport until a real mail provider is wired in.
type LogNotifier struct{}

func (LogNotifier) Notify(to, subject, text, html string) {
	log.Printf("📧 [EMAIL SEND] to=%s subject=%q", to, subject)
	log.Printf("Text body:\n%s", text)
	if html != "" {
		log.Printf("HTML body:\n%s", html)
	}
}
