package client

import "log"

type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeFailure
)

// Notice is a user-visible toast.
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
}

type Notifier interface {
	Notify(notice Notice)
}

type NotifierFunc func(notice Notice)

func (f NotifierFunc) Notify(notice Notice) { f(notice) }

// LogNotifier prints notices; used by the terminal kiosk.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(notice Notice) {
	prefix := "OK"
	if notice.Kind == NoticeFailure {
		prefix = "FAILED"
	}
	n.Logger.Printf("[%s] %s: %s", prefix, notice.Title, notice.Description)
}
