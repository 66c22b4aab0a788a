package session

// NoticeLevel grades a transient notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient, dismissable message for the responder. Remote
// failures are converted into these at the mutation boundary; nothing
// propagates out of the engine as an unhandled error.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier receives notices. It is injected explicitly rather than
// reached through any ambient event mechanism so the engine stays
// testable without a UI attached.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type noopNotifier struct{}

func (noopNotifier) Notify(Notice) {}
