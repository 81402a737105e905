package worker

// EventType names a class of work the runtime reacts to. The set mirrors the
// lifecycle and delivery events of a web background worker.
type EventType string

const (
	EventInstall           EventType = "install"
	EventActivate          EventType = "activate"
	EventFetch             EventType = "fetch"
	EventPush              EventType = "push"
	EventNotificationClick EventType = "notificationclick"
	EventNotificationClose EventType = "notificationclose"
	EventMessage           EventType = "message"
)

// Event is one unit of work delivered to the runtime loop. Only the field
// matching its Type is set.
type Event struct {
	Type         EventType
	Request      *Request
	Data         []byte
	Notification *Notification
	Message      *Message
}

// Message is a control message posted to the runtime from a page.
type Message struct {
	Type string `json:"type"`
}

// MessageSkipWaiting asks a waiting runtime version to activate immediately.
const MessageSkipWaiting = "SKIP_WAITING"
