package model

// NotificationType tags a notification. The same tags populate the
// smsDisabled/emailDisabled lists of a user's preference.
type NotificationType string

const (
	// TypeBase is the global default. Disabling it on a channel disables
	// every notification type on that channel.
	TypeBase         NotificationType = "base"
	TypeGeneral      NotificationType = "general"
	TypeLike         NotificationType = "like"
	TypeTodo         NotificationType = "todo"
	TypeInternalNote NotificationType = "internal-note"
	TypeChat         NotificationType = "chat"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeBase, TypeGeneral, TypeLike, TypeTodo, TypeInternalNote, TypeChat:
		return true
	}
	return false
}

// TemplateSet holds the provider template ids used for one notification event.
type TemplateSet struct {
	Email            string `json:"email"`
	DomesticSMS      string `json:"domestic_sms"`
	InternationalSMS string `json:"international_sms"`
}

// IsZero reports whether no template id is set.
func (ts TemplateSet) IsZero() bool {
	return ts == TemplateSet{}
}

// Vars are template variables shared by the SMS and email channels.
type Vars map[string]string

// Well-known template variable names.
const (
	VarSubject = "subject"
	VarContent = "content"
	VarLink    = "link"
)
