package models

// Message roles as normalized from Intercom conversation parts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single normalized conversation turn.
type Message struct {
	Role        string       `json:"role"` // "user" or "assistant"
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a file attached to a conversation part.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Filesize    int    `json:"filesize,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// IsImage reports whether the attachment can be packaged as vision content.
func (a Attachment) IsImage() bool {
	switch a.ContentType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp":
		return true
	}
	return false
}

// UserDetails holds the contact identity loaded during initialization.
// Email is the trusted identity anchor injected into tool parameters.
type UserDetails struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
