// Package prompt builds the text blocks fed to the planning, coverage,
// and drafting models: conversation transcripts, user details, cross-hop
// context, accumulated-data summaries, and action audit notes.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talent-success/melvin/pkg/models"
)

// ErrEmptyConversation indicates neither messages nor a subject are present.
var ErrEmptyConversation = errors.New("no conversation messages or subject found")

// FormatConversation renders a transcript for an LLM prompt: an optional
// subject line, then numbered "N. Role: content" lines. Attachments are
// listed on indented lines under their message.
func FormatConversation(messages []models.Message, subject string) string {
	var parts []string

	if subject != "" {
		parts = append(parts, fmt.Sprintf("Subject: %s\n", subject))
	}

	if len(messages) == 0 {
		parts = append(parts, "Conversation: No messages available")
		return strings.Join(parts, "\n")
	}

	parts = append(parts, "Conversation:")
	for i, msg := range messages {
		parts = append(parts, fmt.Sprintf("%d. %s: %s", i+1, roleTitle(msg.Role), msg.Content))
		for _, att := range msg.Attachments {
			parts = append(parts, formatAttachment(att))
		}
	}
	return strings.Join(parts, "\n")
}

// FormatUserDetails renders the verified identity block, or a stand-in
// line when Intercom had neither name nor email.
func FormatUserDetails(details models.UserDetails) string {
	var parts []string
	if details.Name != "" {
		parts = append(parts, "Name: "+details.Name)
	}
	if details.Email != "" {
		parts = append(parts, "Email: "+details.Email)
	}
	if len(parts) == 0 {
		return "User details: Not available"
	}
	return strings.Join(parts, "\n")
}

// ConversationContext formats the conversation and user details from state.
// Returns ErrEmptyConversation when the state has neither messages nor a
// non-blank subject.
func ConversationContext(state *models.State) (history, userDetails string, err error) {
	hasMessages := len(state.Messages) > 0
	hasSubject := strings.TrimSpace(state.Subject) != ""
	if !hasMessages && !hasSubject {
		return "", "", ErrEmptyConversation
	}
	return FormatConversation(state.Messages, state.Subject), FormatUserDetails(state.UserDetails), nil
}

// ImageAttachmentURLs collects the URLs of image attachments across all
// messages, for passing to a vision-capable drafter model.
func ImageAttachmentURLs(messages []models.Message) []string {
	var urls []string
	for _, msg := range messages {
		for _, att := range msg.Attachments {
			if att.IsImage() && att.URL != "" {
				urls = append(urls, att.URL)
			}
		}
	}
	return urls
}

func roleTitle(r string) string {
	switch r {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

func formatAttachment(att models.Attachment) string {
	var details []string
	if att.ContentType != "" {
		details = append(details, att.ContentType)
	}
	if att.Filesize > 0 {
		details = append(details, fmt.Sprintf("%d bytes", att.Filesize))
	}
	if att.Width > 0 && att.Height > 0 {
		details = append(details, fmt.Sprintf("%dx%d", att.Width, att.Height))
	}

	line := "   Attachment: " + att.Name
	if len(details) > 0 {
		line += " (" + strings.Join(details, ", ") + ")"
	}
	if att.URL != "" {
		line += " " + att.URL
	}
	return line
}
