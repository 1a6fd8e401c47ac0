package intercom

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/talent-success/melvin/pkg/models"
)

// Conversation is the relevant subset of Intercom's conversation object.
type Conversation struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	State             string            `json:"state"`
	Source            *Source           `json:"source"`
	ConversationParts ConversationParts `json:"conversation_parts"`
	Contacts          ContactList       `json:"contacts"`
	CustomAttributes  map[string]any    `json:"custom_attributes"`
}

// Source is the initial message of a conversation.
type Source struct {
	Body        string              `json:"body"`
	Author      Author              `json:"author"`
	Attachments []models.Attachment `json:"attachments"`
}

// ConversationParts wraps the list of follow-up parts.
type ConversationParts struct {
	Parts []ConversationPart `json:"conversation_parts"`
}

// ConversationPart is one follow-up message, note, or system event.
type ConversationPart struct {
	PartType    string              `json:"part_type"`
	Body        string              `json:"body"`
	Author      Author              `json:"author"`
	Attachments []models.Attachment `json:"attachments"`
}

// Author identifies who wrote a part.
type Author struct {
	Type  string `json:"type"` // "user", "lead", "admin", "bot"
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ContactList wraps the contacts attached to a conversation.
type ContactList struct {
	Contacts []ContactRef `json:"contacts"`
}

// ContactRef is a reference to a contact.
type ContactRef struct {
	ID string `json:"id"`
}

// Contact is the relevant subset of Intercom's contact object.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ConversationData is everything the agent needs from one conversation,
// normalized for prompting.
type ConversationData struct {
	ConversationID string
	Messages       []models.Message
	Subject        string
	UserName       string
	UserEmail      string
}

// GetConversation fetches a conversation with plaintext bodies.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	var conv Conversation
	query := url.Values{"display_as": []string{"plaintext"}}
	if err := c.doJSON(ctx, "GET", "conversations/"+conversationID, query, nil, &conv); err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// GetContact fetches a contact by ID.
func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var contact Contact
	if err := c.doJSON(ctx, "GET", "contacts/"+contactID, nil, nil, &contact); err != nil {
		return nil, fmt.Errorf("get contact %s: %w", contactID, err)
	}
	return &contact, nil
}

// GetConversationData fetches a conversation once and normalizes it into
// agent messages plus user identity. Roles map admin and bot authors to
// "assistant" and everyone else to "user". Only "comment" parts count as
// conversation turns; notes and system events are internal.
func (c *Client) GetConversationData(ctx context.Context, conversationID string) (*ConversationData, error) {
	conv, err := c.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	data := &ConversationData{ConversationID: conversationID}

	if conv.Source != nil && conv.Source.Body != "" {
		data.Messages = append(data.Messages, models.Message{
			Role:        roleForAuthor(conv.Source.Author.Type),
			Content:     conv.Source.Body,
			Attachments: conv.Source.Attachments,
		})
	}

	for _, part := range conv.ConversationParts.Parts {
		if part.PartType != "comment" {
			continue
		}
		// Empty bodies are kept; users can send attachment-only messages.
		data.Messages = append(data.Messages, models.Message{
			Role:        roleForAuthor(part.Author.Type),
			Content:     part.Body,
			Attachments: part.Attachments,
		})
	}

	data.Subject = strings.TrimSpace(conv.Title)

	// Identity comes from the source author when it is the user. The
	// LLM never sees any other email source for injection.
	if conv.Source != nil && conv.Source.Author.Type == "user" {
		data.UserName = strings.TrimSpace(conv.Source.Author.Name)
		data.UserEmail = conv.Source.Author.Email
	}

	// Fall back to the contact record when the source carried no email.
	if data.UserEmail == "" && len(conv.Contacts.Contacts) > 0 {
		contact, err := c.GetContact(ctx, conv.Contacts.Contacts[0].ID)
		if err != nil {
			c.logger.Warn("Failed to fetch contact for email fallback",
				"conversation_id", conversationID, "error", err)
		} else {
			data.UserEmail = contact.Email
			if data.UserName == "" {
				data.UserName = strings.TrimSpace(contact.Name)
			}
		}
	}

	if data.UserEmail == "" {
		c.logger.Warn("No email found for conversation", "conversation_id", conversationID)
	}

	return data, nil
}

func roleForAuthor(authorType string) string {
	if authorType == "admin" || authorType == "bot" {
		return models.RoleAssistant
	}
	return models.RoleUser
}
