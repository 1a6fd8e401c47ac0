package intercom

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidAttributeName indicates a custom attribute name with characters
// Intercom rejects.
var ErrInvalidAttributeName = errors.New("invalid custom attribute name")

var attributeNameRe = regexp.MustCompile(`^[a-zA-Z0-9_\[\] -]+$`)

// AddNote posts an internal note to a conversation. Notes are visible to
// the team only, never to the user.
func (c *Client) AddNote(ctx context.Context, conversationID, body string) error {
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would add note",
			"conversation_id", conversationID,
			"preview", preview(body, 100))
		return nil
	}

	payload := map[string]any{
		"message_type": "note",
		"type":         "admin",
		"body":         body,
		"admin_id":     c.adminID,
	}
	if err := c.doJSON(ctx, "POST", "conversations/"+conversationID+"/reply", nil, payload, nil); err != nil {
		return fmt.Errorf("add note to conversation %s: %w", conversationID, err)
	}
	return nil
}

// SendMessage posts a user-visible admin reply to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID, body string) error {
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would send message",
			"conversation_id", conversationID,
			"body", body)
		return nil
	}

	payload := map[string]any{
		"message_type": "comment",
		"type":         "admin",
		"body":         body,
		"admin_id":     c.adminID,
	}
	if err := c.doJSON(ctx, "POST", "conversations/"+conversationID+"/reply", nil, payload, nil); err != nil {
		return fmt.Errorf("send message to conversation %s: %w", conversationID, err)
	}
	return nil
}

// SnoozeConversation snoozes a conversation until the given time.
func (c *Client) SnoozeConversation(ctx context.Context, conversationID string, until time.Time) error {
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would snooze conversation",
			"conversation_id", conversationID,
			"until", until.Format(time.RFC3339))
		return nil
	}

	payload := map[string]any{
		"message_type":  "snoozed",
		"type":          "admin",
		"snoozed_until": until.Unix(),
		"admin_id":      c.adminID,
	}
	if err := c.doJSON(ctx, "POST", "conversations/"+conversationID+"/parts", nil, payload, nil); err != nil {
		return fmt.Errorf("snooze conversation %s: %w", conversationID, err)
	}
	return nil
}

// UpdateCustomAttribute sets one custom attribute on a conversation. The
// conversation is fetched first so a missing conversation surfaces as an
// error rather than a silent attribute create.
func (c *Client) UpdateCustomAttribute(ctx context.Context, conversationID, name string, value any) error {
	if conversationID == "" {
		return errors.New("conversation_id is required")
	}
	if name == "" {
		return errors.New("attribute name is required")
	}
	if !attributeNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAttributeName, name)
	}

	conv, err := c.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("conversation %s not found: %w", conversationID, err)
	}
	if conv.State != "open" && conv.State != "closed" {
		c.logger.Warn("Conversation state may not allow attribute updates",
			"conversation_id", conversationID,
			"state", conv.State)
	}
	if _, exists := conv.CustomAttributes[name]; exists {
		c.logger.Info("Updating existing custom attribute",
			"conversation_id", conversationID, "attribute", name)
	} else {
		c.logger.Info("Adding new custom attribute",
			"conversation_id", conversationID, "attribute", name)
	}

	if c.dryRun {
		c.logger.Info("[DRY RUN] Would update custom attribute",
			"conversation_id", conversationID,
			"attribute", name,
			"value", value)
		return nil
	}

	payload := map[string]any{
		"custom_attributes": map[string]any{name: value},
	}
	if err := c.doJSON(ctx, "PUT", "conversations/"+conversationID, nil, payload, nil); err != nil {
		return fmt.Errorf("update custom attribute %q on conversation %s: %w", name, conversationID, err)
	}
	return nil
}

func preview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
