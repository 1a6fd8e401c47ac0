package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talent-success/melvin/pkg/models"
)

func TestFormatConversation(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "I want to withdraw my application"},
		{Role: models.RoleAssistant, Content: "I can help with that."},
		{Role: models.RoleUser, Content: "Here is a screenshot", Attachments: []models.Attachment{
			{Name: "screenshot.png", ContentType: "image/png", URL: "https://cdn.example.com/s.png", Filesize: 123456, Width: 800, Height: 600},
		}},
	}

	got := FormatConversation(messages, "Application Withdrawal Request")

	want := "Subject: Application Withdrawal Request\n\n" +
		"Conversation:\n" +
		"1. User: I want to withdraw my application\n" +
		"2. Assistant: I can help with that.\n" +
		"3. User: Here is a screenshot\n" +
		"   Attachment: screenshot.png (image/png, 123456 bytes, 800x600) https://cdn.example.com/s.png"
	assert.Equal(t, want, got)
}

func TestFormatConversationNoMessages(t *testing.T) {
	got := FormatConversation(nil, "Billing question")
	assert.Equal(t, "Subject: Billing question\n\nConversation: No messages available", got)
}

func TestFormatConversationNoSubject(t *testing.T) {
	got := FormatConversation([]models.Message{{Role: models.RoleUser, Content: "Hi"}}, "")
	assert.Equal(t, "Conversation:\n1. User: Hi", got)
}

func TestFormatUserDetails(t *testing.T) {
	tests := []struct {
		name    string
		details models.UserDetails
		want    string
	}{
		{
			name:    "name and email",
			details: models.UserDetails{Name: "Jordan Lee", Email: "jordan@example.com"},
			want:    "Name: Jordan Lee\nEmail: jordan@example.com",
		},
		{
			name:    "email only",
			details: models.UserDetails{Email: "jordan@example.com"},
			want:    "Email: jordan@example.com",
		},
		{
			name:    "nothing known",
			details: models.UserDetails{},
			want:    "User details: Not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserDetails(tt.details))
		})
	}
}

func TestConversationContextRequiresMessagesOrSubject(t *testing.T) {
	state := models.NewState("123")
	state.Subject = "   "

	_, _, err := ConversationContext(state)
	require.ErrorIs(t, err, ErrEmptyConversation)

	state.Messages = []models.Message{{Role: models.RoleUser, Content: "Hi"}}
	history, details, err := ConversationContext(state)
	require.NoError(t, err)
	assert.Contains(t, history, "1. User: Hi")
	assert.Equal(t, "User details: Not available", details)
}

func TestImageAttachmentURLs(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "see attached", Attachments: []models.Attachment{
			{Name: "error.png", ContentType: "image/png", URL: "https://cdn.example.com/error.png"},
			{Name: "log.txt", ContentType: "text/plain", URL: "https://cdn.example.com/log.txt"},
		}},
		{Role: models.RoleAssistant, Content: "thanks"},
		{Role: models.RoleUser, Content: "and this", Attachments: []models.Attachment{
			{Name: "photo.jpeg", ContentType: "image/jpeg", URL: "https://cdn.example.com/photo.jpeg"},
		}},
	}

	urls := ImageAttachmentURLs(messages)
	assert.Equal(t, []string{"https://cdn.example.com/error.png", "https://cdn.example.com/photo.jpeg"}, urls)
}
