package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

// renderMarkdown styles an assistant reply. Plain text is returned when the
// style is unknown.
func renderMarkdown(content, style string) string {
	styled, err := glamour.Render(content, style)
	if err != nil {
		return content
	}
	return strings.TrimRight(styled, "\n")
}

func lastReply(conv *domain.Conversation) (domain.Message, bool) {
	if conv == nil || len(conv.Messages) == 0 {
		return domain.Message{}, false
	}
	last := conv.Messages[len(conv.Messages)-1]
	return last, last.Sender == domain.SenderAssistant
}

func printConversation(w io.Writer, conv *domain.Conversation, style string) {
	fmt.Fprintf(w, "%s (%s)\n\n", conv.Title, conv.ID)
	for _, msg := range conv.Messages {
		stamp := msg.Timestamp.Local().Format("15:04")
		if msg.Sender == domain.SenderAssistant {
			fmt.Fprintf(w, "[%s] assistant:\n%s\n\n", stamp, renderMarkdown(msg.Content, style))
			continue
		}
		fmt.Fprintf(w, "[%s] you: %s\n\n", stamp, msg.Content)
	}
}

func printSummaries(w io.Writer, summaries []domain.ConversationSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No chats yet.")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-24s  %3d messages  updated %s\n",
			s.ID, s.Title, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}
