package chat

import (
	"fmt"
	"strings"
	"time"
)

func formatChat(at time.Time, username, text string) string {
	return fmt.Sprintf("[%s] %s: %s", at.Format(timestampLayout), username, text)
}

func formatServer(at time.Time, text string) string {
	return formatChat(at, serverAuthor, text)
}

func formatJoined(username string, online int) string {
	return fmt.Sprintf("👤 %s joined the chat (%d users online)", username, online)
}

func formatLeft(username string, online int) string {
	return fmt.Sprintf("👋 %s left the chat (%d users online)", username, online)
}

func formatWelcome(username string) string {
	return fmt.Sprintf("✅ Welcome %s! You're connected to the chat.\n", username)
}

func formatOnline(names []string) string {
	return "👥 Users online: " + strings.Join(names, ", ") + "\n"
}

func isQuit(line string) bool {
	_, ok := quitTokens[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

// truncate cuts s to at most max runes; max <= 0 disables the limit.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
