package chat

// Lines the server writes to clients. Entries ending in "\n" are sent as-is;
// the rest go through the Broadcaster, which appends the terminator.
const (
	promptUsername  = "Enter your username: "
	replyInvalid    = "❌ Invalid username\n"
	replyTaken      = "❌ Username already taken, try another\n"
	noticeKicked    = "🚫 You have been kicked from the chat by server admin\n"
	noticeShutdown  = "🛑 Server shutting down...\n"
	serverAuthor    = "🔧 SERVER"
	timestampLayout = "15:04:05"
)

var quitTokens = map[string]struct{}{
	"/quit": {},
	"/exit": {},
}

var (
	ErrUsernameTaken     = errorString("username_taken")
	ErrUsernameInvalid   = errorString("username_invalid")
	ErrAlreadyRegistered = errorString("already_registered")
	ErrUserNotFound      = errorString("user_not_found")
	ErrServerClosed      = errorString("server_closed")
)

type errorString string

func (e errorString) Error() string { return string(e) }
