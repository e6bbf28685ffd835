package models

import "unicode/utf8"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TitleLength is the maximum number of characters kept from the first
// message when titling a chat.
const TitleLength = 100

type Message struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// Chat is one persisted conversation. CreatedAt is Unix milliseconds.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userId"`
	CreatedAt int64     `json:"createdAt"`
	Path      string    `json:"path"`
	Messages  []Message `json:"messages"`
}

// ChatKey is the member stored in a user's chat index.
func ChatKey(id string) string {
	return "chat:" + id
}

func ChatPath(id string) string {
	return "/chat/" + id
}

// ChatTitle returns the first TitleLength characters of content.
func ChatTitle(content string) string {
	if utf8.RuneCountInString(content) <= TitleLength {
		return content
	}
	return string([]rune(content)[:TitleLength])
}
