package bot

import "strconv"

// Update is the subset of a Telegram Bot API update the router reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// User is the sender of a message.
type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

// Chat identifies where a reply goes.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

func (u User) idString() string {
	return strconv.FormatInt(u.ID, 10)
}

func (c Chat) idString() string {
	return strconv.FormatInt(c.ID, 10)
}
