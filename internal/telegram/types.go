package telegram

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Update kinds, in the order Kind() probes them.
const (
	KindMessage         = "message"
	KindEditedMessage   = "edited_message"
	KindChannelPost     = "channel_post"
	KindCallbackQuery   = "callback_query"
	KindInlineQuery     = "inline_query"
	KindPoll            = "poll"
	KindPollAnswer      = "poll_answer"
	KindMyChatMember    = "my_chat_member"
	KindChatMember      = "chat_member"
	KindChatJoinRequest = "chat_join_request"
	KindUnknown         = "unknown"
)

// Update is one decoded inbound event from the Bot API. At most one of the
// payload fields is set. Updates are immutable once decoded and owned by
// the dispatch call that decoded them.
type Update struct {
	UpdateID        int64              `json:"update_id"`
	Message         *Message           `json:"message,omitempty"`
	EditedMessage   *Message           `json:"edited_message,omitempty"`
	ChannelPost     *Message           `json:"channel_post,omitempty"`
	CallbackQuery   *CallbackQuery     `json:"callback_query,omitempty"`
	InlineQuery     *InlineQuery       `json:"inline_query,omitempty"`
	Poll            *Poll              `json:"poll,omitempty"`
	PollAnswer      *PollAnswer        `json:"poll_answer,omitempty"`
	MyChatMember    *ChatMemberUpdated `json:"my_chat_member,omitempty"`
	ChatMember      *ChatMemberUpdated `json:"chat_member,omitempty"`
	ChatJoinRequest *ChatJoinRequest   `json:"chat_join_request,omitempty"`
}

// Kind returns the update's event kind based on which payload is present.
func (u *Update) Kind() string {
	switch {
	case u.Message != nil:
		return KindMessage
	case u.EditedMessage != nil:
		return KindEditedMessage
	case u.ChannelPost != nil:
		return KindChannelPost
	case u.CallbackQuery != nil:
		return KindCallbackQuery
	case u.InlineQuery != nil:
		return KindInlineQuery
	case u.Poll != nil:
		return KindPoll
	case u.PollAnswer != nil:
		return KindPollAnswer
	case u.MyChatMember != nil:
		return KindMyChatMember
	case u.ChatMember != nil:
		return KindChatMember
	case u.ChatJoinRequest != nil:
		return KindChatJoinRequest
	default:
		return KindUnknown
	}
}

// MessageEvent returns the message payload for message-carrying kinds.
// Edited messages and channel posts are messages too; handlers matched on
// message-level criteria must use this instead of the Message field.
func (u *Update) MessageEvent() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	default:
		return nil
	}
}

// From returns the user that produced the update, if the kind carries one.
func (u *Update) From() *User {
	switch {
	case u.Message != nil:
		return u.Message.From
	case u.EditedMessage != nil:
		return u.EditedMessage.From
	case u.CallbackQuery != nil:
		return &u.CallbackQuery.From
	case u.InlineQuery != nil:
		return &u.InlineQuery.From
	case u.PollAnswer != nil:
		return u.PollAnswer.User
	case u.MyChatMember != nil:
		return &u.MyChatMember.From
	case u.ChatMember != nil:
		return &u.ChatMember.From
	case u.ChatJoinRequest != nil:
		return &u.ChatJoinRequest.From
	default:
		return nil
	}
}

// DecodeUpdate decodes a raw webhook body into an Update.
func DecodeUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	if u.UpdateID == 0 {
		return nil, fmt.Errorf("decode update: missing update_id")
	}
	return &u, nil
}

// User is a Telegram user or bot.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Chat is the conversation an update belongs to.
type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"` // private, group, supergroup, channel
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Message carries the fields routing and filtering need. The Bot API message
// object is far larger; unknown fields are ignored on decode.
type Message struct {
	MessageID      int64        `json:"message_id"`
	From           *User        `json:"from,omitempty"`
	Chat           Chat         `json:"chat"`
	Date           int64        `json:"date"`
	Text           string       `json:"text,omitempty"`
	Caption        string       `json:"caption,omitempty"`
	Sticker        *Sticker     `json:"sticker,omitempty"`
	Photo          []PhotoSize  `json:"photo,omitempty"`
	Document       *Document    `json:"document,omitempty"`
	ForwardDate    int64        `json:"forward_date,omitempty"`
	ForwardFrom    *User        `json:"forward_from,omitempty"`
	ReplyToMessage *Message     `json:"reply_to_message,omitempty"`
	NewChatMembers []User       `json:"new_chat_members,omitempty"`
	LeftChatMember *User        `json:"left_chat_member,omitempty"`
	Location       *Location    `json:"location,omitempty"`
}

// Message content types as reported in metrics and matched by filters.
const (
	ContentText     = "text"
	ContentSticker  = "sticker"
	ContentPhoto    = "photo"
	ContentDocument = "document"
	ContentLocation = "location"
	ContentService  = "service"
	ContentUnknown  = "unknown"
)

// ContentType classifies the message payload.
func (m *Message) ContentType() string {
	switch {
	case m.Text != "":
		return ContentText
	case m.Sticker != nil:
		return ContentSticker
	case len(m.Photo) > 0:
		return ContentPhoto
	case m.Document != nil:
		return ContentDocument
	case m.Location != nil:
		return ContentLocation
	case len(m.NewChatMembers) > 0 || m.LeftChatMember != nil:
		return ContentService
	default:
		return ContentUnknown
	}
}

// IsForwarded reports whether the message was forwarded from elsewhere.
func (m *Message) IsForwarded() bool {
	return m.ForwardDate != 0 || m.ForwardFrom != nil
}

// IsReply reports whether the message replies to another message.
func (m *Message) IsReply() bool {
	return m.ReplyToMessage != nil
}

// Command extracts a bot command from the message text. "/start",
// "/start arg" and "/start@some_bot arg" all yield ("start", true).
func (m *Message) Command() (string, bool) {
	if m.Text == "" || !strings.HasPrefix(m.Text, "/") {
		return "", false
	}
	first := strings.Fields(m.Text)[0]
	cmd := strings.TrimPrefix(first, "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

// Sticker is a sticker attachment (file reference only).
type Sticker struct {
	FileID string `json:"file_id"`
	Emoji  string `json:"emoji,omitempty"`
}

// PhotoSize is one resolution of a photo attachment.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Document is a generic file attachment.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Location is a shared point on the map.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// CallbackQuery is an inline-keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineQuery is an incoming inline query.
type InlineQuery struct {
	ID     string `json:"id"`
	From   User   `json:"from"`
	Query  string `json:"query"`
	Offset string `json:"offset,omitempty"`
}

// Poll is a poll state update.
type Poll struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	IsClosed bool   `json:"is_closed"`
}

// PollAnswer is a user's answer in a non-anonymous poll.
type PollAnswer struct {
	PollID    string `json:"poll_id"`
	User      *User  `json:"user,omitempty"`
	OptionIDs []int  `json:"option_ids"`
}

// ChatMemberUpdated reports a change of a member's status in a chat.
type ChatMemberUpdated struct {
	Chat Chat  `json:"chat"`
	From User  `json:"from"`
	Date int64 `json:"date"`
}

// ChatJoinRequest is a pending request to join a chat.
type ChatJoinRequest struct {
	Chat Chat  `json:"chat"`
	From User  `json:"from"`
	Date int64 `json:"date"`
}

// WebhookInfo describes the current webhook registration on the remote side.
type WebhookInfo struct {
	URL                  string `json:"url"`
	HasCustomCertificate bool   `json:"has_custom_certificate"`
	PendingUpdateCount   int    `json:"pending_update_count"`
	LastErrorDate        int64  `json:"last_error_date,omitempty"`
	LastErrorMessage     string `json:"last_error_message,omitempty"`
}
