package model

import "time"

type StatusID string // source status id e.g. 112233445566778899

type CommandType string

const (
	CommandTypeReply  CommandType = "Reply"
	CommandTypeRepost CommandType = "Repost"
	CommandTypeQuote  CommandType = "Quote"
)

// Post is the normalized form of one source status, built fresh per status
// and consumed once by the dispatcher.
type Post struct {
	StatusID    StatusID
	CreatedAt   time.Time
	Content     string
	Card        *Card
	Command     *Command
	Attachments []Image
}

type Card struct {
	URL          string
	Title        string
	Description  string
	ProviderName string
	Image        *Image
}

type Image struct {
	URL         string
	Width       int
	Height      int
	Data        []byte
	ContentType string
}

type Command struct {
	Type    CommandType
	PostURL string
}
