package domain

import "context"

// UpdateKind classifies an inbound event
type UpdateKind int

const (
	UpdateCommand UpdateKind = iota
	UpdateText
	UpdatePhoto
	UpdateCallback
	UpdateInlineQuery
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateCommand:
		return "command"
	case UpdateText:
		return "text"
	case UpdatePhoto:
		return "photo"
	case UpdateCallback:
		return "callback"
	case UpdateInlineQuery:
		return "inline_query"
	default:
		return "unknown"
	}
}

// PhotoFetcher downloads the image attached to a photo update
type PhotoFetcher func(ctx context.Context) ([]byte, error)

// Update is a platform-independent inbound event
type Update struct {
	Kind   UpdateKind
	Sender Sender
	ChatID int64

	// Command name without the slash and its arguments
	Command string
	Payload string

	Text string

	Photo PhotoFetcher

	CallbackID   string
	CallbackData string

	QueryID string
	Query   string
}
