package domain

// ParseMode selects how the transport formats message text
type ParseMode string

const (
	ParsePlain ParseMode = ""
	ParseHTML  ParseMode = "HTML"
)

// Button is an inline keyboard button. Exactly one of Data or
// SwitchInlineQuery should be set.
type Button struct {
	Text              string
	Data              string
	SwitchInlineQuery string
}

// Keyboard is a list of button rows
type Keyboard [][]Button

// Message is an outbound text message
type Message struct {
	Text      string
	ParseMode ParseMode
	Keyboard  Keyboard
}

// PlainMessage builds an unformatted message
func PlainMessage(text string) Message {
	return Message{Text: text}
}

// HTMLMessage builds an HTML-formatted message
func HTMLMessage(text string) Message {
	return Message{Text: text, ParseMode: ParseHTML}
}

// InlineResult is a photo answer to an inline query
type InlineResult struct {
	ID      string
	Image   []byte
	Caption string
}

// InlineAnswer is the full response to an inline query
type InlineAnswer struct {
	Results   []InlineResult
	CacheTime int

	// Prompt is shown above the results and opens a private chat with
	// PromptParam as the /start payload.
	Prompt      string
	PromptParam string
}
