package domain

// Step identifies where a user is inside a multi-step flow
type Step string

const (
	StepIdle                 Step = "idle"
	StepAwaitingWiFiSSID     Step = "awaiting_wifi_ssid"
	StepAwaitingWiFiPassword Step = "awaiting_wifi_password"
	StepAwaitingRecipientID  Step = "awaiting_recipient_id"
	StepAwaitingMessageBody  Step = "awaiting_message_body"
)

// Conversation is the per-user flow state. Only the field matching Step is
// meaningful: SSID for StepAwaitingWiFiPassword, RecipientID for
// StepAwaitingMessageBody.
type Conversation struct {
	Step        Step
	SSID        string
	RecipientID int64
}

// Active reports whether the user is inside a flow
func (c Conversation) Active() bool {
	return c.Step != "" && c.Step != StepIdle
}

// Effect is the side effect a transition asks the caller to perform
type Effect int

const (
	EffectNone Effect = iota
	// EffectAskPassword: SSID stored, prompt for the password
	EffectAskPassword
	// EffectEmitWiFi: flow finished, render Transition.Payload as QR
	EffectEmitWiFi
	// EffectAskBody: recipient stored, prompt for the message body
	EffectAskBody
	// EffectRejectRecipient: recipient text was not an integer, state kept
	EffectRejectRecipient
	// EffectDeliver: flow finished, send Transition.Body to Transition.RecipientID
	EffectDeliver
)

// Transition describes one applied state change
type Transition struct {
	From        Step
	To          Step
	Effect      Effect
	Payload     string
	RecipientID int64
	Body        string
}
