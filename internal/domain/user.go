package domain

// User represents a registered bot user
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	IsPremium bool   `json:"is_premium"`
}

// Sender identifies who produced an inbound update
type Sender struct {
	ID       int64
	Username string
	FullName string
}

// DisplayUsername returns "@name" or "None" when the user has no username
func (s Sender) DisplayUsername() string {
	if s.Username == "" {
		return "None"
	}
	return "@" + s.Username
}
