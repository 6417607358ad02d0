package types

// User is the identity a connection assumes after joining a room. There is
// at most one User per live connection; its ID is the connection's ID.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Message is a chat message as stored in history and relayed to clients.
// Timestamps are ISO-8601 strings. IDs are time-derived and not guaranteed
// unique under clock coincidence.
type Message struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Room      string `json:"room"`
}
