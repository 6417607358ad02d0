package server

import "slices"

// PresenceTracker holds the per-room set of usernames currently flagged as
// typing. State is ephemeral: the client drives start/stop signals and the
// server holds no expiry timer. Only the dispatch goroutine touches it.
type PresenceTracker struct {
	typing map[string]map[string]struct{}
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		typing: make(map[string]map[string]struct{}),
	}
}

// SetTyping adds or removes username from room's typing set. Setting the
// same state twice is a no-op on the set itself.
func (p *PresenceTracker) SetTyping(room, username string, isTyping bool) {
	if isTyping {
		if p.typing[room] == nil {
			p.typing[room] = make(map[string]struct{})
		}
		p.typing[room][username] = struct{}{}
		return
	}

	delete(p.typing[room], username)
	if len(p.typing[room]) == 0 {
		delete(p.typing, room)
	}
}

// TypingUsers returns the usernames typing in room, sorted for deterministic
// output.
func (p *PresenceTracker) TypingUsers(room string) []string {
	users := make([]string, 0, len(p.typing[room]))
	for username := range p.typing[room] {
		users = append(users, username)
	}
	slices.Sort(users)
	return users
}
