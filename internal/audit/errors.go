package audit

import (
	"fmt"
	"sort"
	"strings"
)

// ClassificationError is returned when the inactive members of a team could
// not be determined.
type ClassificationError struct {
	Team string
	Err  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("failed to classify members of team %q: %v", e.Team, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// RemovalError records the users that could not be removed from a team.
type RemovalError struct {
	Team      string
	Attempted int
	Failed    map[string]error
}

// Partial reports whether some, but not all, removals failed.
func (e *RemovalError) Partial() bool {
	return len(e.Failed) > 0 && len(e.Failed) < e.Attempted
}

// Users returns the users whose removal failed, sorted.
func (e *RemovalError) Users() []string {
	users := make([]string, 0, len(e.Failed))
	for user := range e.Failed {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

func (e *RemovalError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, user := range e.Users() {
		parts = append(parts, fmt.Sprintf("%s: %v", user, e.Failed[user]))
	}
	return fmt.Sprintf("failed to remove %d of %d users from team %q: %s",
		len(e.Failed), e.Attempted, e.Team, strings.Join(parts, "; "))
}

// NotificationError is returned when a team's message could not be delivered.
type NotificationError struct {
	Team    string
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to notify channel %q for team %q: %v", e.Channel, e.Team, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
