package channel

import "strings"

// AllowList controls which users and chats are permitted to use the
// Assistant. An empty or nil AllowList denies everyone — the bot must be
// explicitly told who its operator is.
type AllowList struct {
	users  map[string]struct{}
	groups map[string]struct{}
}

// NewAllowList creates an AllowList with O(1) lookups. Keys are trimmed and
// lowercased at construction time so lookups can use direct map access.
func NewAllowList(users, groups []string) *AllowList {
	a := &AllowList{
		users:  make(map[string]struct{}, len(users)),
		groups: make(map[string]struct{}, len(groups)),
	}
	for _, u := range users {
		a.users[normalize(u)] = struct{}{}
	}
	for _, g := range groups {
		a.groups[normalize(g)] = struct{}{}
	}
	return a
}

// AllowsUser reports whether the user ID is an authorized user.
func (a *AllowList) AllowsUser(userID string) bool {
	if a == nil {
		return false
	}
	_, ok := a.users[normalize(userID)]
	return ok
}

// AllowsChat reports whether the chat ID is an allowed group chat.
func (a *AllowList) AllowsChat(chatID string) bool {
	if a == nil {
		return false
	}
	_, ok := a.groups[normalize(chatID)]
	return ok
}

// Users returns the normalized authorized user IDs.
func (a *AllowList) Users() []string {
	if a == nil {
		return nil
	}
	users := make([]string, 0, len(a.users))
	for u := range a.users {
		users = append(users, u)
	}
	return users
}

// IsEmpty reports whether the allow list permits no one.
func (a *AllowList) IsEmpty() bool {
	return a == nil || (len(a.users) == 0 && len(a.groups) == 0)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
