package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Redactor replaces secret values in strings with a redaction placeholder.
// It supports both regex pattern matching (for known token formats) and
// literal value matching (for credentials loaded at runtime).
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with default patterns for the
// token formats this program handles.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddLiteral registers an exact secret value to mask wherever it appears.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// SyncCredentials replaces the literal set with the current contents of
// the credential store.
func (r *Redactor) SyncCredentials(store *CredentialStore) {
	values := store.Values()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = values
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}

	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	return s
}

// DefaultPatterns returns compiled regex patterns for the credential formats
// this program touches.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Telegram bot token: <bot_id>:<35-char hash>. Requires the bot
		// prefix or a minimum hash length so ordinary id:value pairs in
		// logs are not mangled.
		regexp.MustCompile(`\d{6,}:[A-Za-z0-9_-]{30,}`),
		// Google OAuth2 access token.
		regexp.MustCompile(`ya29\.[A-Za-z0-9_-]{20,}`),
		// Google OAuth2 refresh token.
		regexp.MustCompile(`1//[A-Za-z0-9_-]{20,}`),
		// Google OAuth2 client secret (new-style prefix).
		regexp.MustCompile(`GOCSPX-[A-Za-z0-9_-]{10,}`),
	}
}
