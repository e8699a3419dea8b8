package channel

import "errors"

var (
	// ErrNoChannel means the outbound message names a channel the
	// dispatcher has never seen.
	ErrNoChannel = errors.New("channel: unknown channel")

	// ErrDuplicateChannel means two channels tried to register under the
	// same name.
	ErrDuplicateChannel = errors.New("channel: duplicate channel name")

	// ErrNoInbox means a channel received an update before its inbox
	// callback was wired.
	ErrNoInbox = errors.New("channel: inbox not set")
)
