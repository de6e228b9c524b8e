package mail

import "github.com/pkg/errors"

var (
	// ErrFileNotFound is returned by FromPath when the path is not a regular file.
	ErrFileNotFound = errors.New("file not found")
	// ErrMailerClosed is returned when sending through a closed mailer.
	ErrMailerClosed = errors.New("mailer is closed")
	// ErrNoRecipients is returned by transports when To, Cc and Bcc are all empty.
	ErrNoRecipients = errors.New("no recipients specified")
	// ErrNoSender is returned by transports when no from address is known.
	ErrNoSender = errors.New("no from address specified")
	// ErrInvalidFilename is returned by file based transports for an empty filename.
	ErrInvalidFilename = errors.New("invalid filename")
)
