package pushover

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Request is one of *Message, *Validate or *Receipt.
type Request interface {
	// Fields returns the form fields submitted for the request, without the app token.
	Fields() map[string]string

	entryPoint() string
}

// Entry points relative to the API base URL.
const (
	EntryPointMessage  = "messages"
	EntryPointValidate = "users/validate"
	EntryPointReceipt  = "receipts/{receipt}"
)

// Form field names.
const (
	FieldToken     = "token"
	FieldRecipient = "user"
	FieldMessage   = "message"
	FieldTitle     = "title"
	FieldDevice    = "device"
	FieldURL       = "url"
	FieldURLTitle  = "url_title"
	FieldPriority  = "priority"
	FieldTimestamp = "timestamp"
	FieldSound     = "sound"
	FieldCallback  = "callback"
	FieldExpire    = "expire"
	FieldRetry     = "retry"
)

var (
	tokenPattern  = regexp.MustCompile(`(?i)^[0-9a-z]{30}$`)
	devicePattern = regexp.MustCompile(`(?i)^[0-9a-z_-]{0,25}$`)
)

// Priority is the delivery priority of a message.
type Priority int

const (
	PriorityInvisible Priority = -2
	PrioritySilent    Priority = -1
	PriorityNormal    Priority = 0
	PriorityHigh      Priority = 1
	PriorityEmergency Priority = 2
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityInvisible, PrioritySilent, PriorityNormal, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

func (p Priority) String() string {
	switch p {
	case PriorityInvisible:
		return "invisible"
	case PrioritySilent:
		return "silent"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityEmergency:
		return "emergency"
	}
	return strconv.Itoa(int(p))
}

// ParsePriority accepts a priority name or its numeric API value.
func ParsePriority(s string) (Priority, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, p := range []Priority{PriorityInvisible, PrioritySilent, PriorityNormal, PriorityHigh, PriorityEmergency} {
		if normalized == p.String() || normalized == strconv.Itoa(int(p)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid priority %q", ErrInvalidArgument, s)
}

// Expire and retry bounds, in seconds.
const (
	MinExpire     = 1
	MaxExpire     = 86400
	DefaultExpire = 3600
	MinRetry      = 30
	MaxRetry      = 86400
	DefaultRetry  = 30
)

// Length limits, in characters.
const (
	MaxMessageLength  = 512
	MaxTitleLength    = 100
	MaxURLLength      = 512
	MaxURLTitleLength = 100
)

// ParseSeconds converts a numeric string such as an expire or retry value to an int.
func ParseSeconds(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number of seconds", ErrInvalidArgument, s)
	}
	return n, nil
}

// IsValidToken reports whether token has the shape of an application, user, group or receipt token.
func IsValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

func validateToken(field, token string) error {
	if !IsValidToken(token) {
		return fmt.Errorf("%w: invalid %s %q, token should be a 30-character alphanumeric string", ErrInvalidArgument, field, token)
	}
	return nil
}

func validateDevice(device string) error {
	if !devicePattern.MatchString(device) {
		return fmt.Errorf("%w: invalid device %q, must contain only a-z, A-Z, 0-9, _ or - and be 25 characters or less", ErrInvalidArgument, device)
	}
	return nil
}

func validateText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, field)
	}
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s is too long, cannot be more than %d characters", ErrInvalidArgument, field, maxLen)
	}
	return nil
}
