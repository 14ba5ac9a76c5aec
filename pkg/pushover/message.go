package pushover

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// Message is a request to push a notification to a user or group.
// Every setter validates its input and leaves the message untouched on error.
type Message struct {
	recipient string
	message   string
	title     string
	device    *string
	url       string
	urlTitle  string
	priority  *Priority
	timestamp *int64
	sound     Sound
	callback  string
	expire    int
	retry     int
}

func NewMessage(recipient, body string) (*Message, error) {
	m := &Message{}
	if err := m.SetRecipient(recipient); err != nil {
		return nil, err
	}
	if err := m.SetMessage(body); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) entryPoint() string { return EntryPointMessage }

func (m *Message) SetRecipient(recipient string) error {
	if err := validateToken("recipient token", recipient); err != nil {
		return err
	}
	m.recipient = recipient
	return nil
}

func (m *Message) SetMessage(body string) error {
	if err := validateText("message body", body, 0); err != nil {
		return err
	}
	if utf8.RuneCountInString(body)+utf8.RuneCountInString(m.title) > MaxMessageLength {
		return fmt.Errorf("%w: message is too long, message + title cannot be more than %d characters", ErrInvalidArgument, MaxMessageLength)
	}
	m.message = body
	return nil
}

func (m *Message) SetTitle(title string) error {
	if err := validateText("title", title, MaxTitleLength); err != nil {
		return err
	}
	if utf8.RuneCountInString(title)+utf8.RuneCountInString(m.message) > MaxMessageLength {
		return fmt.Errorf("%w: title is too long, message + title cannot be more than %d characters", ErrInvalidArgument, MaxMessageLength)
	}
	m.title = title
	return nil
}

func (m *Message) SetDevice(device string) error {
	if err := validateDevice(device); err != nil {
		return err
	}
	m.device = &device
	return nil
}

func (m *Message) SetURL(url string) error {
	if err := validateText("url", url, MaxURLLength); err != nil {
		return err
	}
	m.url = url
	return nil
}

// SetURLTitle sets the link text. It is only sent when a URL is set as well.
func (m *Message) SetURLTitle(title string) error {
	if err := validateText("url title", title, MaxURLTitleLength); err != nil {
		return err
	}
	m.urlTitle = title
	return nil
}

func (m *Message) SetPriority(priority Priority) error {
	if !priority.IsValid() {
		return fmt.Errorf("%w: invalid message priority %d", ErrInvalidArgument, int(priority))
	}
	m.priority = &priority
	return nil
}

// SetTimestamp sets the message time as Unix seconds.
func (m *Message) SetTimestamp(unix int64) {
	m.timestamp = &unix
}

func (m *Message) SetTime(t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("%w: invalid message timestamp, time must not be zero", ErrInvalidArgument)
	}
	m.SetTimestamp(t.Unix())
	return nil
}

func (m *Message) SetSound(sound Sound) error {
	if !sound.IsValid() {
		return fmt.Errorf("%w: invalid message sound %q", ErrInvalidArgument, sound)
	}
	m.sound = sound
	return nil
}

// SetCallbackURL sets the URL notified on acknowledgement of an emergency message.
func (m *Message) SetCallbackURL(url string) error {
	if err := validateText("callback url", url, 0); err != nil {
		return err
	}
	m.callback = url
	return nil
}

// SetExpire sets how many seconds an emergency message keeps being retried.
func (m *Message) SetExpire(seconds int) error {
	if seconds < MinExpire || seconds > MaxExpire {
		return fmt.Errorf("%w: expire must be between %d and %d seconds, got %d", ErrInvalidArgument, MinExpire, MaxExpire, seconds)
	}
	m.expire = seconds
	return nil
}

// SetRetry sets the interval in seconds between deliveries of an emergency message.
func (m *Message) SetRetry(seconds int) error {
	if seconds < MinRetry || seconds > MaxRetry {
		return fmt.Errorf("%w: retry must be between %d and %d seconds, got %d", ErrInvalidArgument, MinRetry, MaxRetry, seconds)
	}
	m.retry = seconds
	return nil
}

func (m *Message) SetExpireDuration(d time.Duration) error {
	return m.SetExpire(int(d / time.Second))
}

func (m *Message) SetRetryDuration(d time.Duration) error {
	return m.SetRetry(int(d / time.Second))
}

func (m *Message) Fields() map[string]string {
	fields := map[string]string{
		FieldRecipient: m.recipient,
		FieldMessage:   m.message,
	}

	if m.title != "" {
		fields[FieldTitle] = m.title
	}
	if m.device != nil {
		fields[FieldDevice] = *m.device
	}
	if m.url != "" {
		fields[FieldURL] = m.url
		if m.urlTitle != "" {
			fields[FieldURLTitle] = m.urlTitle
		}
	}
	if m.priority != nil {
		fields[FieldPriority] = strconv.Itoa(int(*m.priority))

		if *m.priority == PriorityEmergency {
			expire, retry := m.expire, m.retry
			if expire == 0 {
				expire = DefaultExpire
			}
			if retry == 0 {
				retry = DefaultRetry
			}
			fields[FieldExpire] = strconv.Itoa(expire)
			fields[FieldRetry] = strconv.Itoa(retry)

			if m.callback != "" {
				fields[FieldCallback] = m.callback
			}
		}
	}
	if m.timestamp != nil {
		fields[FieldTimestamp] = strconv.FormatInt(*m.timestamp, 10)
	}
	if m.sound != SoundUserDefault {
		fields[FieldSound] = m.sound.String()
	}

	return fields
}
