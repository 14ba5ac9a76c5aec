package pushover

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Status is the API status field of a response body.
type Status int

const (
	StatusFailure Status = 0
	StatusSuccess Status = 1
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failure"
}

// Rate limit headers sent with every API response.
const (
	HeaderAppLimit     = "X-Limit-App-Limit"
	HeaderAppRemaining = "X-Limit-App-Remaining"
	HeaderAppReset     = "X-Limit-App-Reset"
)

// Response is a parsed API response. Optional values are nil when the API
// did not send them or sent them empty, zero or malformed.
type Response struct {
	Status  *Status
	Group   *string
	Devices []string
	Request *string
	Errors  []string

	AppLimit     *int
	AppRemaining *int
	AppReset     *time.Time

	Acknowledged    *bool
	AcknowledgedAt  *time.Time
	AcknowledgedBy  *string
	LastDeliveredAt *time.Time
	Expired         *bool
	ExpiresAt       *time.Time
	CalledBack      *bool
	CalledBackAt    *time.Time
	Receipt         *string
}

func (r *Response) Succeeded() bool {
	return r != nil && r.Status != nil && *r.Status == StatusSuccess
}

func (r *Response) IsAcknowledged() bool {
	return r != nil && r.Acknowledged != nil && *r.Acknowledged
}

// ParseResponse parses raw response text: an optional status line, header
// lines and a JSON body starting on the first line that begins with '{'.
// Any status of 400 or above is returned as an *APIError.
func ParseResponse(raw string) (*Response, error) {
	statusCode := 0
	header := make(http.Header)
	var body string

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "{") {
			body = strings.TrimSpace(strings.Join(append([]string{line}, lines[i+1:]...), "\n"))
			break
		}

		if len(line) >= 5 && strings.EqualFold(line[:5], "HTTP/") {
			statusCode = statusCodeFromLine(line)
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	return NewResponse(statusCode, header, []byte(body))
}

// NewResponse builds a Response from an already separated status code, header and body.
func NewResponse(statusCode int, header http.Header, body []byte) (*Response, error) {
	r := &Response{}
	r.parseHeader(header)
	r.parseBody(body)

	if statusCode >= http.StatusBadRequest {
		return nil, newAPIError(statusCode, r.Errors, r.AppReset)
	}
	return r, nil
}

// statusCodeFromLine reads the code at its fixed position in "HTTP/x.y NNN reason".
func statusCodeFromLine(line string) int {
	if len(line) < 12 {
		return 0
	}
	code, err := strconv.Atoi(line[9:12])
	if err != nil {
		return 0
	}
	return code
}

func (r *Response) parseHeader(header http.Header) {
	if header == nil {
		return
	}

	if v, ok := headerInt(header, HeaderAppLimit); ok {
		r.AppLimit = &v
	}
	if v, ok := headerInt(header, HeaderAppRemaining); ok {
		r.AppRemaining = &v
	}
	if v, ok := headerInt(header, HeaderAppReset); ok {
		reset := time.Unix(int64(v), 0).UTC()
		r.AppReset = &reset
	}
}

func headerInt(header http.Header, key string) (int, bool) {
	raw := strings.TrimSpace(header.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r *Response) parseBody(body []byte) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return
	}

	// Any present status other than 1 counts as a failure.
	if raw, present := payload["status"]; present && raw != nil {
		status := StatusFailure
		if v, ok := jsonInt(raw); ok && v == 1 {
			status = StatusSuccess
		}
		r.Status = &status
	}
	if v, ok := jsonString(payload["group"]); ok && v != "0" {
		r.Group = &v
	}
	if v, ok := jsonStrings(payload["devices"]); ok {
		r.Devices = v
	}
	if v, ok := jsonString(payload["request"]); ok {
		r.Request = &v
	}
	if v, ok := jsonStrings(payload["errors"]); ok {
		r.Errors = v
	}

	r.Acknowledged = jsonFlag(payload["acknowledged"])
	r.AcknowledgedAt = jsonTime(payload["acknowledged_at"])
	if v, ok := jsonString(payload["acknowledged_by"]); ok {
		r.AcknowledgedBy = &v
	}
	r.LastDeliveredAt = jsonTime(payload["last_delivered_at"])
	r.Expired = jsonFlag(payload["expired"])
	r.ExpiresAt = jsonTime(payload["expires_at"])
	r.CalledBack = jsonFlag(payload["called_back"])
	r.CalledBackAt = jsonTime(payload["called_back_at"])
	if v, ok := jsonString(payload["receipt"]); ok {
		r.Receipt = &v
	}
}

// jsonInt accepts JSON numbers and numeric strings holding whole values.
func jsonInt(v any) (int64, bool) {
	switch value := v.(type) {
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return n, true
		}
		f, err := value.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		if value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// jsonString returns non-empty strings; numbers are rendered in decimal.
func jsonString(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		if value == "" {
			return "", false
		}
		return value, true
	case json.Number:
		if n, err := value.Int64(); err == nil && n == 0 {
			return "", false
		}
		return value.String(), true
	}
	return "", false
}

func jsonStrings(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		switch value := item.(type) {
		case string:
			out = append(out, value)
		case json.Number:
			out = append(out, value.String())
		}
	}
	return out, true
}

func jsonFlag(v any) *bool {
	n, ok := jsonInt(v)
	if !ok {
		return nil
	}
	flag := n == 1
	return &flag
}

func jsonTime(v any) *time.Time {
	n, ok := jsonInt(v)
	if !ok || n <= 0 {
		return nil
	}
	t := time.Unix(n, 0).UTC()
	return &t
}
