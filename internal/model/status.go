package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NoStatus is the StatusCode of a record that never received a response.
const NoStatus StatusCode = 0

// StatusCode is an HTTP status code as stored in a crawl record.
// The zero value means "no response" and is rendered as "N/A".
type StatusCode int

// String returns the decimal code, or "N/A" when there was no response.
func (s StatusCode) String() string {
	if s == NoStatus {
		return NotAvailable
	}
	return strconv.Itoa(int(s))
}

// MarshalJSON writes the code as a number, or the string "N/A".
func (s StatusCode) MarshalJSON() ([]byte, error) {
	if s == NoStatus {
		return json.Marshal(NotAvailable)
	}
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts a number or the string "N/A".
func (s *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if text == NotAvailable || text == "" {
			*s = NoStatus
			return nil
		}
		code, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("invalid status code %q: %w", text, err)
		}
		*s = StatusCode(code)
		return nil
	}

	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	*s = StatusCode(code)
	return nil
}
