package credential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	statusOK       = "200"
	ecsCodeSuccess = "Success"

	// epoch values above this are taken as milliseconds
	epochMillisThreshold = 1e12
)

// sessionPayload is the json document returned by custom credential servers
// and the instance metadata service.
type sessionPayload struct {
	AccessKeyID     string          `json:"AccessKeyId"`
	AccessKeySecret string          `json:"AccessKeySecret"`
	SecurityToken   string          `json:"SecurityToken"`
	Expiration      json.RawMessage `json:"Expiration"`

	// StatusCode is set by auth servers, Code by ecs metadata.
	StatusCode json.RawMessage `json:"StatusCode"`
	Code       string          `json:"Code"`
}

func parseSessionPayload(fetcher string, body []byte) (*Credentials, error) {
	p := &sessionPayload{}
	if err := json.Unmarshal(body, p); err != nil {
		return nil, newFetchError(fetcher, FetchErrorMalformed, err)
	}

	if status := rawString(p.StatusCode); status != "" && status != statusOK {
		return nil, newFetchError(fetcher, FetchErrorSource, fmt.Errorf("server returned status %s", status))
	}
	if p.Code != "" && p.Code != ecsCodeSuccess {
		return nil, newFetchError(fetcher, FetchErrorSource, fmt.Errorf("server returned code %s", p.Code))
	}
	if p.AccessKeyID == "" {
		return nil, newFetchError(fetcher, FetchErrorMissingField, fmt.Errorf("AccessKeyId is empty"))
	}
	if p.AccessKeySecret == "" {
		return nil, newFetchError(fetcher, FetchErrorMissingField, fmt.Errorf("AccessKeySecret is empty"))
	}

	expiration, err := parseExpiration(p.Expiration)
	if err != nil {
		return nil, newFetchError(fetcher, FetchErrorMalformed, err)
	}

	c := NewCredentials(p.AccessKeyID, p.AccessKeySecret, p.SecurityToken, expiration)
	c.ProviderName = fetcher
	return c, nil
}

// rawString accepts both "200" and 200.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseExpiration accepts RFC3339 strings and epoch seconds or milliseconds,
// either as json numbers or numeric strings.
func parseExpiration(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(rawString(raw))
	if s == "" {
		return time.Time{}, nil
	}
	return ParseExpiration(s)
}

// ParseExpiration an empty string yields the zero time.
func ParseExpiration(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised expiration %q", s)
	}
	if n > epochMillisThreshold {
		return time.UnixMilli(int64(n)), nil
	}
	return time.Unix(int64(n), 0), nil
}
