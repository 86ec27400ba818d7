package provider

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ErrorThreshold is the lowest response code treated as a failure. Codes
// follow the EPP convention: 1xxx success, 2xxx error.
const ErrorThreshold = 2000

// CodeObjectDoesNotExist is returned when deleting a record that is already
// gone.
const CodeObjectDoesNotExist = 2303

type Response struct {
	Code    *int   `json:"code,omitempty"`
	Message string `json:"msg,omitempty"`
}

// ParseResponse extracts code and message from a reply body. JSON bodies
// ({"code":..,"msg":..}) and header style bodies ("Status-Code: 2303",
// "Status-Text: ...") are understood; anything else yields an empty
// Response.
func ParseResponse(body []byte) Response {
	var resp Response
	if err := json.Unmarshal(body, &resp); err == nil {
		return resp
	}
	for _, line := range strings.Split(string(body), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "status-code":
			if code, err := strconv.Atoi(value); err == nil {
				resp.Code = &code
			}
		case "status-text":
			resp.Message = value
		}
	}
	return resp
}

// Validate fails with a ProviderError when the response carries a code at or
// above ErrorThreshold, unless the code is listed in exclude.
func Validate(resp Response, message string, exclude ...int) error {
	if resp.Code == nil || *resp.Code < ErrorThreshold {
		return nil
	}
	for _, code := range exclude {
		if *resp.Code == code {
			return nil
		}
	}
	return &ProviderError{Context: message, Message: resp.Message, Code: *resp.Code}
}
