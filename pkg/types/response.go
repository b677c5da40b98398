package types

// SuccessEnvelope wraps every 2xx JSON body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// Page is one page of a cursor listing. NextCursor is the opaque token for
// the following page and is omitted on the last page.
type Page struct {
	Items      any     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// APIError is the wire form of a request failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx JSON body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
