package domain

import "net/url"

type FlowStatus string

const (
	FlowSuccess           FlowStatus = "success"
	FlowNeedsVerification FlowStatus = "needsVerification"
	FlowError             FlowStatus = "error"
)

// Redirect sends the user back to a page with a corrective message.
type Redirect struct {
	Path  string `json:"path"`
	Role  Role   `json:"role,omitempty"`
	Error string `json:"error,omitempty"`
}

func (r Redirect) URL() string {
	q := url.Values{}
	if r.Role != "" {
		q.Set("role", string(r.Role))
	}
	if r.Error != "" {
		q.Set("error", r.Error)
	}
	if len(q) == 0 {
		return r.Path
	}
	return r.Path + "?" + q.Encode()
}

// FlowResult is what the form layer renders after a sign-in or sign-up.
type FlowResult struct {
	Status            FlowStatus  `json:"status"`
	Message           string      `json:"message,omitempty"`
	Role              Role        `json:"role,omitempty"`
	SessionID         string      `json:"sessionId,omitempty"`
	PendingID         string      `json:"pendingId,omitempty"`
	UserID            string      `json:"userId,omitempty"`
	RetryAfterSeconds int         `json:"retryAfterSeconds,omitempty"`
	Redirect          *Redirect   `json:"redirect,omitempty"`
	SignedOut         bool        `json:"signedOut,omitempty"`
	Kind              FailureKind `json:"kind,omitempty"`
}

func (r FlowResult) OK() bool {
	return r.Status == FlowSuccess
}

func Failed(message string) FlowResult {
	return FlowResult{Status: FlowError, Message: message}
}
