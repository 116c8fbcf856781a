package domain

type CtxKey string

const (
	KeySessionID CtxKey = "SessionID"
	KeyAuthToken CtxKey = "AuthToken"
	KeyRequestID CtxKey = "RequestID"
)
