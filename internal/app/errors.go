package app

import "fmt"

// DomainError is an expected failure with a client-facing shape: Code is a
// stable machine token (FORBIDDEN, PERMISSION_DENIED, NOT_FOUND, ...) and
// Message is safe to show verbatim. mapError in http.go renders these as-is;
// anything else becomes a generic 500.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
