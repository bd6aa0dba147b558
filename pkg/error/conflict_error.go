package error

import "net/http"

// ConflictError reports a write that collides with an existing record.
type ConflictError string

func (err ConflictError) Error() string {
	return string(err)
}

func (err ConflictError) ErrCode() string {
	return "CONFLICT"
}

func (err ConflictError) StatusCode() int {
	return http.StatusConflict
}
