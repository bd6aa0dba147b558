package error

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericErrors(t *testing.T) {
	cases := []struct {
		err    GenericError
		code   string
		status int
	}{
		{NotFoundError("schedule not found"), "NOT_FOUND_ERROR", http.StatusNotFound},
		{ValidationError("name: cannot be blank."), "VALIDATION_ERROR", http.StatusBadRequest},
		{InternalServerError("boom"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
		{ConflictError("locked"), "CONFLICT", http.StatusConflict},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.err.ErrCode())
		assert.Equal(t, c.status, c.err.StatusCode())
		assert.NotEmpty(t, c.err.Error())
	}
}
