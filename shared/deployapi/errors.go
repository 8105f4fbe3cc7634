package deployapi

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteCallError is returned for every non-2xx response. Body holds the
// response text when it could be read.
type RemoteCallError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("failed to call %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a RemoteCallError with a 404 status
func IsNotFound(err error) bool {
	var remoteErr *RemoteCallError
	return errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusNotFound
}
