package docservice

import (
	"errors"
	"fmt"
)

// One sentinel per remote operation. Every error returned by a verb matches
// that verb's sentinel; when the failure came from the token exchange it also
// matches ErrAuth. A bare exchange through the Authenticator matches ErrAuth only.
var (
	ErrAuth             = errors.New("authentication failed")
	ErrTaskStart        = errors.New("task start failed")
	ErrUpload           = errors.New("upload failed")
	ErrProcess          = errors.New("process failed")
	ErrDownload         = errors.New("download failed")
	ErrDownloadTooLarge = fmt.Errorf("%w: artifact exceeds size limit", ErrDownload)
)

const maxErrorBody = 512

// StatusError records a non-2xx response from the remote service.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}
