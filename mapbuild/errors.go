package mapbuild

import (
	"fmt"
	"net/http"

	"github.com/hocman2/funmap/chunk"
	"github.com/jamesrr39/goutil/errorsx"
)

const maxBodyInErrorMessage = 200

// TransportError means the batch as a whole could not go on, for example because the pipeline was closed.
// The chunk of the result and every chunk not delivered yet are abandoned.
type TransportError struct {
	Cause errorsx.Error
	// Aborted are the chunks of the batch that had not been delivered yet, not counting the result target
	Aborted []*chunk.Chunk
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error, %d other chunks aborted: %s", len(e.Aborted), e.Cause.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RequestError means no HTTP status could be obtained for one chunk, for example after a timeout or a reset connection.
// Only that chunk fails, the rest of the batch carries on.
type RequestError struct {
	Cause errorsx.Error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Cause.Error())
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// HTTPError is an answer from the map API with a status of 400 or more
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := string(e.Body)
	if len(body) > maxBodyInErrorMessage {
		body = body[:maxBodyInErrorMessage] + "..."
	}
	return fmt.Sprintf("map API answered %d %s: %q", e.StatusCode, http.StatusText(e.StatusCode), body)
}

// InternalError is a failure after a good answer was received, for example an unparseable document
type InternalError struct {
	Cause errorsx.Error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Cause.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}
