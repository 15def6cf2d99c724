package postshot

import (
	"errors"
	"fmt"
)

// ErrRejected is returned by a TextRenderer when the oracle refused the request,
// which in practice means the text did not fit its output width.
var ErrRejected = errors.New("render request rejected")

// UpstreamAPIError is returned when the post API answered with a non-200 status or an unreadable body.
type UpstreamAPIError struct {
	Status  int
	Message string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("post API error %d: %s", e.Status, e.Message)
}

// NoContentError is returned when the fetched post has no text to render.
type NoContentError struct {
	PostID string
}

func (e *NoContentError) Error() string {
	return fmt.Sprintf("no post text: %s", e.PostID)
}

// RenderOracleError is returned when the text or compositing oracle failed for a reason other than rejection.
type RenderOracleError struct {
	Status int
	Reason string
}

func (e *RenderOracleError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("render oracle error: %s", e.Reason)
	case e.Reason == "":
		return fmt.Sprintf("render oracle error %d", e.Status)
	default:
		return fmt.Sprintf("render oracle error %d: %s", e.Status, e.Reason)
	}
}

// UnprocessableInputError is returned when line breaking ran out of ways to shrink a token.
type UnprocessableInputError struct {
	Token string
}

func (e *UnprocessableInputError) Error() string {
	return fmt.Sprintf("failed to fit token %q into a line", e.Token)
}

// AssetFetchWarning reports a failed optional picture download. It never aborts rendering.
type AssetFetchWarning struct {
	URL    string
	Status int
	Err    error
}

func (e *AssetFetchWarning) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset download failed %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("asset download failed %s: status code %d", e.URL, e.Status)
}

func (e *AssetFetchWarning) Unwrap() error {
	return e.Err
}

const genericErrorMessage = "Failed to process post :("

// ErrorMessage returns the text shown on the error image for err.
func ErrorMessage(err error) string {
	var (
		upstream      *UpstreamAPIError
		noContent     *NoContentError
		oracle        *RenderOracleError
		unprocessable *UnprocessableInputError
	)
	switch {
	case errors.As(err, &upstream):
		return fmt.Sprintf("Post API error %d: %s", upstream.Status, upstream.Message)
	case errors.As(err, &noContent):
		return "No post text"
	case errors.As(err, &oracle):
		return oracle.Error()
	case errors.As(err, &unprocessable):
		return genericErrorMessage
	default:
		return genericErrorMessage
	}
}

// IsHandled reports whether err belongs to the known failure taxonomy.
func IsHandled(err error) bool {
	var (
		upstream      *UpstreamAPIError
		noContent     *NoContentError
		oracle        *RenderOracleError
		unprocessable *UnprocessableInputError
	)
	return errors.As(err, &upstream) || errors.As(err, &noContent) ||
		errors.As(err, &oracle) || errors.As(err, &unprocessable)
}

func isRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
