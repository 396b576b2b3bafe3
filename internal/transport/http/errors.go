package http

import (
	"errors"
	"net/http"

	"quizdeck/internal/domain"
)

var (
	errInvalidPayload  = errors.New("invalid message payload")
	errUnknownQuiz     = errors.New("unknown quiz id; list quizzes first")
	errUnsupportedType = errors.New("unsupported message type")
	errForbidden       = errors.New("admin group membership required")
)

// statusFor maps the error taxonomy onto HTTP status codes for the REST surface.
func statusFor(err error) int {
	var (
		ve *domain.ValidationError
		re *domain.RemoteError
		ie *domain.ImportError
	)
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ie):
		return http.StatusMultiStatus
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.As(err, &re):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
