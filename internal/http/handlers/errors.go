package handlers

import (
	"net/http"

	"server/internal/domain"
)

// statusByKind is the single place a domain error kind becomes an HTTP
// status. Handlers pass errors through domainError instead of choosing
// statuses themselves.
var statusByKind = map[domain.ErrorKind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindInvalidState: http.StatusConflict,
	domain.KindConflict:     http.StatusConflict,
	domain.KindProvider:     http.StatusBadGateway,
	domain.KindInternal:     http.StatusInternalServerError,
}

func (a *App) domainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the log, not the response.
		a.Logger.Error().Err(err).Msg("handler: internal error")
		message = "internal error"
	}
	a.error(w, status, string(kind), message)
}
