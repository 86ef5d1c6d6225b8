package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/IlyushaZ/vinyl-store/pkg/identity"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
)

type ListPageResp[T any] struct {
	Page  []T `json:"page"`
	Total int `json:"total"`
}

type ErrorResp struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Kind    model.ErrorKind `json:"kind"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// PrincipalHandler is a handler which gets the caller resolved from request's bearer token.
type PrincipalHandler func(w http.ResponseWriter, r *http.Request, p model.Principal)

// Authenticated resolves the caller before calling h. Requests without token are rejected unless optional is set,
// in which case h gets an anonymous principal. A token which can't be verified is always rejected.
func Authenticated(idp identity.Provider, optional bool, h PrincipalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			if !optional {
				WriteError(w, model.ErrUnauthenticated)
				return
			}

			h(w, r, model.Principal{})
			return
		}

		p, err := idp.Authenticate(r.Context(), token)
		if err != nil {
			WriteError(w, err)
			return
		}

		h(w, r, p)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		// present but malformed, let provider reject it
		return h, true
	}

	return strings.TrimSpace(token), true
}

func statusOf(kind model.ErrorKind) int {
	switch kind {
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindValidation, model.KindConflict:
		return http.StatusBadRequest
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as JSON error body. Errors which are not domain errors are logged and hidden from client.
func WriteError(w http.ResponseWriter, err error) {
	var e *model.Error
	if !errors.As(err, &e) {
		slog.Error("internal error", slog.Any("error", err))
		e = model.AsError(err)
	}

	writeJSON(w, statusOf(e.Kind), ErrorResp{ErrorBody{e.Kind, e.Code, e.Message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("can't encode response", slog.Any("error", err))
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.Invalid(fmt.Sprintf("can't decode request body: %v", err))
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, model.Invalid(fmt.Sprintf("can't parse %s: %v", name, err))
	}
	return id, nil
}

func pageParams(r *http.Request) (pageNum, pageSize int, err error) {
	q := r.URL.Query()
	pageNum, pageSize = service.DefaultPageNum, service.DefaultPageSize

	if pn := q.Get("page_num"); pn != "" {
		pageNum, err = strconv.Atoi(pn)
		if err != nil {
			return 0, 0, model.Invalid(fmt.Sprintf("can't parse page_num: %v", err))
		}
	}

	if ps := q.Get("page_size"); ps != "" {
		pageSize, err = strconv.Atoi(ps)
		if err != nil {
			return 0, 0, model.Invalid(fmt.Sprintf("can't parse page_size: %v", err))
		}
	}

	return pageNum, pageSize, nil
}
