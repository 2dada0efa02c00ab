package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"clinic-backend/internal/triage"
	"clinic-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

func ParseRequestQueryParams[T any](r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		slog.Error("error parsing form", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&data, r.Form); err != nil {
		slog.Error("error decoding query params", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	return data, nil
}

// RestHandler converts a handler's (result, error) into a JSON response.
// Errors are rendered as {"error": "..."} with the coded status; uncoded
// errors become opaque 500s so internals never leak to the client.
func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			var cerr *codedError
			if errors.As(err, &cerr) {
				WriteErrorResponse(w, cerr.code, err.Error())
				if cerr.code == http.StatusInternalServerError {
					slog.Error("internal server error received in endpoint", "error", err)
				}
			} else {
				slog.Error("received non coded error from endpoint", "error", err)
				WriteErrorResponse(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error serializing response body", "error", err)
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
	}
}

func WriteErrorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: message}); err != nil {
		slog.Error("error serializing error response", "error", err)
	}
}

func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	param := chi.URLParam(r, key)

	if len(param) == 0 {
		return uuid.Nil, CodedErrorf(http.StatusBadRequest, "missing {%v} url parameter", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, CodedErrorf(http.StatusBadRequest, "invalid uuid '%v' url parameter provided: %w", key, err)
	}

	return id, nil
}

func URLParamInt64(r *http.Request, key string) (int64, error) {
	param := chi.URLParam(r, key)

	if len(param) == 0 {
		return 0, CodedErrorf(http.StatusBadRequest, "missing {%v} url parameter", key)
	}

	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return 0, CodedErrorf(http.StatusBadRequest, "invalid numeric '%v' url parameter provided: %w", key, err)
	}

	return id, nil
}

const maxMultipartMemory = 32 << 20 // 32 MB

// ParseMultipartTurn reads the message/image/file fields shared by the chat
// endpoints.
func ParseMultipartTurn(r *http.Request) (triage.TurnInput, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return triage.TurnInput{}, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form")
	}

	image, err := formAttachment(r, "image")
	if err != nil {
		return triage.TurnInput{}, err
	}
	file, err := formAttachment(r, "file")
	if err != nil {
		return triage.TurnInput{}, err
	}

	return triage.TurnInput{
		Message: r.FormValue("message"),
		Image:   image,
		File:    file,
	}, nil
}

func formAttachment(r *http.Request, field string) (*triage.Attachment, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to read uploaded %s", field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to read uploaded %s", field)
	}

	return &triage.Attachment{Filename: header.Filename, Data: data}, nil
}

func FormFloat(r *http.Request, field string) (float64, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, CodedErrorf(http.StatusBadRequest, "%s is required and must be a valid number", field)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, CodedErrorf(http.StatusBadRequest, "%s is required and must be a valid number", field)
	}
	return value, nil
}

type userIDContextKey struct{}

// UserIdentity resolves the authenticated caller. Authentication itself is an
// upstream concern; the proxy in front of this service sets X-User-Id after
// verifying credentials.
func UserIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			WriteErrorResponse(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDContextKey{}).(string)
	return userID
}
