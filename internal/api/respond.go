package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const (
	defaultSkip  = 0
	defaultLimit = 100
)

type message struct {
	Message string `json:"message"`
}

type fieldError struct {
	Loc string `json:"loc"`
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError sends {"detail": detail}.
func writeError(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// writeStoreError maps store sentinels to client errors and logs the rest.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "Record already exists")
	default:
		serverError(w, r, err)
	}
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, []fieldError{{Loc: "body", Msg: err.Error()}})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusUnprocessableEntity, []fieldError{{Loc: "body", Msg: err.Error()}})
			return false
		}
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Loc: fe.Field(), Msg: validationMessage(fe)})
		}
		writeError(w, http.StatusUnprocessableEntity, out)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "value is not a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	}
	return "failed on " + fe.Tag()
}

// pathID parses a numeric URL parameter. It writes a 422 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, []fieldError{{Loc: name, Msg: "value is not a valid integer"}})
		return 0, false
	}
	return id, true
}

// query reads typed query parameters, collecting parse errors so a handler
// can report them all at once.
type query struct {
	values url.Values
	errs   []fieldError
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) fail(name, msg string) {
	q.errs = append(q.errs, fieldError{Loc: name, Msg: msg})
}

func (q *query) String(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *query) Int(name string, def int) int {
	raw := q.String(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "value is not a valid integer")
		return def
	}
	return v
}

func (q *query) OptInt64(name string) *int64 {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, "value is not a valid integer")
		return nil
	}
	return &v
}

func (q *query) Float(name string, def float64) float64 {
	if v := q.OptFloat(name); v != nil {
		return *v
	}
	return def
}

func (q *query) OptFloat(name string) *float64 {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, "value is not a valid number")
		return nil
	}
	return &v
}

func (q *query) Bool(name string, def bool) bool {
	raw := q.String(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "value could not be parsed to a boolean")
		return def
	}
	return v
}

// Page reads skip and limit.
func (q *query) Page() store.Page {
	p := store.Page{Skip: q.Int("skip", defaultSkip), Limit: q.Int("limit", defaultLimit)}
	if p.Skip < 0 {
		q.fail("skip", "must be at least 0")
	}
	if p.Limit < 1 {
		q.fail("limit", "must be at least 1")
	}
	return p
}

// Require records a missing parameter when v is nil.
func (q *query) Require(name string, v *float64) {
	if v == nil && q.String(name) == "" {
		q.fail(name, "field required")
	}
}

func (q *query) Min(name string, v, low int) {
	if v < low {
		q.fail(name, fmt.Sprintf("must be at least %d", low))
	}
}

// ok writes a 422 listing the collected errors, if any.
func (q *query) ok(w http.ResponseWriter) bool {
	if len(q.errs) == 0 {
		return true
	}
	writeError(w, http.StatusUnprocessableEntity, q.errs)
	return false
}
