package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/cache"
	"github.com/jonwraymond/thumbnails/observe"
	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/transform"
)

// Sentinel is prepended to the {name} path segment before lookup.
const Sentinel = "#"

type errorBody struct {
	Error string `json:"error"`
}

// InvalidateResponse is the body of a successful manual invalidation.
type InvalidateResponse struct {
	Dropped int `json:"dropped"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// login opens a session for the request's bearer token. On failure the
// response has already been written.
func (s *Server) login(w http.ResponseWriter, r *http.Request) (repository.Session, bool) {
	sess, err := s.repo.Login(r.Context(), repository.Credentials{Token: bearerToken(r)})
	if err == nil {
		return sess, true
	}
	if errors.Is(err, repository.ErrAccessDenied) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="thumbnails"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	s.logger.Error(r.Context(), "login failed", observe.F("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "repository unavailable")
	return nil, false
}

func (s *Server) closeSession(ctx context.Context, sess repository.Session) {
	if err := sess.Close(); err != nil {
		s.logger.Warn(ctx, "closing caller session", observe.F("error", err.Error()))
	}
}

func (s *Server) handleTransformation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.login(w, r)
	if !ok {
		return
	}
	ctx := auth.WithIdentity(r.Context(), sess.Identity())
	defer s.closeSession(ctx, sess)

	name := Sentinel + r.PathValue("name")
	t, found, err := s.svc.Transformation(ctx, sess, name)
	switch {
	case errors.Is(err, cache.ErrInvalidName), errors.Is(err, cache.ErrNameTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transform.ErrAccessFailure):
		s.logger.Error(ctx, "transformation lookup failed",
			observe.F("name", name), observe.F("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "repository unavailable")
	case err != nil:
		s.logger.Error(ctx, "transformation lookup failed",
			observe.F("name", name), observe.F("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "lookup failed")
	case !found:
		writeError(w, http.StatusNotFound, "no transformation named "+r.PathValue("name"))
	default:
		writeJSON(w, http.StatusOK, t)
	}
}

// admin logs the caller in and requires the admin role. The session is only
// used to authenticate and is closed before returning.
func (s *Server) admin(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	sess, ok := s.login(w, r)
	if !ok {
		return nil, false
	}
	id := sess.Identity()
	ctx := auth.WithIdentity(r.Context(), id)
	s.closeSession(ctx, sess)

	if id == nil || !id.HasRole(s.adminRole) {
		writeError(w, http.StatusForbidden, "role "+s.adminRole+" required")
		return nil, false
	}
	return ctx, true
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.admin(w, r)
	if !ok {
		return
	}
	info, err := s.checker.Info(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.admin(w, r)
	if !ok {
		return
	}
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "invalidation rate exceeded")
		return
	}

	dropped := s.svc.InvalidateAll(ctx)
	s.logger.Info(ctx, "manual invalidation", observe.F("dropped", dropped))
	writeJSON(w, http.StatusOK, InvalidateResponse{Dropped: dropped})
}
