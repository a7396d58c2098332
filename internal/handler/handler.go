package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wpjson/user-service/internal/apierr"
	"github.com/wpjson/user-service/internal/auth"
	"github.com/wpjson/user-service/internal/models"
	"github.com/wpjson/user-service/internal/service"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	entities, err := h.svc.ListUsers(auth.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entities)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	entity, err := h.svc.GetUser(auth.FromContext(r.Context()), pathID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entity)
}

// EditUser handles POST/PUT/PATCH /users/{id}
func (h *Handler) EditUser(w http.ResponseWriter, r *http.Request) {
	patch := &models.UserPatch{}
	if err := json.NewDecoder(r.Body).Decode(patch); err != nil {
		h.writeError(w, apierr.New("invalid_json", "Request body is not valid JSON.", http.StatusBadRequest))
		return
	}

	entity, err := h.svc.EditUser(auth.FromContext(r.Context()), pathID(r), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entity)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	// A force parameter is accepted for compatibility but the delete is always
	// the same unconditional delete.
	_ = r.URL.Query().Get("force")

	if err := h.svc.DeleteUser(auth.FromContext(r.Context()), pathID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Login handles POST /login and returns a bearer token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeError(w, apierr.New("invalid_json", "Request body is not valid JSON.", http.StatusBadRequest))
		return
	}

	token, err := h.svc.Login(creds.Login, creds.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// pathID parses the {id} path variable. Anything unparseable comes back as
// zero, which the service rejects as an invalid id.
func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		h.log.Errorf("Internal error: %v", err)
		apiErr = apierr.New("internal_error", "Internal server error.", http.StatusInternalServerError)
	}
	h.writeJSON(w, apiErr.Status, apiErr)
}
