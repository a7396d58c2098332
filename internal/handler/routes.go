package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route declares one binding of the HTTP surface: its methods and path, the
// handler, whether it carries a JSON body, and whether it needs the edit-users
// capability. The table is the contract; registration just walks it.
type Route struct {
	Methods     []string
	Path        string
	Handler     http.HandlerFunc
	EditUsers   bool
	AcceptsJSON bool
}

func (h *Handler) Routes() []Route {
	return []Route{
		{Methods: []string{"POST"}, Path: "/login", Handler: h.Login, AcceptsJSON: true},
		{Methods: []string{"GET"}, Path: "/users", Handler: h.ListUsers, EditUsers: true},
		{Methods: []string{"GET"}, Path: "/users/{id:[0-9]+}", Handler: h.GetUser, EditUsers: true},
		// Editable: POST, PUT and PATCH are equivalent for partial updates.
		{Methods: []string{"POST", "PUT", "PATCH"}, Path: "/users/{id:[0-9]+}", Handler: h.EditUser, EditUsers: true, AcceptsJSON: true},
		{Methods: []string{"DELETE"}, Path: "/users/{id:[0-9]+}", Handler: h.DeleteUser, EditUsers: true},
	}
}

// Register mounts the route table on the router.
func (h *Handler) Register(r *mux.Router) {
	for _, route := range h.Routes() {
		r.HandleFunc(route.Path, route.Handler).Methods(route.Methods...)
	}
}
