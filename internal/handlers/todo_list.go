package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-todo/internal/models"
)

//go:generate mockgen -source=todo_list.go -destination=mock_todo_list.go -package=handlers

// TodoLister defines the interface that the service must implement.
type TodoLister interface {
	List(ctx context.Context, userID int64) ([]models.Todo, error)
}

// NewListTodosHandler returns an HTTP handler listing the caller's todos.
// @Summary List todos
// @Description Returns every todo owned by the authenticated user, newest first
// @Tags todos
// @Produce json
// @Success 200 {array} models.Todo
// @Failure 401 {object} handlers.ErrorResponse "Access denied. No token provided. / Invalid token."
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /todos [get]
// @Security Bearer
func NewListTodosHandler(svc TodoLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		todos, err := svc.List(r.Context(), userID)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		if todos == nil {
			todos = []models.Todo{}
		}

		writeJSON(w, http.StatusOK, todos)
	}
}
