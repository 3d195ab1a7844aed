package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/sbilibin2017/gw-todo/internal/services"
)

//go:generate mockgen -source=todo_get.go -destination=mock_todo_get.go -package=handlers

// TodoGetter defines the interface that the service must implement.
type TodoGetter interface {
	GetByID(ctx context.Context, userID, id int64) (*models.Todo, error)
}

// NewGetTodoHandler returns an HTTP handler fetching one of the caller's todos.
// @Summary Get todo
// @Description Returns a todo owned by the authenticated user. Missing and foreign todos are reported the same way.
// @Tags todos
// @Produce json
// @Param id path int true "Todo ID"
// @Success 200 {object} models.Todo
// @Failure 400 {object} handlers.ErrorResponse "Invalid todo ID"
// @Failure 401 {object} handlers.ErrorResponse "Access denied. No token provided. / Invalid token."
// @Failure 403 {object} handlers.ErrorResponse "Unauthorized or Not Found"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /todos/{id} [get]
// @Security Bearer
func NewGetTodoHandler(svc TodoGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		id, ok := todoIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, msgInvalidTodoID)
			return
		}

		todo, err := svc.GetByID(r.Context(), userID, id)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTodoNotFound):
				writeError(w, http.StatusForbidden, "Unauthorized or Not Found")
			default:
				writeInternalError(w, err)
			}
			return
		}

		writeJSON(w, http.StatusOK, todo)
	}
}
