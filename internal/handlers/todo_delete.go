package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-todo/internal/services"
)

//go:generate mockgen -source=todo_delete.go -destination=mock_todo_delete.go -package=handlers

// TodoDeleter defines the interface that the service must implement.
type TodoDeleter interface {
	Delete(ctx context.Context, userID, id int64) error
}

// NewDeleteTodoHandler returns an HTTP handler deleting one of the caller's todos.
// @Summary Delete todo
// @Description Removes a todo owned by the authenticated user
// @Tags todos
// @Param id path int true "Todo ID"
// @Success 204 "No Content"
// @Failure 400 {object} handlers.ErrorResponse "Invalid todo ID"
// @Failure 401 {object} handlers.ErrorResponse "Access denied. No token provided. / Invalid token."
// @Failure 403 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /todos/{id} [delete]
// @Security Bearer
func NewDeleteTodoHandler(svc TodoDeleter) http.HandlerFunc {
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

		if err := svc.Delete(r.Context(), userID, id); err != nil {
			switch {
			case errors.Is(err, services.ErrTodoNotFound):
				writeError(w, http.StatusForbidden, "Unauthorized")
			default:
				writeInternalError(w, err)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
