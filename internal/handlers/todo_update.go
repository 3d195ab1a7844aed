package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/sbilibin2017/gw-todo/internal/services"
)

//go:generate mockgen -source=todo_update.go -destination=mock_todo_update.go -package=handlers

// TodoUpdater defines the interface that the service must implement.
type TodoUpdater interface {
	Update(ctx context.Context, userID, id int64, patch models.TodoPatch) (*models.Todo, error)
}

// UpdateTodoRequest represents the JSON body for a partial todo update.
// Omitted fields keep their stored values.
// swagger:model UpdateTodoRequest
type UpdateTodoRequest struct {
	// New title
	// default: Buy oat milk
	Title *string `json:"title"`

	// New description
	Description *string `json:"description"`

	// Completion flag
	// default: true
	IsCompleted *bool `json:"isCompleted"`
}

// NewUpdateTodoHandler returns an HTTP handler updating one of the caller's todos.
// @Summary Update todo
// @Description Applies the supplied fields to a todo owned by the authenticated user
// @Tags todos
// @Accept json
// @Produce json
// @Param id path int true "Todo ID"
// @Param updateTodoRequest body handlers.UpdateTodoRequest true "Fields to update"
// @Success 200 {object} models.Todo
// @Failure 400 {object} handlers.ErrorResponse "Invalid todo ID / Title is required / Invalid request body"
// @Failure 401 {object} handlers.ErrorResponse "Access denied. No token provided. / Invalid token."
// @Failure 403 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /todos/{id} [put]
// @Security Bearer
func NewUpdateTodoHandler(svc TodoUpdater) http.HandlerFunc {
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

		var req UpdateTodoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
			return
		}

		todo, err := svc.Update(r.Context(), userID, id, models.TodoPatch{
			Title:       req.Title,
			Description: req.Description,
			IsCompleted: req.IsCompleted,
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTitleRequired):
				writeError(w, http.StatusBadRequest, "Title is required")
			case errors.Is(err, services.ErrTodoNotFound):
				writeError(w, http.StatusForbidden, "Unauthorized")
			default:
				writeInternalError(w, err)
			}
			return
		}

		writeJSON(w, http.StatusOK, todo)
	}
}
