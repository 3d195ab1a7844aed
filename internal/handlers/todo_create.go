package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/sbilibin2017/gw-todo/internal/services"
)

//go:generate mockgen -source=todo_create.go -destination=mock_todo_create.go -package=handlers

// TodoCreator defines the interface that the service must implement.
type TodoCreator interface {
	Create(ctx context.Context, userID int64, title string, description *string) (*models.Todo, error)
}

// CreateTodoRequest represents the JSON body for creating a todo
// swagger:model CreateTodoRequest
type CreateTodoRequest struct {
	// Title
	// required: true
	// default: Buy milk
	Title string `json:"title"`

	// Optional description
	// default: 2 liters
	Description *string `json:"description"`
}

// NewCreateTodoHandler returns an HTTP handler creating a todo for the caller.
// @Summary Create todo
// @Description Creates a todo owned by the authenticated user
// @Tags todos
// @Accept json
// @Produce json
// @Param createTodoRequest body handlers.CreateTodoRequest true "Todo to create"
// @Success 201 {object} models.Todo
// @Failure 400 {object} handlers.ErrorResponse "Title is required / Invalid request body"
// @Failure 401 {object} handlers.ErrorResponse "Access denied. No token provided. / Invalid token."
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /todos [post]
// @Security Bearer
func NewCreateTodoHandler(svc TodoCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		var req CreateTodoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidRequestBody)
			return
		}

		todo, err := svc.Create(r.Context(), userID, req.Title, req.Description)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTitleRequired):
				writeError(w, http.StatusBadRequest, "Title is required")
			default:
				writeInternalError(w, err)
			}
			return
		}

		writeJSON(w, http.StatusCreated, todo)
	}
}
