package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sbilibin2017/gw-todo/internal/logger"
	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/sbilibin2017/gw-todo/internal/tracing"
)

//go:generate mockgen -source=todo.go -destination=mock_todo.go -package=services

// Error variables
var (
	ErrTitleRequired = errors.New("title is required")
	ErrTodoNotFound  = errors.New("todo not found")
)

// TodoReader defines read-only operations for todos scoped to an owner.
type TodoReader interface {
	GetByID(ctx context.Context, id, userID int64) (*models.Todo, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Todo, error)
}

// TodoWriter defines write operations for todos scoped to an owner.
type TodoWriter interface {
	Save(ctx context.Context, todo *models.Todo) error
	Update(ctx context.Context, id, userID int64, patch models.TodoPatch, updatedAt time.Time) (*models.Todo, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// TodoService implements todo CRUD for a single caller.
type TodoService struct {
	reader      TodoReader
	writer      TodoWriter
	kafkaWriter KafkaWriter
	now         func() time.Time
}

// TodoServiceOpt configures a TodoService.
type TodoServiceOpt func(*TodoService)

// WithNow overrides the clock used for timestamps.
func WithNow(now func() time.Time) TodoServiceOpt {
	return func(svc *TodoService) {
		svc.now = now
	}
}

// NewTodoService creates a new TodoService. kafkaWriter may be nil.
func NewTodoService(reader TodoReader, writer TodoWriter, kafkaWriter KafkaWriter, opts ...TodoServiceOpt) *TodoService {
	svc := &TodoService{
		reader:      reader,
		writer:      writer,
		kafkaWriter: kafkaWriter,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a new todo owned by userID.
func (svc *TodoService) Create(ctx context.Context, userID int64, title string, description *string) (todo *models.Todo, err error) {
	ctx, span := tracing.Start(ctx, "TodoService.Create")
	defer func() { tracing.End(span, err) }()

	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}

	now := svc.now().UTC()
	todo = &models.Todo{
		Title:       title,
		Description: description,
		IsCompleted: false,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := svc.writer.Save(ctx, todo); err != nil {
		logger.FromContext(ctx).Errorw("failed to save todo", "user_id", userID, "err", err)
		return nil, err
	}

	publishEvent(ctx, svc.kafkaWriter, newEvent(models.EventTodoCreated, userID, todo.ID, now))
	return todo, nil
}

// List returns every todo owned by userID, newest first.
func (svc *TodoService) List(ctx context.Context, userID int64) (todos []models.Todo, err error) {
	ctx, span := tracing.Start(ctx, "TodoService.List")
	defer func() { tracing.End(span, err) }()

	todos, err = svc.reader.ListByUserID(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to list todos", "user_id", userID, "err", err)
		return nil, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

// GetByID returns the todo when it exists and belongs to userID. A missing
// todo and one owned by another user both yield ErrTodoNotFound.
func (svc *TodoService) GetByID(ctx context.Context, userID, id int64) (todo *models.Todo, err error) {
	ctx, span := tracing.Start(ctx, "TodoService.GetByID")
	defer func() { tracing.End(span, err) }()

	todo, err = svc.reader.GetByID(ctx, id, userID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to get todo", "id", id, "user_id", userID, "err", err)
		return nil, err
	}
	if todo == nil {
		logger.FromContext(ctx).Warnw("todo not found for user", "id", id, "user_id", userID)
		return nil, ErrTodoNotFound
	}
	return todo, nil
}

// Update applies the supplied fields of patch to a todo owned by userID.
func (svc *TodoService) Update(ctx context.Context, userID, id int64, patch models.TodoPatch) (todo *models.Todo, err error) {
	ctx, span := tracing.Start(ctx, "TodoService.Update")
	defer func() { tracing.End(span, err) }()

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, ErrTitleRequired
	}

	now := svc.now().UTC()
	todo, err = svc.writer.Update(ctx, id, userID, patch, now)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to update todo", "id", id, "user_id", userID, "err", err)
		return nil, err
	}
	if todo == nil {
		logger.FromContext(ctx).Warnw("todo not found for user", "id", id, "user_id", userID)
		return nil, ErrTodoNotFound
	}

	publishEvent(ctx, svc.kafkaWriter, newEvent(models.EventTodoUpdated, userID, id, now))
	return todo, nil
}

// Delete removes a todo owned by userID.
func (svc *TodoService) Delete(ctx context.Context, userID, id int64) (err error) {
	ctx, span := tracing.Start(ctx, "TodoService.Delete")
	defer func() { tracing.End(span, err) }()

	deleted, err := svc.writer.Delete(ctx, id, userID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to delete todo", "id", id, "user_id", userID, "err", err)
		return err
	}
	if !deleted {
		logger.FromContext(ctx).Warnw("todo not found for user", "id", id, "user_id", userID)
		return ErrTodoNotFound
	}

	publishEvent(ctx, svc.kafkaWriter, newEvent(models.EventTodoDeleted, userID, id, svc.now()))
	return nil
}
