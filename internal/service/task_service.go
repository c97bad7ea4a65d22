package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// CreateTaskInput carries the fields of a new task.
type CreateTaskInput struct {
	Title         string
	Description   string
	Status        model.TaskStatus
	Priority      model.TaskPriority
	AssigneeEmail string
}

// TaskService handles task operations and enforces who may change what.
type TaskService interface {
	CreateTask(ctx context.Context, in CreateTaskInput, authorEmail string) (*model.TaskView, error)
	GetTask(ctx context.Context, id uint) (*model.TaskView, error)
	GetTasks(ctx context.Context, page repository.PageRequest) (model.Page[model.TaskView], error)
	GetTasksByAuthor(ctx context.Context, authorID uint, page repository.PageRequest) (model.Page[model.TaskView], error)
	GetTasksByAssignee(ctx context.Context, assigneeID uint, page repository.PageRequest) (model.Page[model.TaskView], error)
	UpdateTask(ctx context.Context, actor auth.Principal, id uint, patch TaskPatch, comment string) (*model.TaskView, error)
	DeleteTask(ctx context.Context, id uint) error
}

type taskService struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, logger *slog.Logger) TaskService {
	return &taskService{
		tasks:  tasks,
		users:  users,
		now:    time.Now,
		logger: logger,
	}
}

// CreateTask stores a new task. The author and, when named, the assignee
// must exist; otherwise nothing is written.
func (s *taskService) CreateTask(ctx context.Context, in CreateTaskInput, authorEmail string) (*model.TaskView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if in.Status == "" {
		in.Status = model.TaskStatusPending
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, in.Status)
	}
	if in.Priority == "" {
		in.Priority = model.TaskPriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", apperrors.ErrValidation, in.Priority)
	}

	task := &model.Task{
		Title:       title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
	}

	err := s.tasks.WithTransaction(ctx, func(ctx context.Context, tasks repository.TaskRepository, users repository.UserRepository) error {
		author, err := findUserByEmail(ctx, users, authorEmail)
		if err != nil {
			return fmt.Errorf("resolve author: %w", err)
		}
		task.SetAuthor(author)

		if assigneeEmail := strings.TrimSpace(in.AssigneeEmail); assigneeEmail != "" {
			assignee, err := findUserByEmail(ctx, users, assigneeEmail)
			if err != nil {
				return fmt.Errorf("resolve assignee: %w", err)
			}
			task.SetAssignee(assignee)
		}

		if err := tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", task.ID, "author_id", *task.AuthorID)
	view := task.View()
	return &view, nil
}

// GetTask retrieves a task by ID.
func (s *taskService) GetTask(ctx context.Context, id uint) (*model.TaskView, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, taskLookupError(id, err)
	}
	view := task.View()
	return &view, nil
}

// GetTasks lists all tasks ordered by ID.
func (s *taskService) GetTasks(ctx context.Context, page repository.PageRequest) (model.Page[model.TaskView], error) {
	tasks, total, err := s.tasks.List(ctx, page)
	if err != nil {
		return model.Page[model.TaskView]{}, fmt.Errorf("list tasks: %w", err)
	}
	return model.NewPage(views(tasks), page.Page, page.Size, total), nil
}

// GetTasksByAuthor lists the tasks written by an existing user.
func (s *taskService) GetTasksByAuthor(ctx context.Context, authorID uint, page repository.PageRequest) (model.Page[model.TaskView], error) {
	if _, err := findUserByID(ctx, s.users, authorID); err != nil {
		return model.Page[model.TaskView]{}, err
	}
	tasks, total, err := s.tasks.ListByAuthor(ctx, authorID, page)
	if err != nil {
		return model.Page[model.TaskView]{}, fmt.Errorf("list tasks by author: %w", err)
	}
	return model.NewPage(views(tasks), page.Page, page.Size, total), nil
}

// GetTasksByAssignee lists the tasks assigned to an existing user.
func (s *taskService) GetTasksByAssignee(ctx context.Context, assigneeID uint, page repository.PageRequest) (model.Page[model.TaskView], error) {
	if _, err := findUserByID(ctx, s.users, assigneeID); err != nil {
		return model.Page[model.TaskView]{}, err
	}
	tasks, total, err := s.tasks.ListByAssignee(ctx, assigneeID, page)
	if err != nil {
		return model.Page[model.TaskView]{}, fmt.Errorf("list tasks by assignee: %w", err)
	}
	return model.NewPage(views(tasks), page.Page, page.Size, total), nil
}

// UpdateTask applies a partial update on behalf of actor inside one
// transaction. The actor is re-read from the store so the current role
// decides the policy. Any failure leaves the stored task untouched.
func (s *taskService) UpdateTask(ctx context.Context, actor auth.Principal, id uint, patch TaskPatch, comment string) (*model.TaskView, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var view model.TaskView
	err := s.tasks.WithTransaction(ctx, func(ctx context.Context, tasks repository.TaskRepository, users repository.UserRepository) error {
		user, err := findUserByEmail(ctx, users, actor.Email)
		if err != nil {
			return err
		}

		task, err := tasks.FindByIDForUpdate(ctx, id)
		if err != nil {
			return taskLookupError(id, err)
		}

		newComment, err := applyUpdate(ctx, users, user, task, patch, comment, s.now())
		if err != nil {
			return err
		}

		if err := tasks.Save(ctx, task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		if newComment != nil {
			if err := tasks.AddComment(ctx, newComment); err != nil {
				return fmt.Errorf("add comment: %w", err)
			}
			task.Comments = append(task.Comments, *newComment)
		}

		view = task.View()
		return nil
	})
	if err != nil {
		s.logger.Warn("task update rejected", "task_id", id, "user_id", actor.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("task updated", "task_id", id, "user_id", actor.UserID, "status", view.Status)
	return &view, nil
}

// DeleteTask removes a task together with its comments.
func (s *taskService) DeleteTask(ctx context.Context, id uint) error {
	err := s.tasks.WithTransaction(ctx, func(ctx context.Context, tasks repository.TaskRepository, _ repository.UserRepository) error {
		if err := tasks.Delete(ctx, id); err != nil {
			return taskLookupError(id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

func taskLookupError(id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %d", apperrors.ErrTaskNotFound, id)
	}
	return fmt.Errorf("task %d: %w", id, err)
}

func views(tasks []model.Task) []model.TaskView {
	out := make([]model.TaskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, tasks[i].View())
	}
	return out
}
