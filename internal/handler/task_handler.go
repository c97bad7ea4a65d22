package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
	"tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents a new task.
type CreateTaskRequest struct {
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description"`
	Status        string `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority      string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeEmail string `json:"assignee_email" validate:"omitempty,email"`
}

// UpdateTaskRequest is a partial task update. Empty fields are ignored.
type UpdateTaskRequest struct {
	Title       string           `json:"title" validate:"max=255"`
	Description string           `json:"description"`
	Status      string           `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    string           `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Assignee    *service.UserRef `json:"assignee"`
	Author      *service.UserRef `json:"author"`
}

// ToPatch converts the request into a service patch.
func (r UpdateTaskRequest) ToPatch() service.TaskPatch {
	var patch service.TaskPatch
	if r.Title != "" {
		patch.Title = &r.Title
	}
	if r.Description != "" {
		patch.Description = &r.Description
	}
	if r.Status != "" {
		status := model.TaskStatus(r.Status)
		patch.Status = &status
	}
	if r.Priority != "" {
		priority := model.TaskPriority(r.Priority)
		patch.Priority = &priority
	}
	patch.Assignee = r.Assignee
	patch.Author = r.Author
	return patch
}

func requirePrincipal(c echo.Context) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "authentication required",
			Code:  "UNAUTHENTICATED",
		})
	}
	return principal, nil
}

// CreateTask godoc
// @Summary Create a task authored by the caller
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task data"
// @Success 201 {object} model.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), service.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        model.TaskStatus(req.Status),
		Priority:      model.TaskPriority(req.Priority),
		AssigneeEmail: req.AssigneeEmail,
	}, principal.Email)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTasks godoc
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.TaskView]
// @Failure 400 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) GetTasks(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	tasks, err := h.taskService.GetTasks(c.Request().Context(), page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// GetTask godoc
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} model.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

// GetTasksByAuthor godoc
// @Summary List tasks written by a user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param authorId path int true "Author ID"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.TaskView]
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/author/{authorId} [get]
func (h *TaskHandler) GetTasksByAuthor(c echo.Context) error {
	authorID, err := idParam(c, "authorId")
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	tasks, err := h.taskService.GetTasksByAuthor(c.Request().Context(), authorID, page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// GetTasksByAssignee godoc
// @Summary List tasks assigned to a user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param assigneeId path int true "Assignee ID"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.TaskView]
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/assignee/{assigneeId} [get]
func (h *TaskHandler) GetTasksByAssignee(c echo.Context) error {
	assigneeID, err := idParam(c, "assigneeId")
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	tasks, err := h.taskService.GetTasksByAssignee(c.Request().Context(), assigneeID, page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// UpdateTask godoc
// @Summary Update a task
// @Description Admins may change any field. The assignee may change the status or, when no status is given, add a comment.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param comment query string false "Comment appended by the assignee"
// @Param request body UpdateTaskRequest true "Fields to change"
// @Success 200 {object} model.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), *principal, id, req.ToPatch(), c.QueryParam("comment"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task and its comments
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.taskService.DeleteTask(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
