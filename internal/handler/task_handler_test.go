package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

// MockTaskService is a mock implementation of TaskService.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, in service.CreateTaskInput, authorEmail string) (*model.TaskView, error) {
	args := m.Called(ctx, in, authorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskView), args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, id uint) (*model.TaskView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskView), args.Error(1)
}

func (m *MockTaskService) GetTasks(ctx context.Context, page repository.PageRequest) (model.Page[model.TaskView], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(model.Page[model.TaskView]), args.Error(1)
}

func (m *MockTaskService) GetTasksByAuthor(ctx context.Context, authorID uint, page repository.PageRequest) (model.Page[model.TaskView], error) {
	args := m.Called(ctx, authorID, page)
	return args.Get(0).(model.Page[model.TaskView]), args.Error(1)
}

func (m *MockTaskService) GetTasksByAssignee(ctx context.Context, assigneeID uint, page repository.PageRequest) (model.Page[model.TaskView], error) {
	args := m.Called(ctx, assigneeID, page)
	return args.Get(0).(model.Page[model.TaskView]), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, actor auth.Principal, id uint, patch service.TaskPatch, comment string) (*model.TaskView, error) {
	args := m.Called(ctx, actor, id, patch, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TaskView), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type structValidator struct {
	validator *validator.Validate
}

func (v *structValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

var assignee = auth.Principal{UserID: 2, Email: "u2@example.com", Role: model.RoleUser}

// newTaskServer routes the task handlers behind a middleware that attaches
// principal, when non-nil.
func newTaskServer(svc service.TaskService, principal *auth.Principal) *echo.Echo {
	e := echo.New()
	e.Validator = &structValidator{validator: validator.New()}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if principal != nil {
				c.Set(auth.PrincipalContextKey, principal)
			}
			return next(c)
		}
	})

	h := NewTaskHandler(svc)
	e.POST("/api/tasks", h.CreateTask)
	e.GET("/api/tasks", h.GetTasks)
	e.GET("/api/tasks/:id", h.GetTask)
	e.GET("/api/tasks/author/:authorId", h.GetTasksByAuthor)
	e.GET("/api/tasks/assignee/:assigneeId", h.GetTasksByAssignee)
	e.PUT("/api/tasks/:id", h.UpdateTask)
	e.DELETE("/api/admin/tasks/:id", h.DeleteTask)
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	inProgress := model.TaskStatusInProgress
	view := &model.TaskView{ID: 5, Title: "Write report", Status: inProgress}

	tests := []struct {
		name           string
		target         string
		body           string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "status change",
			target: "/api/tasks/5",
			body:   `{"status":"IN_PROGRESS","title":""}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, assignee, uint(5), service.TaskPatch{Status: &inProgress}, "").Return(view, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "comment from query",
			target: "/api/tasks/5?comment=on+it",
			body:   `{}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, assignee, uint(5), service.TaskPatch{}, "on it").Return(view, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "not the assignee",
			target: "/api/tasks/5",
			body:   `{"status":"COMPLETED"}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, assignee, uint(5), mock.Anything, "").
					Return(nil, fmt.Errorf("%w: user 2 is not the assignee of task 5", apperrors.ErrAccessDenied))
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "ACCESS_DENIED",
		},
		{
			name:   "unknown task",
			target: "/api/tasks/5",
			body:   `{"status":"COMPLETED"}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, assignee, uint(5), mock.Anything, "").
					Return(nil, fmt.Errorf("%w: id 5", apperrors.ErrTaskNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "TASK_NOT_FOUND",
		},
		{
			name:   "unknown assignee reference",
			target: "/api/tasks/5",
			body:   `{"assignee":{"id":9}}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, assignee, uint(5), service.TaskPatch{Assignee: &service.UserRef{ID: 9}}, "").
					Return(nil, fmt.Errorf("resolve assignee: %w: id 9", apperrors.ErrUserNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "USER_NOT_FOUND",
		},
		{
			name:           "invalid status",
			target:         "/api/tasks/5",
			body:           `{"status":"ARCHIVED"}`,
			setupMock:      func(*MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "invalid id",
			target:         "/api/tasks/abc",
			body:           `{}`,
			setupMock:      func(*MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTaskService)
			tt.setupMock(svc)

			rec := serve(newTaskServer(svc, &assignee), http.MethodPut, tt.target, tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, rec).Code)
			} else {
				var got model.TaskView
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, *view, got)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_UpdateTask_RequiresPrincipal(t *testing.T) {
	svc := new(MockTaskService)
	rec := serve(newTaskServer(svc, nil), http.MethodPut, "/api/tasks/5", `{"status":"COMPLETED"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskHandler_CreateTask(t *testing.T) {
	svc := new(MockTaskService)
	svc.On("CreateTask", mock.Anything, service.CreateTaskInput{
		Title:         "Review",
		Priority:      model.TaskPriorityHigh,
		AssigneeEmail: "u3@example.com",
	}, "u2@example.com").Return(&model.TaskView{ID: 100, Title: "Review"}, nil)

	e := newTaskServer(svc, &assignee)
	rec := serve(e, http.MethodPost, "/api/tasks", `{"title":"Review","priority":"HIGH","assignee_email":"u3@example.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(e, http.MethodPost, "/api/tasks", `{"priority":"HIGH"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestTaskHandler_Paging(t *testing.T) {
	empty := model.NewPage([]model.TaskView{}, 0, 10, 0)

	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:   "defaults",
			target: "/api/tasks",
			setupMock: func(m *MockTaskService) {
				m.On("GetTasks", mock.Anything, repository.PageRequest{Page: 0, Size: 10}).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "by author",
			target: "/api/tasks/author/1?page=2&size=5",
			setupMock: func(m *MockTaskService) {
				m.On("GetTasksByAuthor", mock.Anything, uint(1), repository.PageRequest{Page: 2, Size: 5}).Return(empty, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "unknown assignee",
			target: "/api/tasks/assignee/9",
			setupMock: func(m *MockTaskService) {
				m.On("GetTasksByAssignee", mock.Anything, uint(9), repository.PageRequest{Page: 0, Size: 10}).
					Return(model.Page[model.TaskView]{}, fmt.Errorf("%w: id 9", apperrors.ErrUserNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "size too large",
			target:         "/api/tasks?size=101",
			setupMock:      func(*MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative page",
			target:         "/api/tasks?page=-1",
			setupMock:      func(*MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTaskService)
			tt.setupMock(svc)

			rec := serve(newTaskServer(svc, &assignee), http.MethodGet, tt.target, "")
			assert.Equal(t, tt.expectedStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	svc := new(MockTaskService)
	svc.On("DeleteTask", mock.Anything, uint(5)).Return(nil)
	svc.On("DeleteTask", mock.Anything, uint(6)).Return(fmt.Errorf("%w: id 6", apperrors.ErrTaskNotFound))
	e := newTaskServer(svc, &assignee)

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/api/admin/tasks/5", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodDelete, "/api/admin/tasks/6", "").Code)
}
