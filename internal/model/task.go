package model

import "time"

// TaskStatus represents the progress of a task. Any status may follow any other.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// TaskPriority represents how urgent a task is.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// Task is a unit of work with an author, an optional assignee and an
// append-only comment thread.
type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"size:255;not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(10);not null;default:'MEDIUM'"`
	AuthorID    *uint        `json:"author_id" gorm:"index"`
	AssigneeID  *uint        `json:"assignee_id" gorm:"index"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	Author   *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Assignee *User     `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// SetAuthor points the task at u.
func (t *Task) SetAuthor(u *User) {
	t.Author = u
	t.AuthorID = &u.ID
}

// SetAssignee points the task at u.
func (t *Task) SetAssignee(u *User) {
	t.Assignee = u
	t.AssigneeID = &u.ID
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Task) IsAssignedTo(userID uint) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// TaskView is the read-only projection returned to callers.
type TaskView struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      TaskStatus    `json:"status"`
	Priority    TaskPriority  `json:"priority"`
	Author      *UserSummary  `json:"author"`
	Assignee    *UserSummary  `json:"assignee"`
	Comments    []CommentView `json:"comments"`
}

// View builds the projection of t.
func (t *Task) View() TaskView {
	comments := make([]CommentView, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, c.View())
	}
	return TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Author:      t.Author.Summary(),
		Assignee:    t.Assignee.Summary(),
		Comments:    comments,
	}
}
