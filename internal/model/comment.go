package model

import "time"

// Comment is an immutable note appended to a task by its assignee.
// It carries plain identifiers rather than references to the task or user.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TaskID    uint      `json:"task_id" gorm:"not null;index"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentView is the projection of a comment inside a TaskView.
type CommentView struct {
	ID        uint      `json:"id"`
	AuthorID  uint      `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// View builds the projection of c.
func (c Comment) View() CommentView {
	return CommentView{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
