package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// UserRef names a user by ID inside a partial update.
type UserRef struct {
	ID uint `json:"id"`
}

// TaskPatch is a partial update. Nil or empty fields leave the task untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	Assignee    *UserRef
	Author      *UserRef
}

func (p TaskPatch) hasTitle() bool       { return p.Title != nil && *p.Title != "" }
func (p TaskPatch) hasDescription() bool { return p.Description != nil && *p.Description != "" }
func (p TaskPatch) hasStatus() bool      { return p.Status != nil && *p.Status != "" }
func (p TaskPatch) hasPriority() bool    { return p.Priority != nil && *p.Priority != "" }
func (p TaskPatch) hasAssignee() bool    { return p.Assignee != nil && p.Assignee.ID != 0 }
func (p TaskPatch) hasAuthor() bool      { return p.Author != nil && p.Author.ID != 0 }

func (p TaskPatch) validate() error {
	if p.hasStatus() && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *p.Status)
	}
	if p.hasPriority() && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", apperrors.ErrValidation, *p.Priority)
	}
	return nil
}

// applyUpdate mutates task in memory according to the actor's role and
// returns the comment to append, if any. Lookups run before any field is
// touched.
func applyUpdate(
	ctx context.Context,
	users repository.UserRepository,
	actor *model.User,
	task *model.Task,
	patch TaskPatch,
	comment string,
	now time.Time,
) (*model.Comment, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return nil, applyAdminUpdate(ctx, users, actor, task, patch)
	case model.RoleUser:
		return applyAssigneeUpdate(actor, task, patch, comment, now)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedRole, actor.Role)
	}
}

// applyAdminUpdate overwrites every present field. Comments are not
// recorded for admins.
func applyAdminUpdate(ctx context.Context, users repository.UserRepository, actor *model.User, task *model.Task, patch TaskPatch) error {
	var assignee, author *model.User
	var err error
	if patch.hasAssignee() {
		if assignee, err = findUserByID(ctx, users, patch.Assignee.ID); err != nil {
			return fmt.Errorf("resolve assignee: %w", err)
		}
	}
	if patch.hasAuthor() {
		if author, err = findUserByID(ctx, users, patch.Author.ID); err != nil {
			return fmt.Errorf("resolve author: %w", err)
		}
	}

	if patch.hasTitle() {
		task.Title = *patch.Title
	}
	if patch.hasDescription() {
		task.Description = *patch.Description
	}
	if patch.hasPriority() {
		task.Priority = *patch.Priority
	}
	if patch.hasStatus() {
		task.Status = *patch.Status
	}
	if assignee != nil {
		task.SetAssignee(assignee)
	}

	switch {
	case author != nil:
		task.SetAuthor(author)
	case task.AuthorID == nil:
		task.SetAuthor(actor)
	}
	return nil
}

// applyAssigneeUpdate lets the assignee change the status or, failing
// that, append a comment. Never both.
func applyAssigneeUpdate(actor *model.User, task *model.Task, patch TaskPatch, comment string, now time.Time) (*model.Comment, error) {
	if !task.IsAssignedTo(actor.ID) {
		return nil, fmt.Errorf("%w: user %d is not the assignee of task %d", apperrors.ErrAccessDenied, actor.ID, task.ID)
	}

	if patch.hasStatus() {
		task.Status = *patch.Status
		return nil, nil
	}

	content := strings.TrimSpace(comment)
	if content == "" {
		return nil, nil
	}
	return &model.Comment{
		TaskID:    task.ID,
		AuthorID:  actor.ID,
		Content:   content,
		CreatedAt: now,
	}, nil
}

func findUserByID(ctx context.Context, users repository.UserRepository, id uint) (*model.User, error) {
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", apperrors.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return user, nil
}

func findUserByEmail(ctx context.Context, users repository.UserRepository, email string) (*model.User, error) {
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: email %s", apperrors.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}
	return user, nil
}
