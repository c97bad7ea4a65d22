package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasktracker/internal/model"
)

// TaskRepository defines task and comment persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Save(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context, page PageRequest) ([]model.Task, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, page PageRequest) ([]model.Task, int64, error)
	ListByAssignee(ctx context.Context, assigneeID uint, page PageRequest) ([]model.Task, int64, error)
	AddComment(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, id uint) error
	// WithTransaction runs fn with task and user repositories bound to one
	// transaction. A non-nil error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tasks TaskRepository, users UserRepository) error) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// withRelations preloads the author, assignee and the comment thread in
// insertion order.
func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Assignee").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.id ASC")
		})
}

// Create creates a new task.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// Save writes every column of the task. Relations are persisted through
// their foreign keys only; comments go through AddComment.
func (r *taskRepository) Save(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// FindByID finds a task by ID with its relations.
func (r *taskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := withRelations(r.db.WithContext(ctx)).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDForUpdate finds a task by ID and locks its row until the
// surrounding transaction ends.
func (r *taskRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := withRelations(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns one page of all tasks.
func (r *taskRepository) List(ctx context.Context, page PageRequest) ([]model.Task, int64, error) {
	return r.listWhere(ctx, page, nil)
}

// ListByAuthor returns one page of tasks written by authorID.
func (r *taskRepository) ListByAuthor(ctx context.Context, authorID uint, page PageRequest) ([]model.Task, int64, error) {
	return r.listWhere(ctx, page, clause.Eq{Column: "author_id", Value: authorID})
}

// ListByAssignee returns one page of tasks assigned to assigneeID.
func (r *taskRepository) ListByAssignee(ctx context.Context, assigneeID uint, page PageRequest) ([]model.Task, int64, error) {
	return r.listWhere(ctx, page, clause.Eq{Column: "assignee_id", Value: assigneeID})
}

func (r *taskRepository) listWhere(ctx context.Context, page PageRequest, cond clause.Expression) ([]model.Task, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&model.Task{})
		if cond != nil {
			db = db.Where(cond)
		}
		return db
	}

	var total int64
	if err := scope(r.db.WithContext(ctx)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	if err := withRelations(scope(r.db.WithContext(ctx))).
		Order("id ASC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// AddComment appends a comment to its task's thread.
func (r *taskRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// Delete removes a task and its comments. Returns gorm.ErrRecordNotFound
// when no task has that ID.
func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Where("task_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
func (r *taskRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tasks TaskRepository, users UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &taskRepository{db: tx}, &userRepository{db: tx})
	})
}
