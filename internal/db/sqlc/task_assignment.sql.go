package db

import (
	"context"
)

const createTaskAssignment = `-- name: CreateTaskAssignment :one
INSERT INTO task_assignments (task_id, user_id, role_hint, status)
VALUES ($1, $2, $3, $4)
RETURNING id, task_id, user_id, role_hint, status, created_at, updated_at
`

type CreateTaskAssignmentParams struct {
	TaskID   int64            `json:"task_id"`
	UserID   string           `json:"user_id"`
	RoleHint string           `json:"role_hint"`
	Status   AssignmentStatus `json:"status"`
}

func (q *Queries) CreateTaskAssignment(ctx context.Context, arg CreateTaskAssignmentParams) (TaskAssignment, error) {
	row := q.db.QueryRow(ctx, createTaskAssignment,
		arg.TaskID,
		arg.UserID,
		arg.RoleHint,
		arg.Status,
	)
	var i TaskAssignment
	err := row.Scan(
		&i.ID,
		&i.TaskID,
		&i.UserID,
		&i.RoleHint,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getTaskAssignment = `-- name: GetTaskAssignment :one
SELECT id, task_id, user_id, role_hint, status, created_at, updated_at
FROM task_assignments
WHERE id = $1
`

func (q *Queries) GetTaskAssignment(ctx context.Context, id int64) (TaskAssignment, error) {
	row := q.db.QueryRow(ctx, getTaskAssignment, id)
	var i TaskAssignment
	err := row.Scan(
		&i.ID,
		&i.TaskID,
		&i.UserID,
		&i.RoleHint,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTaskAssignmentsForUpdate = `-- name: ListTaskAssignmentsForUpdate :many
SELECT id, task_id, user_id, role_hint, status, created_at, updated_at
FROM task_assignments
WHERE task_id = $1
ORDER BY id ASC
FOR UPDATE
`

func (q *Queries) ListTaskAssignmentsForUpdate(ctx context.Context, taskID int64) ([]TaskAssignment, error) {
	rows, err := q.db.Query(ctx, listTaskAssignmentsForUpdate, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TaskAssignment{}
	for rows.Next() {
		var i TaskAssignment
		if err := rows.Scan(
			&i.ID,
			&i.TaskID,
			&i.UserID,
			&i.RoleHint,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTasksForReconciliation = `-- name: ListTasksForReconciliation :many
SELECT DISTINCT task_id
FROM task_assignments
WHERE status IN ('pending', 'orphaned')
ORDER BY task_id ASC
`

func (q *Queries) ListTasksForReconciliation(ctx context.Context) ([]int64, error) {
	rows, err := q.db.Query(ctx, listTasksForReconciliation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []int64{}
	for rows.Next() {
		var taskID int64
		if err := rows.Scan(&taskID); err != nil {
			return nil, err
		}
		items = append(items, taskID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTaskAssignmentStatus = `-- name: UpdateTaskAssignmentStatus :one
UPDATE task_assignments
SET status     = $2,
    updated_at = now()
WHERE id = $1
RETURNING id, task_id, user_id, role_hint, status, created_at, updated_at
`

type UpdateTaskAssignmentStatusParams struct {
	ID     int64            `json:"id"`
	Status AssignmentStatus `json:"status"`
}

func (q *Queries) UpdateTaskAssignmentStatus(ctx context.Context, arg UpdateTaskAssignmentStatusParams) (TaskAssignment, error) {
	row := q.db.QueryRow(ctx, updateTaskAssignmentStatus, arg.ID, arg.Status)
	var i TaskAssignment
	err := row.Scan(
		&i.ID,
		&i.TaskID,
		&i.UserID,
		&i.RoleHint,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
