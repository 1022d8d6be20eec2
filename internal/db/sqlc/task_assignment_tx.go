package db

import (
	"context"
	"sort"
)

type assignmentChange struct {
	AssignmentID int64
	NewStatus    AssignmentStatus
}

// planAssignmentChanges decides the status transitions for one task's
// assignment rows. For every role hint that has no active assignment:
// exactly one pending candidate is promoted to active; zero or several
// candidates mean nobody can be promoted safely, so the pending ones are
// marked orphaned for manual resolution. Roles that already have an active
// assignment are left untouched, which keeps the at-most-one-active
// invariant regardless of how many times the plan is applied.
func planAssignmentChanges(assignments []TaskAssignment) []assignmentChange {
	activeRoles := make(map[string]bool)
	pendingByRole := make(map[string][]TaskAssignment)

	for _, a := range assignments {
		switch a.Status {
		case AssignmentStatusActive:
			activeRoles[a.RoleHint] = true
		case AssignmentStatusPending:
			pendingByRole[a.RoleHint] = append(pendingByRole[a.RoleHint], a)
		}
	}

	// Deterministic order across runs.
	roles := make([]string, 0, len(pendingByRole))
	for role := range pendingByRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var changes []assignmentChange
	for _, role := range roles {
		if activeRoles[role] {
			continue
		}

		candidates := pendingByRole[role]
		if len(candidates) == 1 {
			changes = append(changes, assignmentChange{
				AssignmentID: candidates[0].ID,
				NewStatus:    AssignmentStatusActive,
			})
			continue
		}

		// Ambiguous: several equally valid claims on the same role.
		for _, candidate := range candidates {
			changes = append(changes, assignmentChange{
				AssignmentID: candidate.ID,
				NewStatus:    AssignmentStatusOrphaned,
			})
		}
	}

	return changes
}

// ReconcileTaskAssignmentsTx repairs the assignment rows of a single task
// inside one transaction. The rows are locked first so a concurrent business
// mutation cannot race the promotion decision. It returns the number of rows
// whose status changed.
func (store *SQLStore) ReconcileTaskAssignmentsTx(ctx context.Context, taskID int64) (int, error) {
	var updated int

	err := store.ExecTx(ctx, func(qTx *Queries) error {
		assignments, err := qTx.ListTaskAssignmentsForUpdate(ctx, taskID)
		if err != nil {
			return err
		}

		changes := planAssignmentChanges(assignments)
		for _, change := range changes {
			if _, err := qTx.UpdateTaskAssignmentStatus(ctx, UpdateTaskAssignmentStatusParams{
				ID:     change.AssignmentID,
				Status: change.NewStatus,
			}); err != nil {
				return err
			}
		}

		updated = len(changes)
		return nil
	})

	return updated, err
}
