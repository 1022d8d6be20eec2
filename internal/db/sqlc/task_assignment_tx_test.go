package db

import (
	"testing"
)

func assignment(id int64, role string, status AssignmentStatus) TaskAssignment {
	return TaskAssignment{ID: id, TaskID: 1, UserID: "u", RoleHint: role, Status: status}
}

func TestPlanAssignmentChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		assignments []TaskAssignment
		want        map[int64]AssignmentStatus // assignment id -> new status
	}{
		{
			name: "single pending candidate is promoted",
			assignments: []TaskAssignment{
				assignment(1, "packer", AssignmentStatusPending),
			},
			want: map[int64]AssignmentStatus{1: AssignmentStatusActive},
		},
		{
			name: "two pending candidates for the same role are both orphaned",
			assignments: []TaskAssignment{
				assignment(1, "packer", AssignmentStatusPending),
				assignment(2, "packer", AssignmentStatusPending),
			},
			want: map[int64]AssignmentStatus{
				1: AssignmentStatusOrphaned,
				2: AssignmentStatusOrphaned,
			},
		},
		{
			name: "role with an active assignment is left alone",
			assignments: []TaskAssignment{
				assignment(1, "packer", AssignmentStatusActive),
				assignment(2, "packer", AssignmentStatusPending),
			},
			want: map[int64]AssignmentStatus{},
		},
		{
			name: "independent roles are planned independently",
			assignments: []TaskAssignment{
				assignment(1, "packer", AssignmentStatusPending),
				assignment(2, "driver", AssignmentStatusPending),
				assignment(3, "driver", AssignmentStatusPending),
			},
			want: map[int64]AssignmentStatus{
				1: AssignmentStatusActive,
				2: AssignmentStatusOrphaned,
				3: AssignmentStatusOrphaned,
			},
		},
		{
			name: "orphaned records are never promoted",
			assignments: []TaskAssignment{
				assignment(1, "packer", AssignmentStatusOrphaned),
			},
			want: map[int64]AssignmentStatus{},
		},
		{
			name: "completed assignments do not block promotion",
			assignments: []TaskAssignment{
				assignment(1, "packer", AssignmentStatusCompleted),
				assignment(2, "packer", AssignmentStatusPending),
			},
			want: map[int64]AssignmentStatus{2: AssignmentStatusActive},
		},
		{
			name:        "no assignments, no changes",
			assignments: nil,
			want:        map[int64]AssignmentStatus{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			changes := planAssignmentChanges(tc.assignments)
			if len(changes) != len(tc.want) {
				t.Fatalf("expected %d changes, got %d: %+v", len(tc.want), len(changes), changes)
			}
			for _, change := range changes {
				want, ok := tc.want[change.AssignmentID]
				if !ok {
					t.Fatalf("unexpected change for assignment %d", change.AssignmentID)
				}
				if change.NewStatus != want {
					t.Fatalf("assignment %d: expected status %s, got %s", change.AssignmentID, want, change.NewStatus)
				}
			}
		})
	}
}

func TestPlanAssignmentChangesNeverDoublePromotes(t *testing.T) {
	t.Parallel()

	// Applying a plan and re-planning must be a fixpoint: the promoted
	// assignment now counts as active, so nothing further changes.
	assignments := []TaskAssignment{
		assignment(1, "packer", AssignmentStatusPending),
		assignment(2, "driver", AssignmentStatusPending),
	}

	changes := planAssignmentChanges(assignments)
	byID := make(map[int64]AssignmentStatus)
	for _, c := range changes {
		byID[c.AssignmentID] = c.NewStatus
	}
	for i := range assignments {
		if status, ok := byID[assignments[i].ID]; ok {
			assignments[i].Status = status
		}
	}

	active := make(map[string]int)
	for _, a := range assignments {
		if a.Status == AssignmentStatusActive {
			active[a.RoleHint]++
		}
	}
	for role, n := range active {
		if n > 1 {
			t.Fatalf("role %s has %d active assignments", role, n)
		}
	}

	if rerun := planAssignmentChanges(assignments); len(rerun) != 0 {
		t.Fatalf("second plan should be empty, got %+v", rerun)
	}
}
