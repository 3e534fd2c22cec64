package attendance

// Action on attendance rows, gated per role and status.
type Action int

const (
	ActionView Action = iota
	ActionCreate
	ActionModify
	ActionDelete
)

// Permission tells what a role may do with a status.
type Permission struct {
	RoleID        int64 `json:"role_id" db:"role_id"`
	StatusID      int64 `json:"status_id" db:"status_id"`
	CanView       bool  `json:"can_view" db:"can_view"`
	CanCreate     bool  `json:"can_create" db:"can_create"`
	CanModify     bool  `json:"can_modify" db:"can_modify"`
	CanDelete     bool  `json:"can_delete" db:"can_delete"`
	RequiresNotes bool  `json:"requires_notes" db:"requires_notes"`
}

// Permissions of one role. A status without an entry allows nothing.
type Permissions []Permission

func (ps Permissions) find(statusID int64) (Permission, bool) {
	for _, p := range ps {
		if p.StatusID == statusID {
			return p, true
		}
	}
	return Permission{}, false
}

func (ps Permissions) Allows(statusID int64, action Action) bool {
	p, ok := ps.find(statusID)
	if !ok {
		return false
	}
	switch action {
	case ActionView:
		return p.CanView
	case ActionCreate:
		return p.CanCreate
	case ActionModify:
		return p.CanModify
	case ActionDelete:
		return p.CanDelete
	default:
		return false
	}
}

func (ps Permissions) RequiresNotes(statusID int64) bool {
	p, ok := ps.find(statusID)
	return ok && p.RequiresNotes
}
