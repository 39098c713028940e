package domain

import (
	"slices"
	"strings"
)

// Identity is the caller of the current session. An empty ProjectIDs
// list means the caller sees every project.
type Identity struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	ProjectIDs  []string `json:"projectIds,omitempty"`
}

// HasPermission reports whether the identity was granted perm.
func (id Identity) HasPermission(perm string) bool {
	return slices.Contains(id.Permissions, perm)
}

// InScope reports whether projectID is visible to the identity.
func (id Identity) InScope(projectID string) bool {
	if len(id.ProjectIDs) == 0 {
		return true
	}
	return slices.Contains(id.ProjectIDs, projectID)
}

// ScopeKey identifies the data scope of this identity for caching.
func (id Identity) ScopeKey() string {
	if len(id.ProjectIDs) == 0 {
		return id.UserID + "|*"
	}
	ids := slices.Clone(id.ProjectIDs)
	slices.Sort(ids)
	return id.UserID + "|" + strings.Join(ids, ",")
}
