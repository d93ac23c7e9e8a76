package workflow

import (
	"fmt"

	"github.com/noah-isme/grievance-api/internal/models"
)

// rungs orders the escalation chain. Students sit below the first handler rung.
var rungs = map[models.UserRole]int{
	models.RoleStudent:     0,
	models.RoleProctor:     1,
	models.RoleClusterHead: 2,
	models.RoleHOD:         3,
	models.RolePrincipal:   4,
}

// Rung returns the position of role in the escalation chain, or -1 for unknown roles.
func Rung(role models.UserRole) int {
	if r, ok := rungs[role]; ok {
		return r
	}
	return -1
}

// RoutingTable maps an acting role to the handlers it may forward to.
type RoutingTable struct {
	routes map[models.UserRole][]models.ForwardTarget
}

// NewRoutingTable validates that every edge climbs exactly one rung and that
// students never forward.
func NewRoutingTable(routes map[models.UserRole][]models.ForwardTarget) (*RoutingTable, error) {
	table := &RoutingTable{routes: make(map[models.UserRole][]models.ForwardTarget, len(routes))}
	for from, targets := range routes {
		if Rung(from) < 0 {
			return nil, fmt.Errorf("routing table: unknown role %q", from)
		}
		if from == models.RoleStudent && len(targets) > 0 {
			return nil, fmt.Errorf("routing table: students cannot forward")
		}
		seen := make(map[string]struct{}, len(targets))
		for _, target := range targets {
			if target.HandlerID == "" {
				return nil, fmt.Errorf("routing table: %s has a target without handler id", from)
			}
			if Rung(target.HandlerRole) != Rung(from)+1 {
				return nil, fmt.Errorf("routing table: %s -> %s does not climb one rung", from, target.HandlerRole)
			}
			if _, dup := seen[target.HandlerID]; dup {
				return nil, fmt.Errorf("routing table: %s lists %s twice", from, target.HandlerID)
			}
			seen[target.HandlerID] = struct{}{}
		}
		table.routes[from] = append([]models.ForwardTarget(nil), targets...)
	}
	return table, nil
}

// MustRoutingTable panics when routes are invalid. Intended for package-level tables.
func MustRoutingTable(routes map[models.UserRole][]models.ForwardTarget) *RoutingTable {
	table, err := NewRoutingTable(routes)
	if err != nil {
		panic(err)
	}
	return table
}

// DefaultRoutingTable is the designated escalation chain of the institution.
func DefaultRoutingTable() *RoutingTable {
	return MustRoutingTable(map[models.UserRole][]models.ForwardTarget{
		models.RoleProctor: {
			{HandlerID: "C001", HandlerRole: models.RoleClusterHead, DisplayName: "Dr. Lisa Thompson (Cluster Head)"},
		},
		models.RoleClusterHead: {
			{HandlerID: "H001", HandlerRole: models.RoleHOD, DisplayName: "Prof. Robert Chen (HOD - CS)"},
			{HandlerID: "H002", HandlerRole: models.RoleHOD, DisplayName: "Dr. Maria Garcia (HOD - IT)"},
		},
		models.RoleHOD: {
			{HandlerID: "PRIN001", HandlerRole: models.RolePrincipal, DisplayName: "Dr. James Anderson (Principal)"},
		},
	})
}

// Targets returns a copy of the forward targets for role. Terminal roles get an empty slice.
func (t *RoutingTable) Targets(role models.UserRole) []models.ForwardTarget {
	targets := t.routes[role]
	out := make([]models.ForwardTarget, len(targets))
	copy(out, targets)
	return out
}

// Find looks up a target of role by handler id.
func (t *RoutingTable) Find(role models.UserRole, handlerID string) (models.ForwardTarget, bool) {
	for _, target := range t.routes[role] {
		if target.HandlerID == handlerID {
			return target, true
		}
	}
	return models.ForwardTarget{}, false
}
