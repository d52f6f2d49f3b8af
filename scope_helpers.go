package immutable

// Recommended priorities for common layering patterns. Higher numbers win.
const (
	ScopePrioritySystem = 100
	ScopePriorityTenant = 200
	ScopePriorityOrg    = 300
	ScopePriorityTeam   = 400
	ScopePriorityUser   = 500
)

// SystemTenantOrgTeamUser merges the canonical five scopes, user strongest.
// Nil snapshots are skipped.
func SystemTenantOrgTeamUser[S any](system, tenant, org, team, user *Immutable[S], opts ...Option) (*Immutable[S], error) {
	candidates := []Layer[S]{
		NewLayer(NewScope("user", ScopePriorityUser, WithScopeLabel("User")), user),
		NewLayer(NewScope("team", ScopePriorityTeam, WithScopeLabel("Team")), team),
		NewLayer(NewScope("org", ScopePriorityOrg, WithScopeLabel("Organization")), org),
		NewLayer(NewScope("tenant", ScopePriorityTenant, WithScopeLabel("Tenant")), tenant),
		NewLayer(NewScope("system", ScopePrioritySystem, WithScopeLabel("System Defaults")), system),
	}
	layers := candidates[:0]
	for _, layer := range candidates {
		if layer.Snapshot != nil {
			layers = append(layers, layer)
		}
	}
	stack, err := NewStack(layers...)
	if err != nil {
		return nil, err
	}
	return stack.Merge(opts...)
}
