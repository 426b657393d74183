package tier

// Band maps a contiguous level range [MinLevel, MaxLevel] to a Discord
// role. Bands are evaluated in order and are expected to be disjoint.
type Band struct {
	MinLevel int
	MaxLevel int
	RoleID   string
}

// Resolver answers which role a level implies and what role changes are
// needed to get a member there. It is pure; applying role changes is the
// notifier's job.
type Resolver struct {
	bands []Band
}

func NewResolver(bands []Band) *Resolver {
	return &Resolver{bands: bands}
}

// RoleForLevel returns the role for the band containing level, or ""
// when no band matches.
func (r *Resolver) RoleForLevel(level int) string {
	for _, band := range r.bands {
		if level >= band.MinLevel && level <= band.MaxLevel {
			return band.RoleID
		}
	}
	return ""
}

// RoleIDs returns every role id in the tier table.
func (r *Resolver) RoleIDs() []string {
	ids := make([]string, 0, len(r.bands))
	for _, band := range r.bands {
		if band.RoleID != "" {
			ids = append(ids, band.RoleID)
		}
	}
	return ids
}

// Reconcile compares the member's held roles against the role the level
// implies. toAdd is the target role when not already held; toRemove is
// every other tier role the member holds. Non-tier roles are ignored.
func (r *Resolver) Reconcile(heldRoleIDs []string, level int) (toAdd []string, toRemove []string) {
	target := r.RoleForLevel(level)

	held := make(map[string]bool, len(heldRoleIDs))
	for _, id := range heldRoleIDs {
		held[id] = true
	}

	for _, id := range r.RoleIDs() {
		if id == target {
			continue
		}
		if held[id] {
			toRemove = append(toRemove, id)
		}
	}

	if target != "" && !held[target] {
		toAdd = append(toAdd, target)
	}
	return toAdd, toRemove
}
