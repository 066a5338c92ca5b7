package imports

// Scope is the accumulated prefix under which a project's targets are visible.
// The zero value is the root scope, where names are used as declared.
type Scope struct {
	// Prefix is the composed prefix of every prefixed directive on the path from the root
	Prefix string
	// Separator joins Prefix and a declared name
	Separator string
}

// IsRoot reports whether names are unprefixed in this scope.
func (s Scope) IsRoot() bool {
	return s.Prefix == ""
}

// Qualify returns the effective name of a declared name in this scope.
func (s Scope) Qualify(name string) string {
	if s.IsRoot() {
		return name
	}
	return s.Prefix + s.Separator + name
}

// Enter returns the scope of the edge's project when reached from s.
// Prefixes compose: outer + outer separator + inner.
func (s Scope) Enter(e Edge) Scope {
	if e.Prefix == "" {
		return s
	}
	return Scope{Prefix: s.Qualify(e.Prefix), Separator: e.Separator}
}
