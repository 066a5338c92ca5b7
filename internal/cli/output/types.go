package output

// Location is a position in a build file.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// TargetOutput is one target in JSON output.
type TargetOutput struct {
	Name           string   `json:"name"`
	Target         string   `json:"target"`
	Location       Location `json:"location"`
	Depends        []string `json:"depends,omitempty"`
	Missing        []string `json:"missing,omitempty"`
	Description    string   `json:"description,omitempty"`
	Default        bool     `json:"default,omitempty"`
	ExtensionPoint bool     `json:"extension_point,omitempty"`
}

// TargetRefOutput is the resolution of one target reference.
type TargetRefOutput struct {
	Name     string    `json:"name"`
	Resolved bool      `json:"resolved"`
	Target   string    `json:"target,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// ResolveTargetsOutput is the JSON output of resolve target.
type ResolveTargetsOutput struct {
	Context  string            `json:"context,omitempty"`
	Refs     []TargetRefOutput `json:"refs"`
	Variants []string          `json:"variants,omitempty"`
}

// PropertyMatchOutput is one assignment of a property.
type PropertyMatchOutput struct {
	Location Location `json:"location"`
	Kind     string   `json:"kind"`
	Value    *string  `json:"value,omitempty"`
	Target   string   `json:"target,omitempty"`
}

// PropertyOutput is the JSON output of resolve property.
type PropertyOutput struct {
	Name     string                `json:"name"`
	Found    bool                  `json:"found"`
	Fallback bool                  `json:"fallback,omitempty"`
	Primary  *PropertyMatchOutput  `json:"primary,omitempty"`
	Params   []PropertyMatchOutput `json:"params,omitempty"`
	Variants []string              `json:"variants,omitempty"`
}

// DuplicateOutput is one pair of targets sharing an effective name.
type DuplicateOutput struct {
	Name   string   `json:"name"`
	First  Location `json:"first"`
	Second Location `json:"second"`
}

// CustomDefOutput is one custom element declaration.
type CustomDefOutput struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace,omitempty"`
	Kind      string   `json:"kind"`
	Parent    string   `json:"parent,omitempty"`
	ClassName string   `json:"class,omitempty"`
	Location  Location `json:"location"`
	Error     string   `json:"error,omitempty"`
}

// ProblemOutput is a declaration that could not be processed.
type ProblemOutput struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// CustomDefsOutput is the JSON output of customdefs.
type CustomDefsOutput struct {
	Declarations []CustomDefOutput `json:"declarations"`
	Problems     []ProblemOutput   `json:"problems,omitempty"`
}

// DAGNode is one target in the DAG JSON output.
type DAGNode struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on"`
	UsedBy    []string `json:"used_by"`
}

// DAGLevel groups targets with the same dependency depth.
type DAGLevel struct {
	Level   int       `json:"level"`
	Targets []DAGNode `json:"targets"`
}

// DAGOutput is the JSON output of dag.
type DAGOutput struct {
	Levels       []DAGLevel          `json:"levels,omitempty"`
	Order        []string            `json:"order,omitempty"`
	Cycle        []string            `json:"cycle,omitempty"`
	Missing      map[string][]string `json:"missing,omitempty"`
	// Roots are targets without dependencies, Leaves targets nothing depends on
	Roots        []string            `json:"roots,omitempty"`
	Leaves       []string            `json:"leaves,omitempty"`
	TotalTargets int                 `json:"total_targets"`
	TotalEdges   int                 `json:"total_edges"`
}

// DiscoverOutput is the JSON output of discover.
type DiscoverOutput struct {
	RunID    string              `json:"run_id"`
	Projects []DiscoveredProject `json:"projects"`
	Failed   []DiscoverFailure   `json:"failed,omitempty"`
}

// DiscoveredProject summarizes one indexed build file.
type DiscoveredProject struct {
	File           string `json:"file"`
	Name           string `json:"name,omitempty"`
	Targets        int    `json:"targets"`
	CustomElements int    `json:"custom_elements"`
	Duplicates     int    `json:"duplicates"`
}

// DiscoverFailure is a build file that could not be indexed.
type DiscoverFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}
