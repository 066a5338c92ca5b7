// Package state persists a searchable index of build files using SQLite.
// Each discovery run replaces the rows of the projects it indexed.
package state

import (
	"time"
)

// RunStatus is the outcome of a discovery run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one discovery run over a set of root build files.
type Run struct {
	ID          string
	Status      RunStatus
	Roots       int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Project is an indexed root build file.
type Project struct {
	Path          string
	Name          string
	DefaultTarget string
	RunID         string
	IndexedAt     time.Time
}

// Target is a target visible from an indexed project under its effective name.
type Target struct {
	Project string
	// Name is the effective name
	Name string
	// Target is the name declared in the defining file
	Target           string
	File             string
	Line             int
	Description      string
	Depends          string
	IsDefault        bool
	IsExtensionPoint bool
}

// CustomElement is a custom task or type declared in an indexed project's closure.
type CustomElement struct {
	Project   string
	Name      string
	Namespace string
	Kind      string
	ClassName string
	File      string
	Line      int
	// Error holds the class loading failure, if any
	Error string
}

// Duplicate is a pair of targets sharing an effective name.
type Duplicate struct {
	Project    string
	Name       string
	FirstFile  string
	FirstLine  int
	SecondFile string
	SecondLine int
}

// ProjectIndex is everything indexed for one root build file.
type ProjectIndex struct {
	Project        Project
	Targets        []Target
	CustomElements []CustomElement
	Duplicates     []Duplicate
}
