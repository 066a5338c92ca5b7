// Package core defines the shared language of antscope.
//
// This package contains:
//   - The element tree a build file is parsed into (Element, Attr)
//   - The project model derived from it (Project, Target, ImportDirective)
//   - The PropertyProvider capability implemented by declaration kinds
//   - Collaborator interfaces (ImportSource)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
