package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SaveProjectIndex replaces every row of idx.Project.Path with idx, in one transaction.
func (s *SQLiteStore) SaveProjectIndex(ctx context.Context, runID string, idx *ProjectIndex) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p := idx.Project.Path
	for _, table := range []string{"targets", "custom_elements", "duplicates", "projects"} {
		col := "project"
		if table == "projects" {
			col = "path"
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+col+` = ?`, p); err != nil {
			return fmt.Errorf("failed to clear %s for %s: %w", table, p, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (path, name, default_target, run_id, indexed_at) VALUES (?, ?, ?, ?, ?)`,
		p, idx.Project.Name, idx.Project.DefaultTarget, runID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p, err)
	}

	for _, t := range idx.Targets {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO targets (project, name, target, file, line, description, depends, is_default, is_extension_point)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p, t.Name, t.Target, t.File, t.Line, t.Description, t.Depends, boolInt(t.IsDefault), boolInt(t.IsExtensionPoint),
		)
		if err != nil {
			return fmt.Errorf("failed to save target %s: %w", t.Name, err)
		}
	}

	for _, c := range idx.CustomElements {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO custom_elements (project, name, namespace, kind, class_name, file, line, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p, c.Name, c.Namespace, c.Kind, c.ClassName, c.File, c.Line, c.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to save custom element %s: %w", c.Name, err)
		}
	}

	for _, d := range idx.Duplicates {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO duplicates (project, name, first_file, first_line, second_file, second_line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p, d.Name, d.FirstFile, d.FirstLine, d.SecondFile, d.SecondLine,
		)
		if err != nil {
			return fmt.Errorf("failed to save duplicate %s: %w", d.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index of %s: %w", p, err)
	}
	s.logger.Debug("project indexed",
		slog.String("project", p),
		slog.Int("targets", len(idx.Targets)),
		slog.Int("custom_elements", len(idx.CustomElements)))
	return nil
}

// ListProjects returns every indexed project ordered by path.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]Project, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, name, default_target, run_id, indexed_at FROM projects ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Path, &p.Name, &p.DefaultTarget, &p.RunID, &p.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SearchTargets returns targets whose effective name matches pattern, ordered by project
// and name.
func (s *SQLiteStore) SearchTargets(ctx context.Context, pattern string) ([]Target, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT project, name, target, file, line, description, depends, is_default, is_extension_point
		 FROM targets WHERE name LIKE ? ESCAPE '\' ORDER BY project, name`,
		likePattern(pattern),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search targets: %w", err)
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		var isDefault, isExt int
		if err := rows.Scan(&t.Project, &t.Name, &t.Target, &t.File, &t.Line, &t.Description, &t.Depends, &isDefault, &isExt); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		t.IsDefault = isDefault != 0
		t.IsExtensionPoint = isExt != 0
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SearchCustomElements returns custom elements whose name matches pattern, ordered by
// project, namespace and name.
func (s *SQLiteStore) SearchCustomElements(ctx context.Context, pattern string) ([]CustomElement, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT project, name, namespace, kind, class_name, file, line, error
		 FROM custom_elements WHERE name LIKE ? ESCAPE '\' ORDER BY project, namespace, name, file, line`,
		likePattern(pattern),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search custom elements: %w", err)
	}
	defer rows.Close()

	var elements []CustomElement
	for rows.Next() {
		var c CustomElement
		if err := rows.Scan(&c.Project, &c.Name, &c.Namespace, &c.Kind, &c.ClassName, &c.File, &c.Line, &c.Error); err != nil {
			return nil, fmt.Errorf("failed to scan custom element: %w", err)
		}
		elements = append(elements, c)
	}
	return elements, rows.Err()
}

// ListDuplicates returns the duplicate target names recorded for a project.
func (s *SQLiteStore) ListDuplicates(ctx context.Context, project string) ([]Duplicate, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT project, name, first_file, first_line, second_file, second_line
		 FROM duplicates WHERE project = ? ORDER BY name, second_file, second_line`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicates: %w", err)
	}
	defer rows.Close()

	var dups []Duplicate
	for rows.Next() {
		var d Duplicate
		if err := rows.Scan(&d.Project, &d.Name, &d.FirstFile, &d.FirstLine, &d.SecondFile, &d.SecondLine); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate: %w", err)
		}
		dups = append(dups, d)
	}
	return dups, rows.Err()
}

