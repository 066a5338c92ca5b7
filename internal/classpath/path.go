package classpath

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leapstack-labs/antscope/pkg/core"
)

// MaxPathEntries caps the number of entries a single path expansion may produce.
const MaxPathEntries = 1000

var errPathFull = errors.New("path entry limit reached")

// PathResolver expands path-like elements to classpath entries.
type PathResolver struct {
	// FS is searched by filesets
	FS fs.FS
	// Basedir resolves relative locations
	Basedir string
	// Refs resolves refid and classpathref references to <path> elements
	Refs func(id string) *core.Element
}

// Expand returns the entries of a path-like element: <classpath>, <path> or a definition
// carrying classpath attributes. Entries keep document order and are de-duplicated.
func (r PathResolver) Expand(e *core.Element) []string {
	x := &expansion{r: r, seen: make(map[string]bool), refs: make(map[string]bool)}
	x.attrs(e)
	x.children(e)
	return x.out
}

type expansion struct {
	r    PathResolver
	out  []string
	seen map[string]bool
	refs map[string]bool
}

func (x *expansion) full() bool {
	return len(x.out) >= MaxPathEntries
}

func (x *expansion) add(p string) {
	if p == "" || x.full() || x.seen[p] {
		return
	}
	x.seen[p] = true
	x.out = append(x.out, p)
}

func (x *expansion) location(loc string) {
	loc = strings.TrimSpace(loc)
	if loc == "" || strings.Contains(loc, "${") {
		return
	}
	if strings.HasPrefix(loc, "/") {
		x.add(path.Clean(strings.TrimPrefix(loc, "/")))
		return
	}
	x.add(path.Join(x.r.Basedir, loc))
}

func (x *expansion) pathList(list string) {
	for _, p := range strings.FieldsFunc(list, func(r rune) bool { return r == ':' || r == ';' }) {
		x.location(p)
	}
}

func (x *expansion) ref(id string) {
	if id == "" || x.refs[id] || x.r.Refs == nil {
		return
	}
	x.refs[id] = true
	if e := x.r.Refs(id); e != nil {
		x.attrs(e)
		x.children(e)
	}
}

func (x *expansion) attrs(e *core.Element) {
	x.pathList(e.Attr("classpath"))
	x.ref(e.Attr("classpathref"))
	x.ref(e.Attr("refid"))
	if e.Is("path") || e.Is("classpath") || e.Is("pathelement") {
		x.location(e.Attr("location"))
		x.pathList(e.Attr("path"))
	}
}

func (x *expansion) children(e *core.Element) {
	for _, c := range e.Children {
		if x.full() {
			return
		}
		switch {
		case c.Is("classpath"), c.Is("path"):
			x.attrs(c)
			x.children(c)
		case c.Is("pathelement"):
			x.attrs(c)
		case c.Is("fileset"):
			x.fileset(c)
		case c.Is("filelist"):
			dir := c.Attr("dir")
			for _, f := range strings.FieldsFunc(c.Attr("files"), isListSep) {
				x.location(path.Join(dir, f))
			}
		}
	}
}

func isListSep(r rune) bool {
	return r == ',' || r == ' '
}

// fileset matches includes under dir with doublestar, then drops excludes.
func (x *expansion) fileset(e *core.Element) {
	dir := e.Attr("dir")
	if dir == "" || strings.Contains(dir, "${") || x.r.FS == nil {
		return
	}
	if !strings.HasPrefix(dir, "/") {
		dir = path.Join(x.r.Basedir, dir)
	}
	dir = path.Clean(strings.TrimPrefix(dir, "/"))

	includes := strings.FieldsFunc(e.Attr("includes"), isListSep)
	excludes := strings.FieldsFunc(e.Attr("excludes"), isListSep)
	for _, c := range e.ChildrenNamed("include") {
		includes = append(includes, c.Attr("name"))
	}
	for _, c := range e.ChildrenNamed("exclude") {
		excludes = append(excludes, c.Attr("name"))
	}
	if len(includes) == 0 {
		includes = []string{"**"}
	}

	sub, err := fs.Sub(x.r.FS, dir)
	if err != nil {
		return
	}
	for _, inc := range includes {
		err := doublestar.GlobWalk(sub, antPattern(inc), func(p string, d fs.DirEntry) error {
			if d.IsDir() || excluded(p, excludes) {
				return nil
			}
			x.add(path.Join(dir, p))
			if x.full() {
				return errPathFull
			}
			return nil
		})
		if errors.Is(err, errPathFull) {
			return
		}
	}
}

// antPattern converts the build engine's pattern dialect: a trailing slash means "**".
func antPattern(p string) string {
	p = strings.TrimPrefix(p, "/")
	if strings.HasSuffix(p, "/") {
		p += "**"
	}
	return p
}

func excluded(p string, excludes []string) bool {
	for _, ex := range excludes {
		if ok, _ := doublestar.Match(antPattern(ex), p); ok {
			return true
		}
	}
	return false
}
