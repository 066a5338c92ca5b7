// Package classpath models the build engine's class loading for static analysis.
//
// Nothing is executed: a class "loads" when its .class file, or an entry in the built-in
// definition tables, can be found. Loaders delegate to their parent first, like the JVM's
// URL class loaders.
package classpath

import (
	"fmt"
	"strings"
)

// Class is a located class.
type Class struct {
	// Name is the fully qualified class name
	Name string
	// Location is the classpath entry the class was found in
	Location string
	// Loader is the loader that defined the class
	Loader Loader
}

// Loader finds classes and resources.
type Loader interface {
	// LoadClass locates a class by its fully qualified name
	LoadClass(name string) (*Class, error)
	// Resource returns the content of a slash-separated classpath resource
	Resource(name string) ([]byte, error)
	// Parent returns the delegation parent, nil for the root loader
	Parent() Loader
	String() string
}

// ClassNotFoundError reports a class missing from a loader and all its parents.
type ClassNotFoundError struct {
	Name   string
	Loader string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class %s not found in %s", e.Name, e.Loader)
}

// ResourceNotFoundError reports a resource missing from a loader and all its parents.
type ResourceNotFoundError struct {
	Name   string
	Loader string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource %s not found in %s", e.Name, e.Loader)
}

// ClassFile returns the resource path of a class name.
func ClassFile(name string) string {
	return strings.ReplaceAll(name, ".", "/") + ".class"
}

// AntlibResource returns the descriptor resource of an "antlib:" namespace URI.
func AntlibResource(uri string) (string, bool) {
	pkg, ok := strings.CutPrefix(uri, "antlib:")
	if !ok || pkg == "" {
		return "", false
	}
	return strings.ReplaceAll(pkg, ".", "/") + "/antlib.xml", true
}
