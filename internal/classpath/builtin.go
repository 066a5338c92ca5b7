package classpath

import (
	"embed"
	"sync"

	"github.com/magiconair/properties"
)

//go:embed builtin/*.properties
var builtinFS embed.FS

// Resource paths of the built-in definition tables.
const (
	TaskDefaults = "org/apache/tools/ant/taskdefs/defaults.properties"
	TypeDefaults = "org/apache/tools/ant/types/defaults.properties"
)

var builtinResources = map[string]string{
	TaskDefaults: "builtin/taskdefs.properties",
	TypeDefaults: "builtin/types.properties",
}

// coreClasses are engine classes outside the definition tables that user code extends.
var coreClasses = []string{
	"org.apache.tools.ant.Task",
	"org.apache.tools.ant.ProjectComponent",
	"org.apache.tools.ant.types.DataType",
	"org.apache.tools.ant.taskdefs.condition.Condition",
	"org.apache.tools.ant.taskdefs.MacroInstance",
	"org.apache.tools.ant.taskdefs.optional.script.ScriptDefBase",
}

type builtinLoader struct {
	once    sync.Once
	classes map[string]bool
}

var builtin = &builtinLoader{}

// Builtin returns the root loader holding the build engine's own classes.
func Builtin() Loader {
	return builtin
}

func (b *builtinLoader) load() {
	b.once.Do(func() {
		b.classes = make(map[string]bool)
		for _, c := range coreClasses {
			b.classes[c] = true
		}
		for _, file := range builtinResources {
			data, err := builtinFS.ReadFile(file)
			if err != nil {
				continue
			}
			p, err := properties.Load(data, properties.ISO_8859_1)
			if err != nil {
				continue
			}
			for _, k := range p.Keys() {
				b.classes[p.GetString(k, "")] = true
			}
		}
	})
}

func (b *builtinLoader) LoadClass(name string) (*Class, error) {
	b.load()
	if !b.classes[name] {
		return nil, &ClassNotFoundError{Name: name, Loader: b.String()}
	}
	return &Class{Name: name, Location: "builtin", Loader: b}, nil
}

func (b *builtinLoader) Resource(name string) ([]byte, error) {
	file, ok := builtinResources[name]
	if !ok {
		return nil, &ResourceNotFoundError{Name: name, Loader: b.String()}
	}
	return builtinFS.ReadFile(file)
}

func (b *builtinLoader) Parent() Loader { return nil }

func (b *builtinLoader) String() string { return "builtin" }
