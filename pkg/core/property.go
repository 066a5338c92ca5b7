package core

// Value is the statically known value of a property, if any.
type Value struct {
	// Text is the raw value text
	Text string
	// Known is false when the value is only known at build time
	Known bool
}

// KnownValue returns a Value with static text.
func KnownValue(text string) Value {
	return Value{Text: text, Known: true}
}

// UnknownValue returns a Value computed at build time.
func UnknownValue() Value {
	return Value{}
}

func (v Value) String() string {
	if !v.Known {
		return "<unknown>"
	}
	return v.Text
}

// Declaration is where a property gets its value.
type Declaration struct {
	// Element is the navigation handle (may be a nested element of the provider)
	Element *Element
	// Value is the assigned value
	Value Value
}

// PropertyProvider is anything that can assign properties.
type PropertyProvider interface {
	// Element returns the declaring element
	Element() *Element
	// Names returns the statically enumerable property names, in declaration order
	Names() []string
	// Lookup reports whether the provider assigns name, and where
	Lookup(name string) (Declaration, bool)
}

// CallSiteParameter is a provider bound when a call site runs.
type CallSiteParameter interface {
	PropertyProvider
	// CallSite returns the invoking element
	CallSite() *Element
}
