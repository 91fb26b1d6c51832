package gql

// Prefix tracks the composed variable-name prefix carried by a Selection.
// Composition is left-nested: applying "q" to a Prefix already holding "p"
// yields "q_p", so names end up as "q_p_<suffix>" — matching the order a
// BatchPaginator applies aliases in (outermost alias first).
type Prefix struct {
	value string
	set   bool
}

// Apply returns a new Prefix with p composed in front of the receiver's
// existing prefix, if any.
func (px Prefix) Apply(p string) Prefix {
	if !px.set {
		return Prefix{value: p, set: true}
	}
	return Prefix{value: p + "_" + px.value, set: true}
}

// Name returns suffix namespaced under the current prefix, or suffix
// unchanged if no prefix has been applied.
func (px Prefix) Name(suffix string) string {
	if !px.set {
		return suffix
	}
	return px.value + "_" + suffix
}
