package interp

// Registry is a deterministic bidirectional name ↔ pseudo-object table. It
// holds the world's named singletons and gives the snapshotter stable,
// human-meaningful roots. Iteration follows insertion order.
type Registry struct {
	names   []string
	byName  map[string]*Object
	byObj   map[*Object]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Object),
		byObj:  make(map[*Object]string),
	}
}

// Bind associates name with obj, replacing any previous binding of either.
func (r *Registry) Bind(name string, obj *Object) {
	if oldName, ok := r.byObj[obj]; ok && oldName != name {
		r.Unbind(oldName)
	}
	if old, ok := r.byName[name]; ok {
		delete(r.byObj, old)
		r.byName[name] = obj
		r.byObj[obj] = name
		return
	}
	r.names = append(r.names, name)
	r.byName[name] = obj
	r.byObj[obj] = name
}

// Lookup returns the object bound to name, or nil.
func (r *Registry) Lookup(name string) *Object {
	return r.byName[name]
}

// NameOf returns the name bound to obj, or "".
func (r *Registry) NameOf(obj *Object) string {
	return r.byObj[obj]
}

// Unbind removes the binding for name, if any.
func (r *Registry) Unbind(name string) {
	obj, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	delete(r.byObj, obj)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

// Names returns all bound names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	return len(r.names)
}
