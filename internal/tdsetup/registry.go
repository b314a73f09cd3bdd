package tdsetup

import (
	"sync"

	"td-dashboard/internal/model"
)

// Descriptor is the registration unit exposed to the host charting
// surface: a named indicator with its three callbacks already bound to
// one variant. The host calls Calc once per data change and caches the
// result, then Draw once per frame and Tooltip on cursor movement.
type Descriptor struct {
	Name      string
	ShortName string
	Precision int
	Variant   Variant

	Calc    func(bars []model.Bar) []SetupResult
	Draw    func(results []SetupResult, bars []model.Bar, view Range, pane Box, scale PriceScale, barWidth float64, canvas Canvas) bool
	Tooltip func(results []SetupResult, cursor int) Tooltip
}

// Registry is a catalog of registered indicator descriptors keyed by
// name. Registration is check-then-insert under a lock, so repeated
// registration of the same name is a no-op rather than an error.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*Descriptor
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor for v under name if absent and returns the
// registered descriptor. Safe to call on every application start.
func (r *Registry) Register(name, shortName string, v Variant) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.byName[name]; ok {
		return d
	}

	v.Name = name
	v.ShortName = shortName
	d := &Descriptor{
		Name:      name,
		ShortName: shortName,
		Precision: 0,
		Variant:   v,
		Calc:      v.Calculate,
		Draw:      v.Draw,
		Tooltip:   Project,
	}
	r.byName[name] = d
	r.order = append(r.order, name)
	return d
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[name]
	return d, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Default is the process-wide registry consumed by the dashboard host.
var Default = NewRegistry()

// RegisterDefaults registers the two stock variants on Default.
// Idempotent: calling it again changes nothing.
func RegisterDefaults() {
	ra := RangeAware()
	co := CloseOnly()
	Default.Register(ra.Name, ra.ShortName, ra)
	Default.Register(co.Name, co.ShortName, co)
}
