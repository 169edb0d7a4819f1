package clock

import (
	"golang.org/x/exp/slices"
)

// UpdateListener is notified on every update pass it is eligible for.
// auto is true for tick driven passes and false for manual ones.
type UpdateListener func(auto bool) error

type Registration struct {
	Name         string
	Listener     UpdateListener
	AutoEligible bool
}

// registry keeps registrations keyed by name in first registration order.
// It is not safe for concurrent use on its own, the Scheduler guards it.
type registry struct {
	order   []string
	entries map[string]Registration
}

func newRegistry() *registry {
	return &registry{
		entries: map[string]Registration{},
	}
}

// register overwrites an existing registration in place so its position is kept
func (r *registry) register(registration Registration) {
	if _, exists := r.entries[registration.Name]; !exists {
		r.order = append(r.order, registration.Name)
	}

	r.entries[registration.Name] = registration
}

func (r *registry) unregister(name string) {
	if _, exists := r.entries[name]; !exists {
		return
	}

	delete(r.entries, name)
	r.order = slices.DeleteFunc(r.order, func(existing string) bool {
		return existing == name
	})
}

// snapshot returns the registrations to notify for a pass
func (r *registry) snapshot(auto bool) []Registration {
	registrations := make([]Registration, 0, len(r.order))

	for _, name := range r.order {
		registration := r.entries[name]
		if auto && !registration.AutoEligible {
			continue
		}

		registrations = append(registrations, registration)
	}

	return registrations
}

func (r *registry) names() []string {
	return slices.Clone(r.order)
}

func (r *registry) len() int {
	return len(r.order)
}
