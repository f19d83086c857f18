// Package tasks defines the static registry of segmentation tasks supported
// by the external segmentation tool, together with each task's capability
// flags and its label-to-structure class map.
package tasks

import (
	"sort"
)

// Modality identifies the imaging modality a task applies to.
type Modality string

const (
	ModalityCT Modality = "CT"
	ModalityMR Modality = "MR"
)

// Task describes one named segmentation configuration. Capability flags are
// fixed at registration and never mutated at runtime; code that builds
// command lines must consult them rather than assume a capability exists.
type Task struct {
	// Name is the identifier passed to the external tool via --task.
	Name string

	// Title is a human-readable description shown in listings.
	Title string

	// SupportsFast reports whether the task accepts the --fast option
	// (3mm low-resolution model).
	SupportsFast bool

	// SupportsFastest reports whether the task accepts the --fastest
	// option (6mm model).
	SupportsFastest bool

	// SupportsMultiLabel reports whether the task can write a single
	// multi-label output volume (--ml). Tasks without it write one file
	// per structure.
	SupportsMultiLabel bool

	// RequiresPreSegmentation reports whether the task needs a
	// preparatory forced-fast run of the baseline task before the main
	// invocation.
	RequiresPreSegmentation bool

	// RequiresLicense reports whether the task needs a tool license.
	RequiresLicense bool

	// Modalities lists the imaging modalities the task applies to.
	Modalities []Modality

	// ClassMap maps the integer label values the task emits to canonical
	// structure names. All label values are positive.
	ClassMap map[int]string
}

// Structures returns the task's structure names ordered by label value.
func (t *Task) Structures() []string {
	labels := make([]int, 0, len(t.ClassMap))
	for l := range t.ClassMap {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, t.ClassMap[l])
	}
	return names
}

// MaxLabel returns the largest label value in the task's class map, or 0
// for an empty map.
func (t *Task) MaxLabel() int {
	max := 0
	for l := range t.ClassMap {
		if l > max {
			max = l
		}
	}
	return max
}

// Registry is a read-only collection of task descriptors looked up by name.
type Registry struct {
	byName map[string]*Task
}

// NewRegistry builds a registry from the given descriptors.
func NewRegistry(tasks []*Task) *Registry {
	r := &Registry{byName: make(map[string]*Task, len(tasks))}
	for _, t := range tasks {
		r.byName[t.Name] = t
	}
	return r
}

// Default returns the registry of all built-in tasks.
func Default() *Registry {
	return NewRegistry(builtinTasks())
}

// Get looks up a task by name.
func (r *Registry) Get(name string) (*Task, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns all registered task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unknown task names answer false to every capability query rather than
// erroring; an unknown task has no special capabilities.

// SupportsFast reports whether the named task accepts fast mode.
func (r *Registry) SupportsFast(name string) bool {
	t, ok := r.byName[name]
	return ok && t.SupportsFast
}

// SupportsFastest reports whether the named task accepts fastest mode.
func (r *Registry) SupportsFastest(name string) bool {
	t, ok := r.byName[name]
	return ok && t.SupportsFastest
}

// SupportsMultiLabel reports whether the named task can write a single
// multi-label output volume.
func (r *Registry) SupportsMultiLabel(name string) bool {
	t, ok := r.byName[name]
	return ok && t.SupportsMultiLabel
}

// RequiresPreSegmentation reports whether the named task needs a
// preparatory forced-fast baseline run.
func (r *Registry) RequiresPreSegmentation(name string) bool {
	t, ok := r.byName[name]
	return ok && t.RequiresPreSegmentation
}

// RequiresLicense reports whether the named task needs a tool license.
func (r *Registry) RequiresLicense(name string) bool {
	t, ok := r.byName[name]
	return ok && t.RequiresLicense
}
