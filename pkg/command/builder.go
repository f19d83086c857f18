// Package command builds argument lists for the external segmentation
// tool's CLI from run options and task capability flags.
//
// The builder is deterministic and side-effect free: the same options
// always produce the same plan, and all validation happens here, before
// any subprocess is spawned.
package command

import (
	"fmt"
	"path/filepath"

	"segrunner/pkg/tasks"
	"segrunner/pkg/terminology"
)

// Options are the caller-supplied options for one segmentation run.
type Options struct {
	// InputPath is the NIfTI input volume file handed to the tool.
	InputPath string

	// OutputDir is the directory the tool writes its results into.
	OutputDir string

	// Task selects the segmentation task. Empty means the baseline
	// "segment everything" task.
	Task string

	// Fast requests the low-resolution fast model. Silently dropped when
	// the task does not support it.
	Fast bool

	// Fastest requests the 6mm model. Silently dropped when the task
	// does not support it.
	Fastest bool

	// CPU forces CPU-only execution via an explicit device override.
	CPU bool

	// Subset restricts the run to the named structures. Every name must
	// exist in the terminology table. When both Task and Subset are set,
	// the task governs output file layout and the subset is forwarded as
	// a region-of-interest restriction.
	Subset []string
}

// Plan is the fully resolved invocation plan for one run.
type Plan struct {
	// Task is the resolved task descriptor driving the run.
	Task *tasks.Task

	// PreArgs, when non-nil, is the argument list of a preparatory
	// forced-fast invocation the tool requires before the main run. Its
	// output is consumed internally by the tool and is never imported.
	PreArgs []string

	// MainArgs is the argument list of the main invocation.
	MainArgs []string

	// MultiLabel reports whether the main run writes a single
	// multi-label volume rather than one file per structure.
	MultiLabel bool

	// OutputPath is where the importable result lands: a file path in
	// multi-label mode, the output directory otherwise.
	OutputPath string
}

// MultiLabelFileName is the file the tool writes in multi-label mode,
// relative to the output directory.
const MultiLabelFileName = "segmentation.nii"

// UnknownStructureError is returned when a subset request names a structure
// missing from the terminology table.
type UnknownStructureError struct {
	Name string
}

func (e *UnknownStructureError) Error() string {
	return fmt.Sprintf("unknown structure name %q in subset request", e.Name)
}

// UnknownTaskError is returned when the requested task is not registered.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.Name)
}

// Builder resolves run options against the task registry and terminology
// table into invocation plans.
type Builder struct {
	registry *tasks.Registry
	terms    *terminology.Table
}

// NewBuilder creates a builder over the given registry and terminology table.
func NewBuilder(registry *tasks.Registry, terms *terminology.Table) *Builder {
	return &Builder{registry: registry, terms: terms}
}

// Build resolves the options into an invocation plan.
//
// The rules, in order:
//  1. An empty task name resolves to the baseline task.
//  2. Every subset name is validated against the terminology table;
//     an unknown name is a configuration error.
//  3. --ml is emitted iff the task supports multi-label output.
//  4. --fast / --fastest are emitted iff requested AND supported;
//     unsupported requests are silently dropped, never an error.
//  5. --device cpu is emitted on request.
//  6. Tasks requiring a pre-segmentation pass get a preparatory baseline
//     invocation with fast mode forced on, regardless of the caller's
//     fast setting.
func (b *Builder) Build(opts Options) (*Plan, error) {
	if opts.InputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	taskName := opts.Task
	if taskName == "" {
		taskName = tasks.DefaultTaskName
	}
	task, ok := b.registry.Get(taskName)
	if !ok {
		return nil, &UnknownTaskError{Name: taskName}
	}

	for _, name := range opts.Subset {
		if !b.terms.Has(name) {
			return nil, &UnknownStructureError{Name: name}
		}
	}

	plan := &Plan{
		Task:       task,
		MultiLabel: task.SupportsMultiLabel,
		OutputPath: opts.OutputDir,
	}
	if plan.MultiLabel {
		plan.OutputPath = filepath.Join(opts.OutputDir, MultiLabelFileName)
	}

	args := []string{"-i", opts.InputPath, "-o", plan.OutputPath}
	if plan.MultiLabel {
		args = append(args, "--ml")
	}
	args = append(args, "--task", task.Name)
	if opts.Fast && task.SupportsFast {
		args = append(args, "--fast")
	}
	if opts.Fastest && task.SupportsFastest {
		args = append(args, "--fastest")
	}
	if opts.CPU {
		args = append(args, "--device", "cpu")
	}
	if len(opts.Subset) > 0 {
		args = append(args, "--roi_subset")
		args = append(args, opts.Subset...)
	}
	plan.MainArgs = args

	if task.RequiresPreSegmentation {
		plan.PreArgs = b.preSegmentationArgs(opts)
	}

	return plan, nil
}

// preSegmentationArgs builds the preparatory baseline invocation. Fast mode
// is forced on: the pass only exists to give the tool a coarse mask to crop
// against, so resolution does not matter.
func (b *Builder) preSegmentationArgs(opts Options) []string {
	args := []string{
		"-i", opts.InputPath,
		"-o", opts.OutputDir,
		"--task", tasks.DefaultTaskName,
		"--fast",
	}
	if opts.CPU {
		args = append(args, "--device", "cpu")
	}
	return args
}
