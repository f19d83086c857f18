// Package pipeline orchestrates one segmentation run end to end: write the
// input volume, optionally run the tool's preparatory pass, run the main
// segmentation, and import the results into a scene sink.
//
// The pipeline is single-shot: constructed, run to completion or error,
// and torn down. The only state shared across runs is the static task
// registry and terminology table, both read-only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"segrunner/internal/models"
	"segrunner/pkg/command"
	"segrunner/pkg/importer"
	"segrunner/pkg/nifti"
	"segrunner/pkg/preview"
	"segrunner/pkg/runner"
	"segrunner/pkg/scene"
	"segrunner/pkg/stats"
	"segrunner/pkg/tasks"
	"segrunner/pkg/terminology"
)

// State identifies the pipeline's position in its run cycle.
type State int

const (
	StateIdle State = iota
	StateWritingInput
	StatePreSegmentation
	StateMainSegmentation
	StateImporting
	StateDone
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWritingInput:
		return "writing-input"
	case StatePreSegmentation:
		return "pre-segmentation"
	case StateMainSegmentation:
		return "main-segmentation"
	case StateImporting:
		return "importing"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidLicense indicates the tool rejected the configured license.
var ErrInvalidLicense = errors.New("segmentation tool license is invalid")

// invalidLicenseMarker is the diagnostic string the tool embeds in its
// output when a license is rejected.
const invalidLicenseMarker = "Invalid license"

// RunConfig carries the per-invocation configuration of one pipeline run.
// It replaces long-lived orchestrator state: every run receives its own
// copy and nothing survives the run.
type RunConfig struct {
	// Executable is the external segmentation tool command.
	Executable string

	// ResultName is the display name of the created segmentation result.
	// Empty defaults to the task name.
	ResultName string

	// Task selects the segmentation task; empty means the baseline task.
	Task string

	// Fast requests the low-resolution fast model.
	Fast bool

	// Fastest requests the 6mm model.
	Fastest bool

	// CPU forces CPU-only execution.
	CPU bool

	// Subset restricts the run to the named structures.
	Subset []string

	// LicenseConfigured reports whether a tool license has been set up.
	// Tasks requiring a license fail before launch without one.
	LicenseConfigured bool

	// UseStandardSegmentNames names imported segments after their
	// standard terminology meaning instead of the tool's canonical
	// structure names.
	UseStandardSegmentNames bool

	// ClearOutputFolder removes the run's temporary directory after a
	// successful run.
	ClearOutputFolder bool

	// KeepTempOnError leaves the temporary directory in place when the
	// run fails, for diagnosis.
	KeepTempOnError bool

	// Statistics computes per-segment statistics after import
	// (multi-label runs only).
	Statistics bool

	// StatisticsPath, when set, is where the JSON statistics report is
	// written.
	StatisticsPath string

	// PreviewDir, when set, receives rendered axial preview slices of
	// the imported label volume (multi-label runs only).
	PreviewDir string
}

// Result describes a completed pipeline run.
type Result struct {
	// Handle identifies the created segmentation result in the sink.
	Handle scene.Handle

	// TempDir is the run's temporary directory. Empty if it was removed.
	TempDir string

	// Stats holds per-segment statistics when they were requested.
	Stats []stats.SegmentStats

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration
}

// Pipeline runs segmentations against a fixed registry, terminology table
// and scene sink. It is not safe for concurrent use; the run cycle is
// synchronous and blocking by design.
type Pipeline struct {
	registry *tasks.Registry
	terms    *terminology.Table
	sink     scene.Sink
	log      runner.LogFunc
	logger   *slog.Logger
	state    State
}

// New creates a pipeline. A nil log discards milestone messages.
func New(registry *tasks.Registry, terms *terminology.Table, sink scene.Sink, log runner.LogFunc) *Pipeline {
	if log == nil {
		log = runner.Discard
	}
	return &Pipeline{
		registry: registry,
		terms:    terms,
		sink:     sink,
		log:      log,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:    StateIdle,
	}
}

// SetLogger installs a structured logger for debug diagnostics.
func (p *Pipeline) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.logger.Debug("pipeline state change", "from", p.state.String(), "to", s.String())
	p.state = s
}

// fail moves the pipeline to the error state and aborts the run. All
// remaining steps are skipped and the failure propagates to the caller.
func (p *Pipeline) fail(err error) error {
	p.setState(StateError)
	return err
}

// Run executes one full segmentation cycle for the given input volume.
//
// The cycle is Idle → WritingInput → (PreSegmentationRun) →
// MainSegmentationRun → Importing → Done, with Error reachable from every
// step. There is no retry; all errors bubble to the caller.
func (p *Pipeline) Run(ctx context.Context, input *models.Volume, cfg RunConfig) (*Result, error) {
	start := time.Now()
	p.setState(StateIdle)

	if input == nil || len(input.Data) == 0 {
		return nil, p.fail(fmt.Errorf("input volume is invalid"))
	}

	taskName := cfg.Task
	if taskName == "" {
		taskName = tasks.DefaultTaskName
	}
	if p.registry.RequiresLicense(taskName) && !cfg.LicenseConfigured {
		return nil, p.fail(fmt.Errorf("task %q requires a license and none is configured", taskName))
	}

	run, err := runner.New(cfg.Executable)
	if err != nil {
		return nil, p.fail(err)
	}
	run.Logger = p.logger

	tempDir, err := os.MkdirTemp("", "segrunner-*")
	if err != nil {
		return nil, p.fail(fmt.Errorf("failed to create temporary directory: %w", err))
	}
	// Temporary files are exclusively owned by this run; removing them is
	// the orchestrator's responsibility, never the subprocess's.
	succeeded := false
	defer func() {
		if (succeeded && cfg.ClearOutputFolder) || (!succeeded && !cfg.KeepTempOnError) {
			os.RemoveAll(tempDir)
		}
	}()

	inputFile := filepath.Join(tempDir, "input.nii")
	outputDir := filepath.Join(tempDir, "segmentation")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, p.fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	p.setState(StateWritingInput)
	p.log(fmt.Sprintf("Writing input file to %s", inputFile))
	if err := nifti.WriteVolume(inputFile, input); err != nil {
		return nil, p.fail(fmt.Errorf("failed to write input volume: %w", err))
	}

	builder := command.NewBuilder(p.registry, p.terms)
	plan, err := builder.Build(command.Options{
		InputPath: inputFile,
		OutputDir: outputDir,
		Task:      cfg.Task,
		Fast:      cfg.Fast,
		Fastest:   cfg.Fastest,
		CPU:       cfg.CPU,
		Subset:    cfg.Subset,
	})
	if err != nil {
		return nil, p.fail(err)
	}

	if plan.PreArgs != nil {
		p.setState(StatePreSegmentation)
		p.log("Running preparatory segmentation pass...")
		if _, err := p.runTool(ctx, run, plan.PreArgs); err != nil {
			return nil, p.fail(err)
		}
	}

	p.setState(StateMainSegmentation)
	p.log(fmt.Sprintf("Creating segmentations with task %s...", plan.Task.Name))
	if _, err := p.runTool(ctx, run, plan.MainArgs); err != nil {
		return nil, p.fail(err)
	}

	p.setState(StateImporting)
	p.log("Importing segmentation results...")
	resultName := cfg.ResultName
	if resultName == "" {
		resultName = plan.Task.Name
	}
	im := importer.New(p.sink, p.terms, p.log)
	im.UseStandardNames = cfg.UseStandardSegmentNames

	var handle scene.Handle
	if plan.MultiLabel {
		handle, err = im.ImportMultiLabel(resultName, plan.OutputPath, plan.Task)
	} else {
		structures := cfg.Subset
		if len(structures) == 0 {
			structures = plan.Task.Structures()
		}
		handle, err = im.ImportPerStructure(resultName, plan.OutputPath, structures)
	}
	if err != nil {
		return nil, p.fail(err)
	}

	result := &Result{Handle: handle}

	if plan.MultiLabel && (cfg.Statistics || cfg.PreviewDir != "") {
		labels, err := nifti.ReadLabelVolume(plan.OutputPath)
		if err != nil {
			return nil, p.fail(fmt.Errorf("failed to re-read label volume: %w", err))
		}
		if cfg.Statistics {
			result.Stats, err = stats.Compute(input, labels, plan.Task.ClassMap)
			if err != nil {
				return nil, p.fail(fmt.Errorf("failed to compute statistics: %w", err))
			}
			if cfg.StatisticsPath != "" {
				if err := stats.WriteReport(cfg.StatisticsPath, result.Stats); err != nil {
					return nil, p.fail(err)
				}
			}
		}
		if cfg.PreviewDir != "" {
			if err := p.renderPreview(labels, plan.Task, cfg.PreviewDir); err != nil {
				return nil, p.fail(err)
			}
		}
	}

	succeeded = true
	p.setState(StateDone)
	result.Duration = time.Since(start)
	if !cfg.ClearOutputFolder {
		result.TempDir = tempDir
	}
	p.log(fmt.Sprintf("Segmentation done in %.2f seconds.", result.Duration.Seconds()))
	return result, nil
}

// RunFile is Run for an input volume already stored as a NIfTI file.
func (p *Pipeline) RunFile(ctx context.Context, inputPath string, cfg RunConfig) (*Result, error) {
	input, err := nifti.ReadVolume(inputPath)
	if err != nil {
		return nil, p.fail(fmt.Errorf("failed to read input volume: %w", err))
	}
	return p.Run(ctx, input, cfg)
}

// RunSequence runs the full pipeline cycle once per input frame. Each
// iteration is fully independent; the first failure aborts the remaining
// frames and propagates.
func (p *Pipeline) RunSequence(ctx context.Context, frames []*models.Volume, cfg RunConfig) ([]*Result, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("input sequence is empty")
	}
	baseName := cfg.ResultName
	if baseName == "" {
		baseName = cfg.Task
	}
	if baseName == "" {
		baseName = tasks.DefaultTaskName
	}

	results := make([]*Result, 0, len(frames))
	for i, frame := range frames {
		frameCfg := cfg
		frameCfg.ResultName = fmt.Sprintf("%s frame %d", baseName, i+1)
		p.log(fmt.Sprintf("Segmenting frame %d of %d", i+1, len(frames)))
		res, err := p.Run(ctx, frame, frameCfg)
		if err != nil {
			return results, fmt.Errorf("frame %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// runTool runs one tool invocation, translating an embedded invalid-license
// diagnostic into ErrInvalidLicense.
func (p *Pipeline) runTool(ctx context.Context, run *runner.Runner, args []string) (string, error) {
	out, err := run.Run(ctx, args, p.log)
	if err != nil {
		if strings.Contains(out, invalidLicenseMarker) {
			return out, fmt.Errorf("%w: %v", ErrInvalidLicense, err)
		}
		return out, err
	}
	return out, nil
}

// renderPreview saves axial preview slices colored per terminology entry.
func (p *Pipeline) renderPreview(labels *models.LabelVolume, task *tasks.Task, dir string) error {
	renderer := preview.NewRenderer(labels, func(label int32) models.Color {
		return p.terms.Color(task.ClassMap[int(label)], int(label))
	})
	if err := renderer.SaveSliceSequence("z", dir); err != nil {
		return fmt.Errorf("failed to render preview slices: %w", err)
	}
	return nil
}
