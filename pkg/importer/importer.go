// Package importer turns the external tool's output files into named,
// terminology-tagged, colored segments delivered to a scene sink.
//
// Two mutually exclusive strategies exist, selected by whether the run used
// multi-label output: a single volume holding every structure as an integer
// label, or one binary label file per structure.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"segrunner/pkg/runner"
	"segrunner/pkg/scene"
	"segrunner/pkg/tasks"
	"segrunner/pkg/terminology"
)

// Importer imports segmentation results into a scene sink.
type Importer struct {
	// UseStandardNames names segments after their standard terminology
	// meaning (e.g. "Kidney") instead of the tool's canonical structure
	// name (e.g. "kidney_right"). Structures without a terminology entry
	// keep their canonical name either way.
	UseStandardNames bool

	sink  scene.Sink
	terms *terminology.Table
	log   runner.LogFunc
}

// New creates an importer delivering to the given sink. A nil log discards
// progress messages.
func New(sink scene.Sink, terms *terminology.Table, log runner.LogFunc) *Importer {
	if log == nil {
		log = runner.Discard
	}
	return &Importer{sink: sink, terms: terms, log: log}
}

// ImportMultiLabel imports a single multi-label volume. Every label in the
// task's class map is attempted; labels that marked no voxels are inert.
// A missing output file is fatal in this mode: the one file must exist.
func (im *Importer) ImportMultiLabel(resultName, path string, task *tasks.Task) (scene.Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("multi-label output file missing: %w", err)
	}

	h, err := im.sink.CreateSegmentationResult(resultName)
	if err != nil {
		return "", fmt.Errorf("failed to create segmentation result: %w", err)
	}

	labelMap := make(map[int]string, len(task.ClassMap))
	for label, structure := range task.ClassMap {
		labelMap[label] = im.segmentName(structure)
	}

	im.log(fmt.Sprintf("Importing multi-label segmentation from %s", filepath.Base(path)))
	if err := im.sink.ImportLabeledVolume(h, path, labelMap); err != nil {
		return "", fmt.Errorf("failed to import %s: %w", path, err)
	}

	labels := make([]int, 0, len(task.ClassMap))
	for l := range task.ClassMap {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	for _, label := range labels {
		if err := im.tag(h, task.ClassMap[label], label); err != nil {
			return "", err
		}
	}
	return h, nil
}

// ImportPerStructure imports one binary label file per requested structure
// from dir. Structures whose file is missing are skipped with a log line;
// some specialized tasks only produce a subset of their nominal structures
// for a given input.
func (im *Importer) ImportPerStructure(resultName, dir string, structures []string) (scene.Handle, error) {
	h, err := im.sink.CreateSegmentationResult(resultName)
	if err != nil {
		return "", fmt.Errorf("failed to create segmentation result: %w", err)
	}

	for i, name := range structures {
		path := filepath.Join(dir, name+".nii.gz")
		if _, err := os.Stat(path); err != nil {
			im.log(fmt.Sprintf("Structure %s was not produced, skipping", name))
			continue
		}
		im.log(fmt.Sprintf("Importing %s", name))
		if err := im.sink.ImportLabeledVolume(h, path, map[int]string{1: im.segmentName(name)}); err != nil {
			return "", fmt.Errorf("failed to import %s: %w", path, err)
		}
		if err := im.tag(h, name, i+1); err != nil {
			return "", err
		}
	}
	return h, nil
}

// segmentName returns the display name for a canonical structure name.
// The name of an imported segment is never empty.
func (im *Importer) segmentName(structure string) string {
	if im.UseStandardNames {
		if entry, ok := im.terms.Lookup(structure); ok && entry.Type.Meaning != "" {
			return entry.Type.Meaning
		}
	}
	return structure
}

// tag attaches terminology and color to one segment. A structure absent
// from the terminology table keeps a generated fallback color and no tag;
// that never aborts the import.
func (im *Importer) tag(h scene.Handle, structure string, label int) error {
	tag := ""
	if entry, ok := im.terms.Lookup(structure); ok {
		tag = entry.TagString()
	}
	color := im.terms.Color(structure, label)
	if err := im.sink.TagSegment(h, im.segmentName(structure), tag, color); err != nil {
		return fmt.Errorf("failed to tag segment %s: %w", structure, err)
	}
	return nil
}
