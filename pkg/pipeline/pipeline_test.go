package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"segrunner/internal/models"
	"segrunner/pkg/nifti"
	"segrunner/pkg/runner"
	"segrunner/pkg/scene"
	"segrunner/pkg/tasks"
	"segrunner/pkg/terminology"
)

// makeInput returns a small 2x2x2 input volume.
func makeInput() *models.Volume {
	v := &models.Volume{Width: 2, Height: 2, Depth: 2}
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1.5, 1.5, 3.0
	v.Data = []float64{10, 20, 30, 40, 50, 60, 70, 80}
	return v
}

// writeLabelFixture writes a 2x2x2 label volume for the fake tool to copy
// into place.
func writeLabelFixture(t *testing.T, path string, labels []int32) {
	t.Helper()
	lv := &models.LabelVolume{Width: 2, Height: 2, Depth: 2, Labels: labels}
	lv.VoxelSize.X, lv.VoxelSize.Y, lv.VoxelSize.Z = 1.5, 1.5, 3.0
	if err := nifti.WriteLabelVolume(path, lv); err != nil {
		t.Fatalf("Failed to write label fixture: %v", err)
	}
}

// writeFakeTool installs an executable shell script standing in for the
// external segmentation tool.
func writeFakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-segmentator")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake tool: %v", err)
	}
	return path
}

// multiLabelTool returns a fake tool that records its invocation and copies
// the fixture to the path given via -o.
func multiLabelTool(t *testing.T, fixture, invocationLog string) string {
	return writeFakeTool(t, fmt.Sprintf(`#!/bin/sh
echo "$@" >> %s
echo "fake tool running"
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
cp %s "$out"
echo "fake tool finished"
`, invocationLog, fixture))
}

func newTestPipeline(t *testing.T) (*Pipeline, *scene.MemorySink, *[]string) {
	t.Helper()
	terms, err := terminology.Load()
	if err != nil {
		t.Fatalf("Failed to load terminology: %v", err)
	}
	sink := scene.NewMemorySink()
	var lines []string
	p := New(tasks.Default(), terms, sink, func(line string) { lines = append(lines, line) })
	return p, sink, &lines
}

func readInvocations(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read invocation log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestRunMultiLabel(t *testing.T) {
	fixtures := t.TempDir()
	fixture := filepath.Join(fixtures, "ml.nii")
	writeLabelFixture(t, fixture, []int32{1, 1, 2, 2, 3, 3, 0, 0})
	invocationLog := filepath.Join(fixtures, "invocations.log")

	p, sink, logLines := newTestPipeline(t)
	cfg := RunConfig{
		Executable:        multiLabelTool(t, fixture, invocationLog),
		ClearOutputFolder: true,
	}

	result, err := p.Run(context.Background(), makeInput(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if p.State() != StateDone {
		t.Errorf("pipeline state = %s, want done", p.State())
	}

	res := sink.Result(result.Handle)
	names := segmentNames(res)
	want := []string{"spleen", "kidney_right", "kidney_left"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("segment names mismatch (-want +got):\n%s", diff)
	}

	// One invocation only: the baseline task has no pre-pass.
	invocations := readInvocations(t, invocationLog)
	if len(invocations) != 1 {
		t.Fatalf("expected 1 tool invocation, got %d: %q", len(invocations), invocations)
	}
	if !strings.Contains(invocations[0], "--ml") {
		t.Errorf("expected --ml in invocation: %s", invocations[0])
	}

	// Subprocess output was streamed to the log sink.
	joined := strings.Join(*logLines, "\n")
	if !strings.Contains(joined, "fake tool running") {
		t.Errorf("subprocess output missing from log sink: %q", joined)
	}

	if result.TempDir != "" {
		t.Errorf("temporary directory should have been cleared, got %s", result.TempDir)
	}
}

// Running identical options against a deterministic tool twice produces two
// identically named and tagged segment sets.
func TestRunIdempotent(t *testing.T) {
	fixtures := t.TempDir()
	fixture := filepath.Join(fixtures, "ml.nii")
	writeLabelFixture(t, fixture, []int32{1, 1, 2, 2, 3, 3, 0, 0})

	p, sink, _ := newTestPipeline(t)
	cfg := RunConfig{
		Executable:        multiLabelTool(t, fixture, filepath.Join(fixtures, "inv.log")),
		ClearOutputFolder: true,
	}

	first, err := p.Run(context.Background(), makeInput(), cfg)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := p.Run(context.Background(), makeInput(), cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	a := sink.Result(first.Handle)
	b := sink.Result(second.Handle)
	if diff := cmp.Diff(a.Segments, b.Segments); diff != "" {
		t.Errorf("segment sets differ across identical runs:\n%s", diff)
	}
}

// A task with RequiresPreSegmentation issues exactly one forced-fast
// preparatory invocation before the main one, even when the caller did not
// ask for fast mode.
func TestRunPreSegmentationPass(t *testing.T) {
	fixtures := t.TempDir()
	fixture := filepath.Join(fixtures, "mask.nii.gz")
	writeLabelFixture(t, fixture, []int32{1, 1, 1, 0, 0, 0, 0, 0})
	invocationLog := filepath.Join(fixtures, "invocations.log")

	tool := writeFakeTool(t, fmt.Sprintf(`#!/bin/sh
echo "$@" >> %s
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
mkdir -p "$out"
case "$*" in
  *"--task lung_vessels"*) cp %s "$out/lung_vessels.nii.gz";;
esac
`, invocationLog, fixture))

	p, sink, logLines := newTestPipeline(t)
	cfg := RunConfig{
		Executable:        tool,
		Task:              "lung_vessels",
		Fast:              false,
		ClearOutputFolder: true,
	}

	result, err := p.Run(context.Background(), makeInput(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	invocations := readInvocations(t, invocationLog)
	if len(invocations) != 2 {
		t.Fatalf("expected 2 tool invocations, got %d: %q", len(invocations), invocations)
	}
	if !strings.Contains(invocations[0], "--task total") || !strings.Contains(invocations[0], "--fast") {
		t.Errorf("preparatory invocation must be a forced-fast baseline run: %s", invocations[0])
	}
	if !strings.Contains(invocations[1], "--task lung_vessels") {
		t.Errorf("main invocation missing the task: %s", invocations[1])
	}
	if strings.Contains(invocations[1], "--fast") {
		t.Errorf("main invocation must not inherit forced fast mode: %s", invocations[1])
	}

	// Only lung_vessels was produced; the other structure is skipped.
	res := sink.Result(result.Handle)
	if diff := cmp.Diff([]string{"lung_vessels"}, segmentNames(res)); diff != "" {
		t.Fatalf("segment names mismatch (-want +got):\n%s", diff)
	}
	joined := strings.Join(*logLines, "\n")
	if !strings.Contains(joined, "lung_trachea_bronchia") {
		t.Errorf("expected a log line about the missing structure, got %q", joined)
	}
}

// A failing subprocess surfaces its exit code and imports nothing.
func TestRunSubprocessFailure(t *testing.T) {
	tool := writeFakeTool(t, "#!/bin/sh\necho went wrong\nexit 137\n")

	p, sink, _ := newTestPipeline(t)
	cfg := RunConfig{Executable: tool}

	_, err := p.Run(context.Background(), makeInput(), cfg)
	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 137 {
		t.Errorf("expected exit code 137, got %d", exitErr.Code)
	}
	if p.State() != StateError {
		t.Errorf("pipeline state = %s, want error", p.State())
	}
	if n := len(sink.Results()); n != 0 {
		t.Errorf("no partial segments may be imported on failure, got %d results", n)
	}
}

func TestRunInvalidLicenseDetection(t *testing.T) {
	tool := writeFakeTool(t, "#!/bin/sh\necho 'ERROR: Invalid license number'\nexit 1\n")

	p, _, _ := newTestPipeline(t)
	_, err := p.Run(context.Background(), makeInput(), RunConfig{Executable: tool})
	if !errors.Is(err, ErrInvalidLicense) {
		t.Fatalf("expected ErrInvalidLicense, got %v", err)
	}
}

func TestRunMissingExecutable(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	_, err := p.Run(context.Background(), makeInput(), RunConfig{Executable: "definitely-not-installed-tool"})
	if !errors.Is(err, runner.ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
	if p.State() != StateError {
		t.Errorf("pipeline state = %s, want error", p.State())
	}
}

func TestRunInvalidInput(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	if _, err := p.Run(context.Background(), nil, RunConfig{Executable: "sh"}); err == nil {
		t.Fatal("expected an error for a nil input volume")
	}
}

// A license-requiring task fails before any subprocess is spawned when no
// license is configured.
func TestRunLicenseRequired(t *testing.T) {
	invocationLog := filepath.Join(t.TempDir(), "invocations.log")
	tool := writeFakeTool(t, fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %s\n", invocationLog))

	p, _, _ := newTestPipeline(t)
	cfg := RunConfig{Executable: tool, Task: "heartchambers_highres"}

	_, err := p.Run(context.Background(), makeInput(), cfg)
	if err == nil || !strings.Contains(err.Error(), "license") {
		t.Fatalf("expected a license error, got %v", err)
	}
	if _, statErr := os.Stat(invocationLog); !os.IsNotExist(statErr) {
		t.Error("the tool must not be invoked for an unlicensed task")
	}
}

func TestRunStatisticsAndPreview(t *testing.T) {
	fixtures := t.TempDir()
	fixture := filepath.Join(fixtures, "ml.nii")
	writeLabelFixture(t, fixture, []int32{1, 1, 2, 2, 3, 3, 0, 0})

	statsPath := filepath.Join(fixtures, "statistics.json")
	previewDir := filepath.Join(fixtures, "preview")

	p, _, _ := newTestPipeline(t)
	cfg := RunConfig{
		Executable:        multiLabelTool(t, fixture, filepath.Join(fixtures, "inv.log")),
		ClearOutputFolder: true,
		Statistics:        true,
		StatisticsPath:    statsPath,
		PreviewDir:        previewDir,
	}

	result, err := p.Run(context.Background(), makeInput(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Stats) != 3 {
		t.Errorf("expected statistics for 3 segments, got %d", len(result.Stats))
	}
	if _, err := os.Stat(statsPath); err != nil {
		t.Errorf("statistics report missing: %v", err)
	}
	entries, err := os.ReadDir(previewDir)
	if err != nil || len(entries) == 0 {
		t.Errorf("preview slices missing (err=%v, %d entries)", err, len(entries))
	}
}

// Sequence mode repeats the full cycle once per frame, each iteration
// independent.
func TestRunSequence(t *testing.T) {
	fixtures := t.TempDir()
	fixture := filepath.Join(fixtures, "ml.nii")
	writeLabelFixture(t, fixture, []int32{1, 1, 2, 2, 3, 3, 0, 0})

	p, sink, _ := newTestPipeline(t)
	cfg := RunConfig{
		Executable:        multiLabelTool(t, fixture, filepath.Join(fixtures, "inv.log")),
		ClearOutputFolder: true,
	}

	frames := []*models.Volume{makeInput(), makeInput()}
	results, err := p.RunSequence(context.Background(), frames, cfg)
	if err != nil {
		t.Fatalf("RunSequence failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := sink.Result(results[0].Handle)
	second := sink.Result(results[1].Handle)
	if first.Name != "total frame 1" || second.Name != "total frame 2" {
		t.Errorf("unexpected result names: %q, %q", first.Name, second.Name)
	}
	if diff := cmp.Diff(segmentNames(first), segmentNames(second)); diff != "" {
		t.Errorf("frames should segment identically:\n%s", diff)
	}
}

func segmentNames(res *scene.Result) []string {
	names := make([]string, 0, len(res.Segments))
	for _, s := range res.Segments {
		names = append(names, s.Name)
	}
	return names
}
