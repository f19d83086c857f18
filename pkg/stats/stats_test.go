package stats

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"segrunner/internal/models"
)

func TestCompute(t *testing.T) {
	labels := &models.LabelVolume{
		Width: 2, Height: 2, Depth: 2,
		Labels: []int32{1, 1, 2, 0, 1, 0, 0, 0},
	}
	labels.VoxelSize.X, labels.VoxelSize.Y, labels.VoxelSize.Z = 10, 10, 10

	source := &models.Volume{
		Width: 2, Height: 2, Depth: 2,
		Data: []float64{100, 200, 50, 0, 300, 0, 0, 0},
	}

	segs, err := Compute(source, labels, map[int]string{1: "organ", 2: "lesion", 3: "absent"})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if len(segs) != 2 {
		t.Fatalf("expected 2 segments (label 3 absent), got %d", len(segs))
	}

	organ := segs[0]
	if organ.Name != "organ" || organ.VoxelCount != 3 {
		t.Errorf("unexpected organ stats: %+v", organ)
	}
	// 3 voxels of 1000 mm^3 = 3 mL
	if math.Abs(organ.VolumeML-3.0) > 1e-9 {
		t.Errorf("organ volume = %f mL, want 3.0", organ.VolumeML)
	}
	if math.Abs(organ.IntensityMean-200) > 1e-9 {
		t.Errorf("organ mean intensity = %f, want 200", organ.IntensityMean)
	}
	if organ.IntensityMin != 100 || organ.IntensityMax != 300 {
		t.Errorf("organ intensity range = [%f, %f], want [100, 300]", organ.IntensityMin, organ.IntensityMax)
	}

	lesion := segs[1]
	if lesion.Name != "lesion" || lesion.VoxelCount != 1 {
		t.Errorf("unexpected lesion stats: %+v", lesion)
	}
}

func TestComputeWithoutSource(t *testing.T) {
	labels := &models.LabelVolume{
		Width: 2, Height: 1, Depth: 1,
		Labels: []int32{1, 1},
	}
	labels.VoxelSize.X, labels.VoxelSize.Y, labels.VoxelSize.Z = 1, 1, 1

	segs, err := Compute(nil, labels, map[int]string{1: "organ"})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(segs) != 1 || segs[0].IntensityMean != 0 {
		t.Errorf("expected intensity stats omitted without a source volume: %+v", segs)
	}
}

func TestComputeDimensionMismatch(t *testing.T) {
	labels := &models.LabelVolume{Width: 2, Height: 1, Depth: 1, Labels: []int32{1, 1}}
	source := &models.Volume{Width: 3, Height: 1, Depth: 1, Data: []float64{1, 2, 3}}
	if _, err := Compute(source, labels, map[int]string{1: "organ"}); err == nil {
		t.Error("expected an error for mismatched dimensions")
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")
	segs := []SegmentStats{{Name: "organ", Label: 1, VoxelCount: 10, VolumeML: 0.01}}

	if err := WriteReport(path, segs); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var decoded []SegmentStats
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "organ" {
		t.Errorf("unexpected report contents: %+v", decoded)
	}
}
