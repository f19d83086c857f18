package nifti

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"segrunner/internal/models"
)

func testVolume() *models.Volume {
	v := &models.Volume{
		Width:  4,
		Height: 3,
		Depth:  2,
	}
	v.VoxelSize.X = 1.5
	v.VoxelSize.Y = 1.5
	v.VoxelSize.Z = 3.0
	v.Data = make([]float64, v.NumVoxels())
	for i := range v.Data {
		v.Data[i] = float64(i) * 0.5
	}
	return v
}

func TestVolumeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.nii")
	src := testVolume()

	if err := WriteVolume(path, src); err != nil {
		t.Fatalf("WriteVolume failed: %v", err)
	}
	got, err := ReadVolume(path)
	if err != nil {
		t.Fatalf("ReadVolume failed: %v", err)
	}

	if got.Width != src.Width || got.Height != src.Height || got.Depth != src.Depth {
		t.Fatalf("dimensions mismatch: got %dx%dx%d, want %dx%dx%d",
			got.Width, got.Height, got.Depth, src.Width, src.Height, src.Depth)
	}
	if math.Abs(got.VoxelSize.Z-3.0) > 1e-6 {
		t.Errorf("voxel size Z = %f, want 3.0", got.VoxelSize.Z)
	}
	for i := range src.Data {
		if math.Abs(got.Data[i]-src.Data[i]) > 1e-5 {
			t.Fatalf("voxel %d = %f, want %f", i, got.Data[i], src.Data[i])
		}
	}
}

func TestLabelVolumeRoundTripGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.nii.gz")

	src := &models.LabelVolume{Width: 3, Height: 3, Depth: 3}
	src.VoxelSize.X, src.VoxelSize.Y, src.VoxelSize.Z = 1, 1, 1
	src.Labels = make([]int32, src.NumVoxels())
	for i := range src.Labels {
		src.Labels[i] = int32(i % 4)
	}

	if err := WriteLabelVolume(path, src); err != nil {
		t.Fatalf("WriteLabelVolume failed: %v", err)
	}
	got, err := ReadLabelVolume(path)
	if err != nil {
		t.Fatalf("ReadLabelVolume failed: %v", err)
	}

	if got.NumVoxels() != src.NumVoxels() {
		t.Fatalf("voxel count mismatch: got %d, want %d", got.NumVoxels(), src.NumVoxels())
	}
	for i := range src.Labels {
		if got.Labels[i] != src.Labels[i] {
			t.Fatalf("label %d = %d, want %d", i, got.Labels[i], src.Labels[i])
		}
	}
	if got.MaxLabel() != 3 {
		t.Errorf("max label = %d, want 3", got.MaxLabel())
	}
	if got.CountLabel(2) != src.CountLabel(2) {
		t.Errorf("CountLabel(2) changed across round trip")
	}
}

func TestReadRejectsNonNifti(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.nii")
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadVolume(path); err == nil {
		t.Error("expected an error for a non-NIfTI file")
	}
}
