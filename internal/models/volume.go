package models

// Color is an RGB triplet with each channel in [0, 1].
type Color [3]float64

// Volume represents a scalar 3D image volume, such as a CT or MR scan.
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	// (x fastest, then y, then z).
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NumVoxels returns the total number of voxels in the volume.
func (v *Volume) NumVoxels() int {
	return v.Width * v.Height * v.Depth
}

// VoxelVolumeMM3 returns the physical volume of a single voxel in cubic mm.
func (v *Volume) VoxelVolumeMM3() float64 {
	return v.VoxelSize.X * v.VoxelSize.Y * v.VoxelSize.Z
}

// LabelVolume represents a 3D label map where each voxel carries an integer
// label identifying the structure it belongs to. Label 0 is background.
type LabelVolume struct {
	// Labels is the 3D label data as a 1D array in row-major order
	Labels []int32

	// Width, Height, Depth are the dimensions of the volume in voxels
	Width, Height, Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NumVoxels returns the total number of voxels in the label volume.
func (lv *LabelVolume) NumVoxels() int {
	return lv.Width * lv.Height * lv.Depth
}

// MaxLabel returns the largest label value present in the volume, or 0 if
// the volume contains only background.
func (lv *LabelVolume) MaxLabel() int32 {
	var max int32
	for _, l := range lv.Labels {
		if l > max {
			max = l
		}
	}
	return max
}

// CountLabel returns the number of voxels carrying the given label.
func (lv *LabelVolume) CountLabel(label int32) int {
	n := 0
	for _, l := range lv.Labels {
		if l == label {
			n++
		}
	}
	return n
}

// Segment represents one named anatomical region produced by a segmentation
// run, after import into a scene.
type Segment struct {
	// Name is the canonical structure name, e.g. "kidney_left".
	// Never empty for a successfully imported segment.
	Name string

	// Label is the integer label value identifying the segment in its
	// source label volume.
	Label int32

	// Color is the display color assigned to the segment.
	Color Color

	// Terminology is the serialized terminology tag attached to the
	// segment, or empty if the structure has no terminology entry.
	Terminology string

	// VoxelCount is the number of voxels the segment covers.
	VoxelCount int
}
