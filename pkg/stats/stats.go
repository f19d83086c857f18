// Package stats computes per-segment statistics from a source volume and
// the label map produced by a segmentation run.
package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"segrunner/internal/models"
)

// SegmentStats holds the statistics of one segment.
type SegmentStats struct {
	// Name is the canonical structure name.
	Name string `json:"name"`

	// Label is the segment's label value in the source label map.
	Label int `json:"label"`

	// VoxelCount is the number of voxels carrying the label.
	VoxelCount int `json:"voxel_count"`

	// VolumeML is the physical volume in milliliters.
	VolumeML float64 `json:"volume_ml"`

	// IntensityMin, IntensityMax and IntensityMean describe the source
	// volume's intensities under the segment mask. Zero when no source
	// volume was supplied.
	IntensityMin  float64 `json:"intensity_min"`
	IntensityMax  float64 `json:"intensity_max"`
	IntensityMean float64 `json:"intensity_mean"`
}

// Compute derives statistics for every label in classMap that marks at
// least one voxel. source may be nil, in which case intensity statistics
// are omitted; when present its dimensions must match the label map.
func Compute(source *models.Volume, labels *models.LabelVolume, classMap map[int]string) ([]SegmentStats, error) {
	if source != nil && source.NumVoxels() != labels.NumVoxels() {
		return nil, fmt.Errorf("source volume (%d voxels) does not match label map (%d voxels)",
			source.NumVoxels(), labels.NumVoxels())
	}

	voxelML := labels.VoxelSize.X * labels.VoxelSize.Y * labels.VoxelSize.Z / 1000.0

	order := make([]int, 0, len(classMap))
	for l := range classMap {
		order = append(order, l)
	}
	sort.Ints(order)

	var out []SegmentStats
	for _, label := range order {
		var masked []float64
		count := 0
		for i, l := range labels.Labels {
			if int(l) != label {
				continue
			}
			count++
			if source != nil {
				masked = append(masked, source.Data[i])
			}
		}
		if count == 0 {
			continue
		}

		s := SegmentStats{
			Name:       classMap[label],
			Label:      label,
			VoxelCount: count,
			VolumeML:   float64(count) * voxelML,
		}
		if len(masked) > 0 {
			s.IntensityMean = stat.Mean(masked, nil)
			s.IntensityMin = math.Inf(1)
			s.IntensityMax = math.Inf(-1)
			for _, v := range masked {
				s.IntensityMin = math.Min(s.IntensityMin, v)
				s.IntensityMax = math.Max(s.IntensityMax, v)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteReport writes the statistics as an indented JSON report.
func WriteReport(path string, segments []SegmentStats) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write statistics report: %w", err)
	}
	return nil
}
