// Package scene abstracts the host application's scene graph behind a
// small sink interface. The orchestration pipeline depends only on this
// interface, never on concrete host types; an in-memory implementation is
// provided for standalone CLI use and for tests.
package scene

import (
	"fmt"
	"sort"
	"sync"

	"segrunner/internal/models"
	"segrunner/pkg/nifti"
)

// Handle identifies one segmentation result owned by the sink.
type Handle string

// Sink receives segmentation results produced by the import pipeline.
type Sink interface {
	// CreateSegmentationResult creates a new, empty segmentation result
	// with the given display name and returns its handle.
	CreateSegmentationResult(name string) (Handle, error)

	// ImportLabeledVolume reads the label volume at path and adds one
	// segment per label value present in both the volume and labelMap.
	// Labels in labelMap that mark no voxels are inert, not errors.
	ImportLabeledVolume(h Handle, path string, labelMap map[int]string) error

	// TagSegment attaches a terminology tag and display color to the
	// named segment. Tagging a segment that was not imported (its label
	// marked no voxels) is a no-op.
	TagSegment(h Handle, segmentName, tag string, color models.Color) error
}

// MemorySink is a Sink that keeps imported segments in memory.
type MemorySink struct {
	mu      sync.Mutex
	results map[Handle]*Result
	next    int
}

// Result is one segmentation result held by a MemorySink.
type Result struct {
	// Name is the display name the result was created with.
	Name string

	// Segments are the imported segments in import order.
	Segments []models.Segment
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{results: make(map[Handle]*Result)}
}

// CreateSegmentationResult creates a new empty result.
func (s *MemorySink) CreateSegmentationResult(name string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := Handle(fmt.Sprintf("result-%d", s.next))
	s.results[h] = &Result{Name: name}
	return h, nil
}

// ImportLabeledVolume reads the label volume at path and appends one
// segment per label present in labelMap that marks at least one voxel.
// Labels are imported in ascending order so repeated runs produce
// identically ordered segment lists.
func (s *MemorySink) ImportLabeledVolume(h Handle, path string, labelMap map[int]string) error {
	res, err := s.result(h)
	if err != nil {
		return err
	}

	lv, err := nifti.ReadLabelVolume(path)
	if err != nil {
		return err
	}

	labels := make([]int, 0, len(labelMap))
	for l := range labelMap {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, label := range labels {
		name := labelMap[label]
		if name == "" {
			return fmt.Errorf("label %d has an empty segment name", label)
		}
		count := lv.CountLabel(int32(label))
		if count == 0 {
			continue
		}
		res.Segments = append(res.Segments, models.Segment{
			Name:       name,
			Label:      int32(label),
			VoxelCount: count,
		})
	}
	return nil
}

// TagSegment sets the terminology tag and color of the named segment.
func (s *MemorySink) TagSegment(h Handle, segmentName, tag string, color models.Color) error {
	res, err := s.result(h)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range res.Segments {
		if res.Segments[i].Name == segmentName {
			res.Segments[i].Terminology = tag
			res.Segments[i].Color = color
			return nil
		}
	}
	// The segment's label marked no voxels in this run; nothing to tag.
	return nil
}

// Results returns every result in creation order.
func (s *MemorySink) Results() []*Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Result, 0, len(s.results))
	for i := 1; i <= s.next; i++ {
		if res, ok := s.results[Handle(fmt.Sprintf("result-%d", i))]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for a handle, or nil if the handle is unknown.
func (s *MemorySink) Result(h Handle) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[h]
}

func (s *MemorySink) result(h Handle) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[h]
	if !ok {
		return nil, fmt.Errorf("unknown segmentation result handle %q", h)
	}
	return res, nil
}
