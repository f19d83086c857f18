// Package nifti reads and writes single-volume NIfTI-1 files (.nii and
// .nii.gz). It covers only what the segmentation pipeline needs: reading
// label volumes and scalar volumes produced by the external tool, and
// writing the scalar input volume handed to it.
package nifti

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"segrunner/internal/models"
)

// NIfTI-1 datatype codes.
const (
	typeUint8   = 2
	typeInt16   = 4
	typeInt32   = 8
	typeFloat32 = 16
	typeUint16  = 512
)

// header is the 348-byte NIfTI-1 header. Field order and sizes must match
// the on-disk layout exactly; binary.Read/Write serialize it field by field
// with no padding.
type header struct {
	SizeofHdr                    int32
	DataTypeUnused               [10]byte
	DBName                       [18]byte
	Extents                      int32
	SessionError                 int16
	Regular                      byte
	DimInfo                      byte
	Dim                          [8]int16
	IntentP1, IntentP2, IntentP3 float32
	IntentCode                   int16
	Datatype                     int16
	Bitpix                       int16
	SliceStart                   int16
	Pixdim                       [8]float32
	VoxOffset                    float32
	SclSlope                     float32
	SclInter                     float32
	SliceEnd                     int16
	SliceCode                    byte
	XyztUnits                    byte
	CalMax                       float32
	CalMin                       float32
	SliceDuration                float32
	Toffset                      float32
	Glmax                        int32
	Glmin                        int32
	Descrip                      [80]byte
	AuxFile                      [24]byte
	QformCode                    int16
	SformCode                    int16
	QuaternB, QuaternC, QuaternD float32
	QoffsetX, QoffsetY, QoffsetZ float32
	SrowX                        [4]float32
	SrowY                        [4]float32
	SrowZ                        [4]float32
	IntentName                   [16]byte
	Magic                        [4]byte
}

const headerSize = 348

// openReader opens a NIfTI file, transparently unwrapping gzip compression
// detected from the magic bytes rather than the file extension.
func openReader(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to open gzip stream in %s: %w", path, err)
		}
		closer := func() error {
			gz.Close()
			return f.Close()
		}
		return gz, closer, nil
	}
	return br, f.Close, nil
}

// readHeader parses the header and detects the byte order from sizeof_hdr.
func readHeader(r io.Reader) (*header, binary.ByteOrder, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("failed to read NIfTI header: %w", err)
	}

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var h header
		if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
			return nil, nil, fmt.Errorf("failed to decode NIfTI header: %w", err)
		}
		if h.SizeofHdr == headerSize {
			return &h, order, nil
		}
	}
	return nil, nil, fmt.Errorf("not a NIfTI-1 file: bad sizeof_hdr")
}

// readRaw reads the header and the voxel data as float64 values, applying
// the header's scaling slope and intercept.
func readRaw(path string) (*header, []float64, error) {
	r, closer, err := openReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer closer()

	h, order, err := readHeader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.Dim[0] < 3 {
		return nil, nil, fmt.Errorf("%s: expected a 3D volume, got %d dimensions", path, h.Dim[0])
	}
	for d := int16(4); d <= h.Dim[0]; d++ {
		if h.Dim[d] > 1 {
			return nil, nil, fmt.Errorf("%s: volumes with dim[%d]=%d are not supported", path, d, h.Dim[d])
		}
	}

	// Skip any header extension up to the voxel data offset.
	offset := int64(h.VoxOffset)
	if offset < headerSize {
		offset = headerSize + 4
	}
	if _, err := io.CopyN(io.Discard, r, offset-headerSize); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to skip header extension: %w", path, err)
	}

	n := int(h.Dim[1]) * int(h.Dim[2]) * int(h.Dim[3])
	if n <= 0 {
		return nil, nil, fmt.Errorf("%s: invalid volume dimensions %dx%dx%d", path, h.Dim[1], h.Dim[2], h.Dim[3])
	}

	data := make([]float64, n)
	switch h.Datatype {
	case typeUint8:
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to read voxel data: %w", path, err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	case typeInt16:
		buf := make([]int16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to read voxel data: %w", path, err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	case typeUint16:
		buf := make([]uint16, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to read voxel data: %w", path, err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	case typeInt32:
		buf := make([]int32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to read voxel data: %w", path, err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	case typeFloat32:
		buf := make([]float32, n)
		if err := binary.Read(r, order, buf); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to read voxel data: %w", path, err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	default:
		return nil, nil, fmt.Errorf("%s: unsupported NIfTI datatype %d", path, h.Datatype)
	}

	// Apply intensity scaling when present.
	slope := float64(h.SclSlope)
	inter := float64(h.SclInter)
	if slope != 0 && !(slope == 1 && inter == 0) {
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	return h, data, nil
}

// ReadVolume reads a scalar volume.
func ReadVolume(path string) (*models.Volume, error) {
	h, data, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v := &models.Volume{
		Data:   data,
		Width:  int(h.Dim[1]),
		Height: int(h.Dim[2]),
		Depth:  int(h.Dim[3]),
	}
	v.VoxelSize.X = float64(h.Pixdim[1])
	v.VoxelSize.Y = float64(h.Pixdim[2])
	v.VoxelSize.Z = float64(h.Pixdim[3])
	return v, nil
}

// ReadLabelVolume reads a label map, rounding voxel values to the nearest
// integer label. Negative values are rejected: label maps are non-negative.
func ReadLabelVolume(path string) (*models.LabelVolume, error) {
	h, data, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	lv := &models.LabelVolume{
		Labels: make([]int32, len(data)),
		Width:  int(h.Dim[1]),
		Height: int(h.Dim[2]),
		Depth:  int(h.Dim[3]),
	}
	lv.VoxelSize.X = float64(h.Pixdim[1])
	lv.VoxelSize.Y = float64(h.Pixdim[2])
	lv.VoxelSize.Z = float64(h.Pixdim[3])
	for i, v := range data {
		l := int32(math.Round(v))
		if l < 0 {
			return nil, fmt.Errorf("%s: negative label value %d at voxel %d", path, l, i)
		}
		lv.Labels[i] = l
	}
	return lv, nil
}

// writeTo serializes a header and float32 voxel data.
func writeTo(w io.Writer, h *header, write func(io.Writer) error) error {
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("failed to write NIfTI header: %w", err)
	}
	// Four zero bytes: no header extension.
	if _, err := w.Write(make([]byte, 4)); err != nil {
		return fmt.Errorf("failed to write extension flag: %w", err)
	}
	return write(w)
}

func newHeader(width, height, depth int, vx, vy, vz float64, datatype, bitpix int16) *header {
	h := &header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Dim:       [8]int16{3, int16(width), int16(height), int16(depth), 1, 1, 1, 1},
		Datatype:  datatype,
		Bitpix:    bitpix,
		Pixdim:    [8]float32{1, float32(vx), float32(vy), float32(vz), 0, 0, 0, 0},
		VoxOffset: headerSize + 4,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	return h
}

// create opens the output file, wrapping it in gzip when the path ends in
// ".gz", and runs fn against the writer.
func create(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := fn(gz); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteVolume writes a scalar volume as float32 voxel data.
func WriteVolume(path string, v *models.Volume) error {
	if len(v.Data) != v.NumVoxels() {
		return fmt.Errorf("volume data length %d does not match dimensions %dx%dx%d",
			len(v.Data), v.Width, v.Height, v.Depth)
	}
	h := newHeader(v.Width, v.Height, v.Depth, v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z, typeFloat32, 32)
	return create(path, func(w io.Writer) error {
		return writeTo(w, h, func(w io.Writer) error {
			buf := make([]float32, len(v.Data))
			for i, val := range v.Data {
				buf[i] = float32(val)
			}
			if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
				return fmt.Errorf("failed to write voxel data: %w", err)
			}
			return nil
		})
	})
}

// WriteLabelVolume writes a label map as int16 voxel data.
func WriteLabelVolume(path string, lv *models.LabelVolume) error {
	if len(lv.Labels) != lv.NumVoxels() {
		return fmt.Errorf("label data length %d does not match dimensions %dx%dx%d",
			len(lv.Labels), lv.Width, lv.Height, lv.Depth)
	}
	h := newHeader(lv.Width, lv.Height, lv.Depth, lv.VoxelSize.X, lv.VoxelSize.Y, lv.VoxelSize.Z, typeInt16, 16)
	return create(path, func(w io.Writer) error {
		return writeTo(w, h, func(w io.Writer) error {
			buf := make([]int16, len(lv.Labels))
			for i, l := range lv.Labels {
				if l > math.MaxInt16 {
					return fmt.Errorf("label value %d exceeds int16 range", l)
				}
				buf[i] = int16(l)
			}
			if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
				return fmt.Errorf("failed to write voxel data: %w", err)
			}
			return nil
		})
	})
}
