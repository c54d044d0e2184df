// Package compression stores sweep results compactly: gzip-wrapped
// MessagePack archives of the discovery log and trail, delta-encoded
// trajectories, and a protobuf wire form for zero events.
package compression

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"zetawatch/pkg/sweep"
)

// ArchiveVersion is written into every archive.
const ArchiveVersion = 1

// Archive is a snapshot of a sweep: where it stopped, what it found and the
// trail at that moment.
type Archive struct {
	Version   int               `msgpack:"v"`
	Created   time.Time         `msgpack:"created"`
	Step      float64           `msgpack:"step"`
	Parameter float64           `msgpack:"t"`
	Events    []sweep.ZeroEvent `msgpack:"events"`

	// TrailStart is the parameter of the oldest trail sample; the rest
	// follow at Step intervals unless a tick was skipped, so the
	// parameters are stored too.
	TrailStart  float64    `msgpack:"trailStart"`
	TrailParams []float64  `msgpack:"trailT"`
	TrailValues *Delta     `msgpack:"trailZ"`
	TrailScreen *Quantized `msgpack:"trailXY"`
}

// NewArchive builds an archive from the current log and trail.
func NewArchive(step, parameter float64, events []sweep.ZeroEvent, trail []sweep.Sample) (*Archive, error) {
	a := &Archive{
		Version:   ArchiveVersion,
		Created:   time.Now().UTC(),
		Step:      step,
		Parameter: parameter,
		Events:    events,
	}
	if len(trail) == 0 {
		return a, nil
	}

	values := make([]complex128, len(trail))
	screen := make([]sweep.Point, len(trail))
	a.TrailParams = make([]float64, len(trail))
	for i, s := range trail {
		values[i] = s.Value
		screen[i] = s.Screen
		a.TrailParams[i] = s.Parameter
	}
	a.TrailStart = trail[0].Parameter

	var err error
	if a.TrailValues, err = CompressWithDelta(values); err != nil {
		return nil, err
	}
	if a.TrailScreen, err = Quantize(screen); err != nil {
		return nil, err
	}
	return a, nil
}

// Trail rebuilds the archived trail samples. Magnitudes are recomputed
// from the decoded values.
func (a *Archive) Trail() ([]sweep.Sample, error) {
	values, err := a.TrailValues.Decompress()
	if err != nil {
		return nil, err
	}
	screen := a.TrailScreen.Decompress()
	if len(values) != len(a.TrailParams) || len(screen) != len(a.TrailParams) {
		return nil, fmt.Errorf("%w: trail has %d params, %d values, %d points",
			ErrCorrupt, len(a.TrailParams), len(values), len(screen))
	}
	out := make([]sweep.Sample, len(values))
	for i, z := range values {
		out[i] = sweep.Sample{
			Parameter: a.TrailParams[i],
			Value:     z,
			Magnitude: abs(z),
			Screen:    screen[i],
		}
	}
	return out, nil
}

// WriteArchive encodes a to w as gzip-compressed MessagePack.
func WriteArchive(w io.Writer, a *Archive) error {
	gzw := gzip.NewWriter(w)
	if err := msgpack.NewEncoder(gzw).Encode(a); err != nil {
		gzw.Close()
		return fmt.Errorf("compression: encode archive: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("compression: flush archive: %w", err)
	}
	return nil
}

// ReadArchive decodes an archive written by WriteArchive.
func ReadArchive(r io.Reader) (*Archive, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("compression: open archive: %w", err)
	}
	defer gzr.Close()

	var a Archive
	if err := msgpack.NewDecoder(bufio.NewReader(gzr)).Decode(&a); err != nil {
		return nil, fmt.Errorf("compression: decode archive: %w", err)
	}
	if a.Version != ArchiveVersion {
		return nil, fmt.Errorf("%w: archive version %d", ErrCorrupt, a.Version)
	}
	return &a, nil
}

// SaveArchive writes a to filename.
func SaveArchive(filename string, a *Archive) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("compression: %w", err)
	}
	if err := WriteArchive(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadArchive reads an archive from filename.
func LoadArchive(filename string) (*Archive, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("compression: %w", err)
	}
	defer f.Close()
	return ReadArchive(f)
}
