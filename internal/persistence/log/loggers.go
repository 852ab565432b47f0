package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"chunkfinder.ai/internal/finder/scan"
)

// HourlyJSONL appends JSON lines to zstd files cut per UTC hour:
// <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type HourlyJSONL struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	seg *segment
}

func NewHourlyJSONL(dir, prefix string) *HourlyJSONL {
	return &HourlyJSONL{dir: dir, prefix: prefix, now: time.Now}
}

// Write appends v as one line. Lines are flushed through the encoder per call.
func (h *HourlyJSONL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("trace %s: %w", h.prefix, err)
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	hour := h.now().UTC().Format(hourLayout)
	if h.seg == nil || h.seg.hour != hour {
		if err := h.cutLocked(); err != nil {
			return err
		}
		seg, err := openSegment(filepath.Join(h.dir, h.prefix+"-"+hour+".jsonl.zst"), hour)
		if err != nil {
			return err
		}
		h.seg = seg
	}
	return h.seg.append(line)
}

// Close finishes the open hour. A later Write reopens it in append mode.
func (h *HourlyJSONL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cutLocked()
}

func (h *HourlyJSONL) cutLocked() error {
	if h.seg == nil {
		return nil
	}
	err := h.seg.close()
	h.seg = nil
	return err
}

const hourLayout = "2006-01-02-15"

// segment is one hour's file. Each open adds a new zstd frame to the file.
type segment struct {
	hour string
	f    *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return &segment{hour: hour, f: f, zw: zw, buf: bufio.NewWriterSize(zw, 32<<10)}, nil
}

func (s *segment) append(line []byte) error {
	if _, err := s.buf.Write(line); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *segment) close() error {
	return errors.Join(s.buf.Flush(), s.zw.Close(), s.f.Close())
}

// ScanEntry is one line of the scan trace.
type ScanEntry struct {
	Tick            uint64 `json:"tick"`
	Generation      uint64 `json:"generation"`
	Skipped         bool   `json:"skipped,omitempty"`
	Center          [2]int `json:"center"`
	Radius          int    `json:"radius"`
	Band            [2]int `json:"band"`
	ColumnsVisited  int    `json:"columns_visited"`
	ColumnsUnloaded int    `json:"columns_unloaded"`
	VoxelsExamined  int    `json:"voxels_examined"`
	Matches         int    `json:"matches"`
	DurationUS      int64  `json:"duration_us"`
}

func EntryFromStats(tick uint64, st scan.Stats) ScanEntry {
	return ScanEntry{
		Tick:            tick,
		Generation:      st.Generation,
		Skipped:         st.Skipped,
		Center:          [2]int{st.Center.CX, st.Center.CZ},
		Radius:          st.Radius,
		Band:            [2]int{st.Band.MinY, st.Band.MaxY},
		ColumnsVisited:  st.ColumnsVisited,
		ColumnsUnloaded: st.ColumnsUnloaded,
		VoxelsExamined:  st.VoxelsExamined,
		Matches:         st.Matches,
		DurationUS:      st.Duration.Microseconds(),
	}
}

// ScanLogger writes one JSONL entry per scan pass (compressed).
type ScanLogger struct{ w *HourlyJSONL }

func NewScanLogger(dataDir string) *ScanLogger {
	return &ScanLogger{w: NewHourlyJSONL(filepath.Join(dataDir, "scans"), "scans")}
}

func (l *ScanLogger) WriteScan(v ScanEntry) error { return l.w.Write(v) }
func (l *ScanLogger) Close() error                { return l.w.Close() }
