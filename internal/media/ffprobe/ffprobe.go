package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"uxrmate/internal/services"
)

// DefaultBinary is used when no binary is configured.
const DefaultBinary = "ffprobe"

// Metadata is the subset of probe output asset registration needs.
type Metadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	VideoCodec      string
	SizeBytes       int64
}

// Resolution formats the frame size as WIDTHxHEIGHT, or "" when unknown.
func (m Metadata) Resolution() string {
	if m.Width <= 0 || m.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Runner executes binary with args and returns its combined output.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}

// Option customises a Prober.
type Option func(*Prober)

// WithRunner replaces process execution, typically in tests.
func WithRunner(run Runner) Option {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// Prober inspects video files.
type Prober struct {
	binary string
	run    Runner
}

// New returns a Prober for binary, falling back to DefaultBinary.
func New(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	p := &Prober{binary: binary, run: execRunner}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Binary returns the configured binary name.
func (p *Prober) Binary() string { return p.binary }

// Locate resolves the binary on PATH.
func (p *Prober) Locate() (string, error) {
	path, err := exec.LookPath(p.binary)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "ffprobe", "locate", fmt.Sprintf("binary %q not found", p.binary), err)
	}
	return path, nil
}

// Probe reads metadata for path. A file without a video stream is a
// validation error.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Metadata{}, services.Wrap(services.ErrValidation, "ffprobe", "probe", "empty path", nil)
	}
	output, err := p.run(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrExternalTool, "ffprobe", "probe", strings.TrimSpace(string(output)), err)
	}
	return parse(output)
}

type probeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

func parse(output []byte) (Metadata, error) {
	var raw probeOutput
	if err := json.Unmarshal(output, &raw); err != nil {
		return Metadata{}, services.Wrap(services.ErrExternalTool, "ffprobe", "parse", "decode output", err)
	}

	var meta Metadata
	var streamDuration float64
	found := false
	for _, s := range raw.Streams {
		if !strings.EqualFold(s.CodecType, "video") {
			continue
		}
		found = true
		meta.Width, meta.Height = s.Width, s.Height
		meta.VideoCodec = s.CodecName
		streamDuration = parseFloat(s.Duration)
		break
	}
	if !found {
		return Metadata{}, services.Wrap(services.ErrValidation, "ffprobe", "parse", "no video stream", nil)
	}

	// Some containers only report duration on the stream.
	meta.DurationSeconds = parseFloat(raw.Format.Duration)
	if meta.DurationSeconds <= 0 {
		meta.DurationSeconds = streamDuration
	}
	if size := parseFloat(raw.Format.Size); size > 0 {
		meta.SizeBytes = int64(size)
	}
	return meta, nil
}

// parseFloat returns 0 for empty, malformed, or non-finite values.
func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
		return 0
	}
	return parsed
}
