package model

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/logger"
)

// DracoExtension is the glTF extension name for Draco-compressed primitives.
const DracoExtension = "KHR_draco_mesh_compression"

// DefaultDecoderBinary is the executable ExecDecoder looks for.
const DefaultDecoderBinary = "draco_decoder"

// ErrDecoderUnavailable is returned when a compressed primitive is met but no
// decoder could be resolved.
var ErrDecoderUnavailable = errors.New("compressed geometry decoder unavailable")

// Geometry is a decoded primitive.
type Geometry struct {
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	Indices   []uint32
}

// GeometryDecoder decodes a compressed primitive payload.
type GeometryDecoder interface {
	DecodeGeometry(ctx context.Context, data []byte) (*Geometry, error)
}

// DecoderProvider resolves the geometry decoder. Loaders call it before
// parsing any model so compressed primitives can be decoded.
type DecoderProvider interface {
	GeometryDecoder(ctx context.Context) (GeometryDecoder, error)
}

// ExecDecoder decodes Draco payloads by running the draco_decoder tool, which
// converts a .drc file to OBJ.
type ExecDecoder struct {
	path string
	log  *zap.Logger

	once     sync.Once
	resolved string
	mu       sync.Mutex
	workDir  string
	disposed bool
}

// NewExecDecoder creates a decoder. path may name the binary, a directory
// holding it, or be empty to search $PATH.
func NewExecDecoder(path string, log *zap.Logger) *ExecDecoder {
	return &ExecDecoder{path: path, log: logger.OrNop(log)}
}

// GeometryDecoder resolves the binary once. A missing binary is not an error
// here: models without compressed primitives still load, and compressed ones
// fail with ErrDecoderUnavailable.
func (d *ExecDecoder) GeometryDecoder(context.Context) (GeometryDecoder, error) {
	d.once.Do(func() {
		d.resolved = d.lookup()
		if d.resolved == "" {
			d.log.Warn("draco decoder not found, compressed models will fail",
				zap.String("path", d.path))
			return
		}
		d.log.Debug("draco decoder resolved", zap.String("binary", d.resolved))
	})
	return d, nil
}

func (d *ExecDecoder) lookup() string {
	candidates := []string{DefaultDecoderBinary}
	if d.path != "" {
		if info, err := os.Stat(d.path); err == nil && info.IsDir() {
			candidates = []string{filepath.Join(d.path, DefaultDecoderBinary)}
		} else {
			candidates = []string{d.path}
		}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p
		}
	}
	return ""
}

// DecodeGeometry writes data to a scratch file, runs the decoder and parses
// its OBJ output.
func (d *ExecDecoder) DecodeGeometry(ctx context.Context, data []byte) (*Geometry, error) {
	if d.resolved == "" {
		return nil, ErrDecoderUnavailable
	}
	dir, err := d.scratch()
	if err != nil {
		return nil, err
	}

	in, err := os.CreateTemp(dir, "*.drc")
	if err != nil {
		return nil, fmt.Errorf("draco input: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(data); err != nil {
		in.Close()
		return nil, fmt.Errorf("draco input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("draco input: %w", err)
	}

	out := strings.TrimSuffix(in.Name(), ".drc") + ".obj"
	defer os.Remove(out)

	cmd := exec.CommandContext(ctx, d.resolved, "-i", in.Name(), "-o", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("draco decoder: %w: %s", err, bytes.TrimSpace(output))
	}

	obj, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("draco output: %w", err)
	}
	return ParseOBJ(obj)
}

func (d *ExecDecoder) scratch() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return "", fmt.Errorf("draco decoder disposed")
	}
	if d.workDir == "" {
		dir, err := os.MkdirTemp("", "roomview-draco-")
		if err != nil {
			return "", fmt.Errorf("draco scratch dir: %w", err)
		}
		d.workDir = dir
	}
	return d.workDir, nil
}

// Dispose removes the scratch directory.
func (d *ExecDecoder) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.disposed = true
	if d.workDir != "" {
		if err := os.RemoveAll(d.workDir); err != nil {
			d.log.Warn("removing draco scratch dir", zap.Error(err))
		}
		d.workDir = ""
	}
}

// ParseOBJ reads the v/vt/vn/f subset of Wavefront OBJ written by the Draco
// tools. Faces are triangulated as fans; each distinct v/vt/vn triple becomes
// one vertex.
func ParseOBJ(data []byte) (*Geometry, error) {
	var positions, normals [][3]float32
	var texcoords [][2]float32
	geo := &Geometry{}
	seen := make(map[[3]int]uint32)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v", "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			if fields[0] == "v" {
				positions = append(positions, [3]float32{v[0], v[1], v[2]})
			} else {
				normals = append(normals, [3]float32{v[0], v[1], v[2]})
			}
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			texcoords = append(texcoords, [2]float32{v[0], v[1]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: face with %d vertices", line, len(fields)-1)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				key, err := parseFaceRef(ref, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				idx, ok := seen[key]
				if !ok {
					idx = uint32(len(geo.Positions))
					seen[key] = idx
					geo.Positions = append(geo.Positions, positions[key[0]])
					if key[1] >= 0 {
						geo.TexCoords = append(geo.TexCoords, texcoords[key[1]])
					}
					if key[2] >= 0 {
						geo.Normals = append(geo.Normals, normals[key[2]])
					}
				}
				corners = append(corners, idx)
			}
			for i := 1; i+1 < len(corners); i++ {
				geo.Indices = append(geo.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Attributes only count when every vertex has them.
	if len(geo.TexCoords) != len(geo.Positions) {
		geo.TexCoords = nil
	}
	if len(geo.Normals) != len(geo.Positions) {
		geo.Normals = nil
	}
	return geo, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceRef converts a 1-based (or negative relative) "v/vt/vn" reference
// to 0-based indices, -1 for absent parts.
func parseFaceRef(ref string, nv, nt, nn int) ([3]int, error) {
	key := [3]int{-1, -1, -1}
	counts := [3]int{nv, nt, nn}
	for i, part := range strings.SplitN(ref, "/", 3) {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return key, fmt.Errorf("face reference %q: %w", ref, err)
		}
		if n < 0 {
			n += counts[i]
		} else {
			n--
		}
		if n < 0 || n >= counts[i] {
			return key, fmt.Errorf("face reference %q out of range", ref)
		}
		key[i] = n
	}
	if key[0] < 0 {
		return key, fmt.Errorf("face reference %q has no position", ref)
	}
	return key, nil
}
