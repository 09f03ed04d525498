package decoder

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/pointindex/schema"
)

// pcdDataType is the PCD DATA field value, mirroring pointcloud.PCDType.
type pcdDataType int

const (
	pcdAscii pcdDataType = iota
	pcdBinary
	pcdCompressed
)

// pcdHeaderFields is the fixed order of PCD header lines, grounded on
// pointcloud.PCD_HEADER_FIELDS.
var pcdHeaderFields = []string{
	"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA",
}

type pcdHeader struct {
	fieldNames []string
	sizes      []uint64
	points     uint64
	data       pcdDataType
}

// PCD is a streaming reader for the PCD point cloud format, restructured
// from pointcloud.ReadPCD's "parse whole file into a PointCloud" shape
// into the prepare/execute/read-callback protocol Decoder requires. Only
// the X/Y/Z leading fields are consumed; any trailing fields (color,
// intensity) are read past but not retained, since this engine's schema
// is caller-defined.
type PCD struct {
	r      io.Reader
	schema *schema.Schema

	readCb    ReadCallback
	reproject Reprojector
	srs       string

	xOff, yOff int
}

// NewPCD returns a PCD decoder reading from r.
func NewPCD(r io.Reader) *PCD {
	return &PCD{r: r}
}

func (p *PCD) Prepare(s *schema.Schema) error {
	xDim, ok := s.FindDim("X")
	if !ok {
		return errors.New("decoder: schema has no X dimension")
	}
	yDim, ok := s.FindDim("Y")
	if !ok {
		return errors.New("decoder: schema has no Y dimension")
	}
	p.schema = s
	p.xOff = int(xDim.Offset)
	p.yOff = int(yDim.Offset)
	return nil
}

func (p *PCD) SetReadCb(cb ReadCallback)             { p.readCb = cb }
func (p *PCD) SetSpatialReference(srs string)        { p.srs = srs }
func (p *PCD) SetReprojection(fn Reprojector)        { p.reproject = fn }
func (p *PCD) FindDim(name string) (schema.DimInfo, bool) { return p.schema.FindDim(name) }

func (p *PCD) Execute() error {
	in := bufio.NewReader(p.r)
	header, err := parsePCDHeader(in)
	if err != nil {
		return errors.Wrap(err, "decoder: parse pcd header")
	}

	switch header.data {
	case pcdAscii:
		return p.executeAscii(in, header)
	case pcdBinary:
		return p.executeBinary(in, header)
	default:
		return errors.New("decoder: compressed pcd not supported")
	}
}

func parsePCDHeader(in *bufio.Reader) (pcdHeader, error) {
	var header pcdHeader
	lineCount := 0
	for lineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return header, errors.Wrapf(err, "read header line %d", lineCount)
		}
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name := pcdHeaderFields[lineCount]
		fields := strings.Fields(line)
		if len(fields) < 1 {
			return header, errors.Errorf("empty %s line", name)
		}
		value := strings.Join(fields[1:], " ")

		switch name {
		case "FIELDS":
			header.fieldNames = fields[1:]
		case "SIZE":
			header.sizes = make([]uint64, len(fields)-1)
			for i, tok := range fields[1:] {
				n, err := strconv.ParseUint(tok, 10, 64)
				if err != nil {
					return header, errors.Wrap(err, "parse SIZE")
				}
				header.sizes[i] = n
			}
		case "POINTS":
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return header, errors.Wrap(err, "parse POINTS")
			}
			header.points = n
		case "DATA":
			switch strings.TrimSpace(value) {
			case "ascii":
				header.data = pcdAscii
			case "binary":
				header.data = pcdBinary
			default:
				header.data = pcdCompressed
			}
		}
		lineCount++
	}
	if len(header.fieldNames) < 2 {
		return header, errors.New("pcd header needs at least X and Y fields")
	}
	return header, nil
}

func (p *PCD) emit(x, y, z float64, id uint64) error {
	if p.reproject != nil {
		x, y, z = p.reproject(x, y, z)
	}
	_ = z

	data := make([]byte, p.schema.PointSize())
	binary.LittleEndian.PutUint64(data[p.xOff:], math.Float64bits(x))
	binary.LittleEndian.PutUint64(data[p.yOff:], math.Float64bits(y))

	return p.readCb(&View{X: x, Y: y, Z: z, Data: data}, id)
}

func (p *PCD) executeAscii(in *bufio.Reader, header pcdHeader) error {
	for i := uint64(0); i < header.points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return errors.Wrapf(err, "read point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			return errors.Errorf("point %d has too few fields", i)
		}
		x, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil {
			return errors.Wrapf(err, "point %d x", i)
		}
		y, err := strconv.ParseFloat(tokens[1], 64)
		if err != nil {
			return errors.Wrapf(err, "point %d y", i)
		}
		var z float64
		if len(tokens) > 2 {
			z, _ = strconv.ParseFloat(tokens[2], 64)
		}
		if err := p.emit(x, y, z, i); err != nil {
			return err
		}
	}
	return nil
}

func (p *PCD) executeBinary(in *bufio.Reader, header pcdHeader) error {
	for i := uint64(0); i < header.points; i++ {
		values := make([]float64, len(header.fieldNames))
		for j, size := range header.sizes {
			buf := make([]byte, size)
			if _, err := io.ReadFull(in, buf); err != nil {
				return errors.Wrapf(err, "point %d field %d", i, j)
			}
			if size == 4 {
				values[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
			} else {
				values[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
			}
		}
		var z float64
		if len(values) > 2 {
			z = values[2]
		}
		if err := p.emit(values[0], values[1], z, i); err != nil {
			return err
		}
	}
	return nil
}
