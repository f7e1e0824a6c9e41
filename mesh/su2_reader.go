package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// su2Types maps SU2 VTK element ids to the supported simplices.
var su2Types = map[int]ElementType{
	3:  Line,
	5:  Triangle,
	10: Tet,
}

// ReadSU2 reads an SU2 native format file holding 1D, 2D or 3D simplices.
func ReadSU2(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	m, err := ParseSU2(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

type su2Element struct {
	typ   ElementType
	nodes []int
}

func ParseSU2(r io.Reader) (*Mesh, error) {
	var (
		scanner  = bufio.NewScanner(r)
		ndime    int
		elements []su2Element
		vertices []r3.Vec
		tags     = make(map[int]string)
		lineNum  int
	)
	next := func() ([]string, error) {
		for scanner.Scan() {
			lineNum++
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "%") {
				continue
			}
			return strings.Fields(line), nil
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}
	header := func(line, key string) (int, error) {
		v := strings.TrimSpace(strings.TrimPrefix(line, key))
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("line %d: bad %s %q", lineNum, key, v)
		}
		return n, nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments
		if strings.HasPrefix(line, "%") || line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "NDIME="):
			var err error
			if ndime, err = header(line, "NDIME="); err != nil {
				return nil, err
			}
			if ndime < 1 || ndime > 3 {
				return nil, fmt.Errorf("line %d: unsupported NDIME=%d", lineNum, ndime)
			}

		case strings.HasPrefix(line, "NELEM="):
			nelem, err := header(line, "NELEM=")
			if err != nil {
				return nil, err
			}
			elements = make([]su2Element, 0, nelem)
			for i := 0; i < nelem; i++ {
				fields, err := next()
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				su2Type, err := strconv.Atoi(fields[0])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad element type %q", lineNum, fields[0])
				}
				etype, ok := su2Types[su2Type]
				if !ok {
					return nil, fmt.Errorf("line %d: unsupported SU2 element type %d", lineNum, su2Type)
				}
				if len(fields) < etype.NumNodes()+1 {
					return nil, fmt.Errorf("line %d: %s needs %d nodes", lineNum, etype, etype.NumNodes())
				}
				nodes := make([]int, etype.NumNodes())
				for j := range nodes {
					if nodes[j], err = strconv.Atoi(fields[1+j]); err != nil {
						return nil, fmt.Errorf("line %d: bad node id %q", lineNum, fields[1+j])
					}
				}
				elements = append(elements, su2Element{etype, nodes})
			}

		case strings.HasPrefix(line, "NPOIN="):
			if ndime == 0 {
				return nil, fmt.Errorf("line %d: NPOIN before NDIME", lineNum)
			}
			// NPOIN= n [n_domain]
			fields := strings.Fields(strings.TrimPrefix(line, "NPOIN="))
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: missing NPOIN value", lineNum)
			}
			npoin, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad NPOIN %q", lineNum, fields[0])
			}
			vertices = make([]r3.Vec, npoin)
			seen := make([]bool, npoin)
			for i := 0; i < npoin; i++ {
				fields, err := next()
				if err != nil {
					return nil, fmt.Errorf("point %d: %w", i, err)
				}
				if len(fields) < ndime {
					return nil, fmt.Errorf("line %d: point needs %d coordinates", lineNum, ndime)
				}
				var coords [3]float64
				for j := 0; j < ndime; j++ {
					if coords[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
						return nil, fmt.Errorf("line %d: bad coordinate %q", lineNum, fields[j])
					}
				}
				// Point ID is the optional last field
				ptID := i
				if len(fields) > ndime {
					last := fields[len(fields)-1]
					if ptID, err = strconv.Atoi(last); err != nil {
						return nil, fmt.Errorf("line %d: bad point id %q", lineNum, last)
					}
					if ptID < 0 || ptID >= npoin {
						return nil, fmt.Errorf("line %d: point id %d out of range [0,%d)", lineNum, ptID, npoin)
					}
				}
				if seen[ptID] {
					return nil, fmt.Errorf("line %d: duplicate point id %d", lineNum, ptID)
				}
				seen[ptID] = true
				vertices[ptID] = r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]}
			}

		case strings.HasPrefix(line, "NMARK="):
			nmark, err := header(line, "NMARK=")
			if err != nil {
				return nil, err
			}
			// Read boundary markers
			for i := 0; i < nmark; i++ {
				fields, err := next()
				if err != nil {
					return nil, fmt.Errorf("marker %d: %w", i, err)
				}
				tag := strings.TrimSpace(strings.TrimPrefix(strings.Join(fields, " "), "MARKER_TAG="))
				fields, err = next()
				if err != nil {
					return nil, fmt.Errorf("marker %s: %w", tag, err)
				}
				nMarkerElems, err := header(strings.Join(fields, ""), "MARKER_ELEMS=")
				if err != nil {
					return nil, err
				}
				tags[i] = tag
				for j := 0; j < nMarkerElems; j++ {
					if _, err := next(); err != nil {
						return nil, fmt.Errorf("marker %s: %w", tag, err)
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if ndime == 0 {
		return nil, fmt.Errorf("missing NDIME")
	}

	m := NewMesh(ndime, vertices)
	m.BoundaryTags = tags
	for i, e := range elements {
		if _, err := m.AddCell(e.typ, 0, e.nodes...); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return m, nil
}
