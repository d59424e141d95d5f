package lut

// Parsing for the Resolve / IRIDAS .cube text format.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load reads a .cube file, returning a *Cube3D or a *Cube1D.
func Load(filename string) (LUT, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r lut '%s': %w", filename, err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("lut '%s': %w", filename, err)
	}
	return l, nil
}

type cubeHeader struct {
	title  string
	size1D int
	size3D int
	domain Domain
}

// Parse reads .cube data. In a 3D table red varies fastest, so data
// line i holds the entry for r=i%N, g=(i/N)%N, b=i/(N*N).
func Parse(r io.Reader) (LUT, error) {
	h := cubeHeader{domain: DefaultDomain()}
	data := []float32{}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if isNumber(fields[0]) {
			vals, err := parseFloats(fields, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			data = append(data, vals...)
			continue
		}

		if len(data) > 0 {
			return nil, fmt.Errorf("line %d: keyword '%s' after table data", lineNum, fields[0])
		}
		if err := h.parseKeyword(fields, line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cube: %w", err)
	}

	return h.build(data)
}

func (h *cubeHeader) parseKeyword(fields []string, line string) error {
	switch fields[0] {
	case "TITLE":
		h.title = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "TITLE")), "\"")

	case "LUT_3D_SIZE", "LUT_1D_SIZE":
		if len(fields) != 2 {
			return fmt.Errorf("%s wants one value", fields[0])
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 2 {
			return fmt.Errorf("bad %s '%s'", fields[0], fields[1])
		}
		if fields[0] == "LUT_3D_SIZE" {
			h.size3D = n
		} else {
			h.size1D = n
		}

	case "DOMAIN_MIN", "DOMAIN_MAX":
		vals, err := parseFloats(fields[1:], 3)
		if err != nil {
			return fmt.Errorf("%s: %w", fields[0], err)
		}
		for i := 0; i < 3; i++ {
			if fields[0] == "DOMAIN_MIN" {
				h.domain.Min[i] = float64(vals[i])
			} else {
				h.domain.Max[i] = float64(vals[i])
			}
		}

	case "LUT_1D_INPUT_RANGE", "LUT_3D_INPUT_RANGE":
		vals, err := parseFloats(fields[1:], 2)
		if err != nil {
			return fmt.Errorf("%s: %w", fields[0], err)
		}
		for i := 0; i < 3; i++ {
			h.domain.Min[i], h.domain.Max[i] = float64(vals[0]), float64(vals[1])
		}

	default:
		// Unknown keywords are vendor extensions; skip them
	}
	return nil
}

func (h *cubeHeader) build(data []float32) (LUT, error) {
	switch {
	case h.size1D > 0 && h.size3D > 0:
		return nil, fmt.Errorf("cube declares both LUT_1D_SIZE and LUT_3D_SIZE")

	case h.size3D > 0:
		n := h.size3D
		if len(data) != n*n*n*3 {
			return nil, fmt.Errorf("3D cube of size %d wants %d entries, has %d", n, n*n*n, len(data)/3)
		}
		c := NewCube3D(n)
		c.Title = h.title
		c.Domain = h.domain
		for i := 0; i < n*n*n; i++ {
			c.Set(i%n, (i/n)%n, i/(n*n), data[3*i], data[3*i+1], data[3*i+2])
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil

	case h.size1D > 0:
		n := h.size1D
		if len(data) != n*3 {
			return nil, fmt.Errorf("1D cube of size %d wants %d entries, has %d", n, n, len(data)/3)
		}
		c := NewCube1D(n)
		c.Title = h.title
		c.Domain = h.domain
		copy(c.Table, data)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	return nil, fmt.Errorf("cube has no LUT_1D_SIZE or LUT_3D_SIZE")
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 32)
	return err == nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	vals := make([]float32, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("bad value '%s': %w", f, err)
		}
		vals[i] = float32(v)
	}
	return vals, nil
}
