package logcurve

import (
	"fmt"
	"sort"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

// Lookup finds a curve by name.
func Lookup(name string) (Curve, error) {
	if c, exists := curves[name]; exists {
		return c, nil
	}
	return nil, fmt.Errorf("no log curve named '%s'", name)
}

func List() []string {
	names := []string{}
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode runs every channel of the buffer through the named curve, in
// place. An unknown name is reported before any pixel changes.
func Encode(buf *raster.Buffer, name string) error {
	curve, err := Lookup(name)
	if err != nil {
		return err
	}
	if buf.Released() {
		return fmt.Errorf("log encode '%s': released buffer", name)
	}

	err = raster.EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := buf.Row(y)
			for i, v := range row {
				row[i] = float32(curve(float64(v)))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("log encode '%s': %w", name, err)
	}
	return nil
}
