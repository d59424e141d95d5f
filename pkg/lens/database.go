package lens

// A small lens calibration database, read from YAML. The models are
// the ones lensfun uses: ptlens for distortion, pa for vignetting and
// linear for lateral chromatic aberration. All radii are normalized
// so that the image's half-diagonal is 1.0.

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

var (
	ErrMissingCameraInfo  = errors.New("missing camera or lens model")
	ErrMissingOpticalInfo = errors.New("missing focal length or aperture")
	ErrNoProfile          = errors.New("no lens profile")
)

// ShotInfo is the metadata lens correction needs from a photo.
type ShotInfo struct {
	CameraMake  string
	CameraModel string
	LensMake    string
	LensModel   string
	FocalLength float64 // mm
	Aperture    float64 // f-number
}

func (si ShotInfo) String() string {
	return fmt.Sprintf("%s %s + %s %s @ %.1fmm f/%.1f", si.CameraMake, si.CameraModel,
		si.LensMake, si.LensModel, si.FocalLength, si.Aperture)
}

// Check reports which part of the metadata is missing, if any.
func (si ShotInfo) Check() error {
	if si.CameraModel == "" || si.LensModel == "" {
		return ErrMissingCameraInfo
	}
	if si.FocalLength <= 0 || si.Aperture <= 0 {
		return ErrMissingOpticalInfo
	}
	return nil
}

type Camera struct {
	Maker      string  `yaml:"maker"`
	Model      string  `yaml:"model"`
	CropFactor float64 `yaml:"crop_factor,omitempty"`
}

// Distortion is a ptlens calibration point:
//   r_d = r_u * (a*r_u^3 + b*r_u^2 + c*r_u + 1 - a - b - c)
type Distortion struct {
	Focal float64 `yaml:"focal"`
	A     float64 `yaml:"a"`
	B     float64 `yaml:"b"`
	C     float64 `yaml:"c"`
}

// Vignetting is a pa calibration point; the lens darkens by
//   1 + k1*r^2 + k2*r^4 + k3*r^6
type Vignetting struct {
	Focal    float64 `yaml:"focal"`
	Aperture float64 `yaml:"aperture"`
	K1       float64 `yaml:"k1"`
	K2       float64 `yaml:"k2"`
	K3       float64 `yaml:"k3"`
}

// TCA is a linear calibration point; red and blue are scaled
// radially relative to green.
type TCA struct {
	Focal float64 `yaml:"focal"`
	VR    float64 `yaml:"vr"`
	VB    float64 `yaml:"vb"`
}

type Lens struct {
	Maker      string       `yaml:"maker"`
	Model      string       `yaml:"model"`
	Distortion []Distortion `yaml:"distortion,omitempty"`
	Vignetting []Vignetting `yaml:"vignetting,omitempty"`
	TCA        []TCA        `yaml:"tca,omitempty"`
}

// A Database is opened once and shared, read-only, by every
// conversion.
type Database struct {
	Cameras []Camera `yaml:"cameras"`
	Lenses  []Lens   `yaml:"lenses"`
}

// Open loads a database from a YAML file, or from every .yaml file in
// a directory.
func Open(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("lens database: no path given")
	}

	item, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("lens database '%s': %w", path, err)
	}

	db := &Database{}
	if !item.IsDir() {
		if err := db.loadFile(path); err != nil {
			return nil, err
		}
		return db, nil
	}

	contents, err := ioutil.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", path, err)
	}
	for _, content := range contents {
		if content.IsDir() || strings.ToLower(filepath.Ext(content.Name())) != ".yaml" {
			continue
		}
		if err := db.loadFile(filepath.Join(path, content.Name())); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *Database) loadFile(filename string) error {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("open+r lens database '%s': %w", filename, err)
	}

	more := Database{}
	if err := yaml.UnmarshalStrict(contents, &more); err != nil {
		return fmt.Errorf("lens database '%s': %w", filename, err)
	}
	for i, l := range more.Lenses {
		if l.Model == "" {
			return fmt.Errorf("lens database '%s': lens #%d has no model", filename, i)
		}
		more.Lenses[i].sort()
	}

	db.Cameras = append(db.Cameras, more.Cameras...)
	db.Lenses = append(db.Lenses, more.Lenses...)
	return nil
}

func (db *Database) String() string {
	return fmt.Sprintf("lens.Database[%d cameras, %d lenses]", len(db.Cameras), len(db.Lenses))
}

func (l *Lens) sort() {
	sort.SliceStable(l.Distortion, func(i, j int) bool { return l.Distortion[i].Focal < l.Distortion[j].Focal })
	sort.SliceStable(l.TCA, func(i, j int) bool { return l.TCA[i].Focal < l.TCA[j].Focal })
	sort.SliceStable(l.Vignetting, func(i, j int) bool {
		if l.Vignetting[i].Focal != l.Vignetting[j].Focal {
			return l.Vignetting[i].Focal < l.Vignetting[j].Focal
		}
		return l.Vignetting[i].Aperture < l.Vignetting[j].Aperture
	})
}

// normalize makes names comparable: lower case, single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// makerMatches is lenient about the trailing corporate words that
// EXIF makers carry ("NIKON CORPORATION" vs "Nikon").
func makerMatches(want, have string) bool {
	want, have = normalize(want), normalize(have)
	if want == "" || have == "" {
		return true
	}
	return strings.HasPrefix(want, have) || strings.HasPrefix(have, want)
}

// FindCamera returns nil if there is no matching camera.
func (db *Database) FindCamera(maker, model string) *Camera {
	for i, c := range db.Cameras {
		if makerMatches(maker, c.Maker) && normalize(model) == normalize(c.Model) {
			return &db.Cameras[i]
		}
	}
	return nil
}

// FindLens prefers an exact model match; failing that, the longest
// profile model contained in the EXIF model string.
func (db *Database) FindLens(maker, model string) *Lens {
	want := normalize(model)
	if want == "" {
		return nil
	}

	var best *Lens
	for i, l := range db.Lenses {
		if !makerMatches(maker, l.Maker) {
			continue
		}
		have := normalize(l.Model)
		if have == want {
			return &db.Lenses[i]
		}
		if strings.Contains(want, have) && (best == nil || len(have) > len(normalize(best.Model))) {
			best = &db.Lenses[i]
		}
	}
	return best
}
