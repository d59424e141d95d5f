package alchemy

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abworrall/rawalchemy/pkg/imgio"
)

// Inputs is everything named on the command line: images to convert,
// and maybe a config file.
type Inputs struct {
	Files   []string
	FromDir bool    // Some files were found by reading a directory
	Config  *Config // Loaded from a .yaml file, if one was given
}

func (in *Inputs) LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %w", arg, err)

		case item.IsDir():
			// Only the top level; images in subdirs are not picked up
			in.FromDir = true
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %w", arg, err)
			}
			for _, content := range contents {
				if content.IsDir() {
					continue
				}
				if err := in.loadFile(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %w", arg, err)
				}
			}

		default:
			if err := in.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %w", arg, err)
			}
		}
	}

	sort.Strings(in.Files)
	return nil
}

func (in *Inputs) loadFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".yaml":
		cfg, err := LoadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as config YAML failed: %w", filename, err)
		}
		in.Config = &cfg
		log.Printf("Loaded base configuration from %s\n", filename)

	case imgio.IsSupportedInput(filename):
		in.Files = append(in.Files, filename)
	}

	return nil
}

func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %w", filename, err)
	}

	return newConfigFromYaml(contents)
}

// A Job is one file to convert, and where to put the result.
type Job struct {
	In  string
	Out string
}

// Plan pairs every input with an output filename. When the inputs came
// from a directory, or there are several of them, outPath must be an
// existing directory. A single file may be given an explicit output
// filename, whose extension picks the format.
func (in *Inputs) Plan(outPath, format string) ([]Job, error) {
	if len(in.Files) == 0 {
		return nil, fmt.Errorf("no supported input files (want %s)", "tif, tiff or hdr")
	}

	outIsDir := false
	if item, err := os.Stat(outPath); err == nil && item.IsDir() {
		outIsDir = true
	}

	if in.FromDir || len(in.Files) > 1 {
		if !outIsDir {
			return nil, fmt.Errorf("output path '%s' must be a directory when converting more than one file", outPath)
		}
	}

	jobs := []Job{}
	seen := map[string]string{}
	for _, f := range in.Files {
		var out string
		switch {
		case outIsDir:
			base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			out = filepath.Join(outPath, base+"."+format)
		case outPath == "":
			return nil, fmt.Errorf("no output path given for '%s'", f)
		default:
			out = outPath
		}

		if !imgio.IsSupportedOutputFile(out) {
			return nil, fmt.Errorf("output '%s': can only write tif, tiff or hdr", out)
		}
		if filepath.Clean(out) == filepath.Clean(f) {
			return nil, fmt.Errorf("output '%s' would overwrite its input", out)
		}
		if prev, exists := seen[out]; exists {
			return nil, fmt.Errorf("'%s' and '%s' would both be written to '%s'", prev, f, out)
		}
		seen[out] = f
		jobs = append(jobs, Job{In: f, Out: out})
	}

	return jobs, nil
}
