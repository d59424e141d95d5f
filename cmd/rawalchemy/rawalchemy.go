package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/abworrall/rawalchemy/pkg/alchemy"
	"github.com/abworrall/rawalchemy/pkg/ecolor"
	"github.com/abworrall/rawalchemy/pkg/lens"
	"github.com/abworrall/rawalchemy/pkg/metering"
)

var (
	Log *log.Logger

	fVerbosity    int
	fLogSpace     string
	fExposure     string
	fMetering     string
	fLutPath      string
	fLensCorrect  bool
	fLensDatabase string
	fFormat       string
	fJobs         int
	fPreviewWidth int
	fOutput       string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fLogSpace, "logspace", "", "target log space: "+strings.Join(ecolor.ListLogSpaces(), ", "))
	flag.StringVar(&fExposure, "exposure", "", "manual exposure in stops (e.g. 1.5); leave empty to meter the scene")
	flag.StringVar(&fMetering, "metering", "hybrid", "how to meter the scene: "+strings.Join(metering.ListStrategies(), ", "))
	flag.StringVar(&fLutPath, "lut", "", "optional .cube LUT, applied after log encoding")
	flag.BoolVar(&fLensCorrect, "lens", true, "correct lens distortion, TCA and vignetting (needs -lensdb)")
	flag.StringVar(&fLensDatabase, "lensdb", "", "lens profile database, a YAML file or a dir of them")
	flag.StringVar(&fFormat, "format", "tif", "output format: tif or hdr")
	flag.IntVar(&fJobs, "jobs", 4, "how many files to convert at once")
	flag.IntVar(&fPreviewWidth, "preview", 0, "if >0, also write a PNG preview this many pixels wide")
	flag.StringVar(&fOutput, "o", "", "output file, or output dir when converting several files")
	flag.Parse()

	Log = log.New(os.Stdout, "", log.Ldate|log.Ltime)
	Log.Printf("rawalchemy starting\n")
}

// progressLogger counts files off as they finish.
type progressLogger struct {
	mu    sync.Mutex
	total int
	done  int
}

func (pl *progressLogger) Total(n int) { pl.total = n }
func (pl *progressLogger) Done(file string, err error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.done++
	status := "ok"
	if err != nil {
		status = "FAILED"
	}
	Log.Printf("[%d/%d] %s %s\n", pl.done, pl.total, file, status)
}

func main() {
	in := alchemy.Inputs{}
	if err := in.LoadFilesAndDirs(flag.Args()...); err != nil {
		Log.Fatal(err)
	}

	cfg := alchemy.NewConfig()
	if in.Config != nil {
		cfg = *in.Config
	}

	// Override the config file with command line args, if they were given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Verbosity = fVerbosity
		case "logspace":
			cfg.LogSpace = fLogSpace
		case "exposure":
			if fExposure == "" {
				cfg.Exposure = nil
			} else if stops, err := strconv.ParseFloat(fExposure, 64); err != nil {
				Log.Fatalf("bad -exposure '%s': %v", fExposure, err)
			} else {
				cfg.Exposure = &stops
			}
		case "metering":
			cfg.Metering = fMetering
		case "lut":
			cfg.LutPath = fLutPath
		case "lens":
			cfg.LensCorrect = fLensCorrect
		case "lensdb":
			cfg.LensDatabase = fLensDatabase
		case "format":
			cfg.OutputFormat = fFormat
		case "jobs":
			cfg.Jobs = fJobs
		case "preview":
			cfg.PreviewWidth = fPreviewWidth
		}
	})

	p, err := alchemy.New(cfg, Log)
	if err != nil {
		Log.Fatal(err)
	}

	if cfg.Verbosity > 0 {
		Log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	jobs, err := in.Plan(fOutput, cfg.OutputFormat)
	if err != nil {
		Log.Fatal(err)
	}

	if cfg.LensCorrect {
		if cfg.LensDatabase == "" {
			Log.Printf("[Lens] no lens database given (-lensdb), skipping lens correction\n")
		} else if db, err := lens.Open(cfg.LensDatabase); err != nil {
			Log.Fatal(err)
		} else {
			Log.Printf("[Lens] opened %s\n", db)
			p.Lens = db
		}
	}

	p.LoadLUT(cfg.LutPath)

	result := p.RunBatch(jobs, &progressLogger{})
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}
