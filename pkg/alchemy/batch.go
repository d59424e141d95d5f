package alchemy

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
)

// Progress hears about a batch as it runs: Total once before any work
// starts, then Done once per file, whether it worked or not. Done is
// called from worker goroutines.
type Progress interface {
	Total(n int)
	Done(file string, err error)
}

type BatchResult struct {
	Converted int
	Failed    []*FileError
	Latency   *hdrhistogram.Histogram // per-file wall time, in milliseconds
}

func (br BatchResult) String() string {
	s := fmt.Sprintf("%d converted, %d failed", br.Converted, len(br.Failed))
	if br.Latency != nil && br.Latency.TotalCount() > 0 {
		s += fmt.Sprintf("; per file: p50 %dms, p90 %dms, max %dms",
			br.Latency.ValueAtQuantile(50), br.Latency.ValueAtQuantile(90), br.Latency.Max())
	}
	return s
}

// fileLogger tags each line with the file being converted, so lines
// from concurrent conversions can be told apart.
func (p *Pipeline) fileLogger(filename string) *log.Logger {
	return log.New(p.Logger.Writer(), fmt.Sprintf("[%s] ", filepath.Base(filename)), p.Logger.Flags())
}

// RunBatch converts every job, at most Config.Jobs at a time. A file
// that fails is recorded, and the other files carry on.
func (p *Pipeline) RunBatch(jobs []Job, progress Progress) BatchResult {
	result := BatchResult{
		Latency: hdrhistogram.New(1, int64(time.Hour/time.Millisecond), 3),
	}
	if progress != nil {
		progress.Total(len(jobs))
	}
	p.Logger.Printf("Converting %d files, %d at a time, with %s\n", len(jobs), p.Config.Jobs, p)

	var mu sync.Mutex
	sem := make(chan bool, p.Config.Jobs)
	for _, job := range jobs {
		sem <- true
		go func(job Job) {
			defer func() { <-sem }()

			start := time.Now()
			fe := p.convertOne(job)
			elapsed := time.Since(start).Milliseconds()
			if elapsed < 1 {
				elapsed = 1
			}

			var err error
			mu.Lock()
			if fe == nil {
				result.Converted++
			} else {
				result.Failed = append(result.Failed, fe)
				err = fe
			}
			result.Latency.RecordValue(elapsed)
			mu.Unlock()

			if progress != nil {
				progress.Done(job.In, err)
			}
		}(job)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}

	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].File < result.Failed[j].File })
	for _, fe := range result.Failed {
		p.Logger.Printf("FAILED %v\n", fe)
	}
	p.Logger.Printf("Batch done: %s\n", result)

	return result
}

// convertOne never lets one file's failure, even a panic, escape.
func (p *Pipeline) convertOne(job Job) (fe *FileError) {
	logger := p.fileLogger(job.In)
	defer func() {
		if r := recover(); r != nil {
			fe = &FileError{File: job.In, Err: fmt.Errorf("panic: %v", r)}
			logger.Printf("%v\n", fe)
		}
	}()

	err := p.Convert(job.In, job.Out, logger)
	if err == nil {
		return nil
	}
	logger.Printf("failed: %v\n", err)
	if errors.As(err, &fe) {
		return fe
	}
	return &FileError{File: job.In, Err: err}
}
