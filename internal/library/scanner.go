// Package library finds importable audio files on disk.
package library

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jscyril/multitrack/internal/audio"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// Scanner scans directories concurrently using a worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
}

// NewScanner creates a new file scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// Scan walks paths and returns channels for found samples and errors.
// Both channels close when the scan finishes or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, paths []string) (<-chan *Sample, <-chan error) {
	samples := make(chan *Sample, 100)
	errs := make(chan error, 10)
	files := make(chan string, 100)

	var wg sync.WaitGroup

	go func() {
		defer close(files)
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}

			err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					report(errs, &playerrors.ScanError{Path: p, Err: err})
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !d.IsDir() && audio.IsSupported(p) {
					select {
					case files <- p:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			})

			if err != nil && !errors.Is(err, context.Canceled) {
				report(errs, &playerrors.ScanError{Path: path, Err: err})
			}
		}
	}()

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filePath := range files {
				sample, err := s.metaReader.Read(filePath)
				if err != nil {
					report(errs, &playerrors.ScanError{Path: filePath, Err: err})
					continue
				}
				select {
				case samples <- sample:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(samples)
		close(errs)
	}()

	return samples, errs
}

// Collect runs a scan to completion and returns the samples sorted by
// path, along with every error the scan reported.
func (s *Scanner) Collect(ctx context.Context, paths []string) ([]Sample, error) {
	found, errc := s.Scan(ctx, paths)

	var (
		out  []Sample
		errs []error
		done sync.WaitGroup
	)
	done.Add(1)
	go func() {
		defer done.Done()
		for err := range errc {
			errs = append(errs, err)
		}
	}()
	for sample := range found {
		out = append(out, *sample)
	}
	done.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}

// ScanFile describes a single file
func (s *Scanner) ScanFile(filePath string) (*Sample, error) {
	if !audio.IsSupported(filePath) {
		return nil, playerrors.ErrInvalidFormat
	}
	return s.metaReader.Read(filePath)
}

// report drops the error when nobody is draining the channel
func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
