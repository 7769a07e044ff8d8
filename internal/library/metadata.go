package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Sample is an importable audio file found on disk
type Sample struct {
	Path   string
	Title  string
	Artist string
	Format string
	Size   int64
}

// Name returns the track name a sample imports under
func (s Sample) Name() string {
	if s.Title != "" {
		return s.Title
	}
	return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
}

// MetadataReader extracts tag metadata from audio files
type MetadataReader struct{}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// Read describes the file at filePath. Files without tags still produce a
// sample named after the file.
func (r *MetadataReader) Read(filePath string) (*Sample, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	sample := &Sample{
		Path:   filePath,
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), "."),
		Size:   info.Size(),
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return sample, nil
	}
	sample.Title = strings.TrimSpace(metadata.Title())
	sample.Artist = strings.TrimSpace(metadata.Artist())
	return sample, nil
}
