package filestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const OutputPrefix = "cropped_"

var allowedExtensions = map[string]bool{".pdf": true}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Store keeps uploaded originals and cropped results in two folders.
type Store struct {
	UploadDir string
	OutputDir string
	logger    *slog.Logger
}

func New(uploadDir, outputDir string) (*Store, error) {
	if err := createDirectories(uploadDir, outputDir); err != nil {
		return nil, err
	}
	return &Store{
		UploadDir: uploadDir,
		OutputDir: outputDir,
		logger:    slog.Default(),
	}, nil
}

func createDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	return nil
}

func AllowedFile(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SecureFilename drops any directory part and replaces characters that are
// unsafe in a file name. It returns "" when nothing usable is left.
func SecureFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" || name == "." {
		return ""
	}
	return name
}

// UploadPath returns a fresh path in the upload folder; concurrent uploads
// with the same name never share a file.
func (s *Store) UploadPath(filename string) string {
	return filepath.Join(s.UploadDir, uuid.NewString()+"_"+filename)
}

func OutputName(filename string) string {
	return OutputPrefix + filename
}

// CreateOutput creates cropped_<filename> in the output folder, numbered
// when the name is taken. The file is created exclusively, so two requests
// never share an output file. The caller closes it.
func (s *Store) CreateOutput(filename string) (*os.File, error) {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(OutputName(filename), ext)
	destPath := filepath.Join(s.OutputDir, OutputName(filename))

	for counter := 1; ; counter++ {
		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		destPath = filepath.Join(s.OutputDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
	}
}

func (s *Store) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove file", "path", path, "error", err)
	}
}
