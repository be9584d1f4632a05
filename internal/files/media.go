// Package files stores the media the assistant can send to patients
// (price lists, pre-op instructions, videos) grouped by category.
package files

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxFileSize is the WhatsApp media ceiling.
const MaxFileSize = 16 << 20

var mediaTypes = map[string]string{
	".pdf":  "document",
	".docx": "document",
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".mp4":  "video",
	".mp3":  "audio",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	categoryChars = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)
)

// ErrInvalidCategory means the category cannot be used as a directory name.
var ErrInvalidCategory = errors.New("files: invalid category")

// MediaType maps a filename to the media kind WhatsApp expects.
func MediaType(filename string) string {
	if kind, ok := mediaTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return kind
	}
	return "document"
}

// NormalizeCategory lowercases, trims and joins whitespace runs with "_".
func NormalizeCategory(category string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(category)), "_")
}

// ValidateCategory accepts normalized categories made of letters, digits,
// "_" and "-" only.
func ValidateCategory(category string) error {
	if !categoryChars.MatchString(category) {
		return ErrInvalidCategory
	}
	return nil
}

// ValidateSize rejects uploads over MaxFileSize.
func ValidateSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("Arquivo muito grande. Limite: 16MB. Tamanho enviado: %.1fMB", float64(size)/1024/1024)
	}
	return nil
}

// ValidateExtension rejects extensions outside the media table.
func ValidateExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := mediaTypes[ext]; !ok {
		return fmt.Errorf("Extensão não suportada: %s. Use: pdf, docx, jpg, jpeg, png, mp4, mp3", ext)
	}
	return nil
}

// cleanName strips any directory part a client sent with the filename.
func cleanName(filename string) (string, bool) {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == ".." || name == "/" || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}
