// Package artifact normalizes user-selected files into the single binary
// form accepted by the summarization backend: a PDF document.
//
// Native PDFs pass through unchanged. Markdown is rendered directly. Plain
// text is wrapped in minimal markup and rendered through the same path. HTML
// is sanitized and converted to markup first; Word documents contribute their
// paragraph structure. Anything else is rejected before any work happens.
//
// Usage:
//
//	b := artifact.New(artifact.Config{})
//	res, err := b.Build(ctx, "/path/to/notes.md")
//	// res.Data is a PDF, res.Converted reports whether a conversion ran
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Format identifies a supported input type.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatDocx     Format = "docx"
)

// ErrUnsupportedFormat is returned for file extensions the builder does not
// handle. The caller sees it before any file or network I/O.
var ErrUnsupportedFormat = errors.New("artifact: unsupported format")

// ErrNoContent is returned when a convertible input holds no renderable text.
var ErrNoContent = errors.New("artifact: no text content")

// Config configures the artifact builder.
type Config struct {
	// MaxFileSize is the largest input accepted (default: 100 MB).
	MaxFileSize int64

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Builder turns input files into PDF artifacts.
type Builder struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Builder with the given configuration.
func New(cfg Config) *Builder {
	cfg.defaults()
	return &Builder{cfg: cfg, logger: cfg.Logger}
}

// Result is a normalized artifact.
type Result struct {
	Data      []byte // the PDF payload
	Format    Format // detected input format
	Converted bool   // false when the input was already a PDF
}

// Detect returns the format for a file name based on its extension.
// Unknown extensions wrap ErrUnsupportedFormat.
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt", ".text":
		return FormatText, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".docx":
		return FormatDocx, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Build reads the file at path and produces the PDF artifact for it.
// The format is decided by extension before the file is opened, so an
// unsupported extension fails without touching the filesystem beyond Detect.
func (b *Builder) Build(ctx context.Context, path string) (*Result, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > b.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), b.cfg.MaxFileSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	b.logger.Debug("artifact: building", "path", path, "format", format, "bytes", len(data))

	switch format {
	case FormatPDF:
		if err := validatePDF(data); err != nil {
			return nil, err
		}
		return &Result{Data: data, Format: format, Converted: false}, nil

	case FormatMarkdown:
		blocks := parseMarkup(string(data))
		pdf, err := renderPDF(blocks)
		if err != nil {
			return nil, err
		}
		return &Result{Data: pdf, Format: format, Converted: true}, nil

	case FormatText:
		markup := wrapPlainText(Title(path), string(data))
		pdf, err := renderPDF(parseMarkup(markup))
		if err != nil {
			return nil, err
		}
		return &Result{Data: pdf, Format: format, Converted: true}, nil

	case FormatHTML:
		markup, err := htmlToMarkup(data)
		if err != nil {
			return nil, fmt.Errorf("convert html: %w", err)
		}
		pdf, err := renderPDF(parseMarkup(markup))
		if err != nil {
			return nil, err
		}
		return &Result{Data: pdf, Format: format, Converted: true}, nil

	case FormatDocx:
		blocks, err := docxBlocks(data)
		if err != nil {
			return nil, fmt.Errorf("parse docx: %w", err)
		}
		pdf, err := renderPDF(blocks)
		if err != nil {
			return nil, err
		}
		return &Result{Data: pdf, Format: format, Converted: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// validatePDF checks that data is a readable PDF.
func validatePDF(data []byte) error {
	conf := model.NewDefaultConfiguration()
	if _, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	return nil
}

// wrapPlainText puts raw text into minimal markup: the file's base name as a
// heading, followed by the text with paragraph structure preserved.
func wrapPlainText(title, text string) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString(text)
	return sb.String()
}

// Title derives a display title from a file path: the base name without its
// extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
