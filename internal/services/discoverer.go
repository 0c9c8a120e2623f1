package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Lllllllleong/geminiocr/internal/models"
	"github.com/bmatcuk/doublestar/v4"
)

const recursiveMarker = "**"

// Discover expands a glob pattern into a naturally sorted list of supported documents.
// Relative patterns are evaluated against the current working directory.
func Discover(pattern string) ([]models.Document, error) {
	logCtx := slog.With("pattern", pattern)
	logCtx.Debug("Discovering documents.")

	base, expr, err := splitPattern(pattern)
	if err != nil {
		return nil, err
	}
	logCtx.Debug("Resolved base directory.", "base", base, "expression", expr)

	matches, err := doublestar.Glob(os.DirFS(base), expr)
	if err != nil {
		logCtx.Error("Glob pattern failed", "error", err)
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidPattern, pattern)
	}
	logCtx.Debug("Found total matches.", "count", len(matches))
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoMatch, pattern)
	}

	docs := make([]models.Document, 0, len(matches))
	for _, m := range matches {
		full := filepath.Join(base, filepath.FromSlash(m))
		if !models.Supported(strings.TrimPrefix(filepath.Ext(full), ".")) {
			continue
		}
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		docs = append(docs, models.NewDocument(full))
	}
	logCtx.Debug("Filtered to document files.", "count", len(docs))
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoSupportedDocuments, pattern)
	}

	slices.SortStableFunc(docs, func(a, b models.Document) int {
		return CompareNatural(a.Name, b.Name)
	})

	if logCtx.Enabled(context.Background(), slog.LevelDebug) {
		for i, d := range docs[:min(5, len(docs))] {
			logCtx.Debug("Discovered document.", "position", i+1, "name", d.Name)
		}
		if len(docs) > 5 {
			logCtx.Debug("More documents discovered.", "remaining", len(docs)-5)
		}
	}
	return docs, nil
}

// splitPattern resolves the directory the match expression is evaluated in and the
// slash-separated expression itself. Recursive patterns are split on the first marker only.
func splitPattern(pattern string) (string, string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", "", fmt.Errorf("%w: empty pattern", models.ErrInvalidPattern)
	}

	resolved := pattern
	if !filepath.IsAbs(pattern) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		resolved = filepath.Join(cwd, pattern)
	}
	base, expr := absoluteBase(filepath.Clean(resolved))

	if idx := strings.Index(expr, recursiveMarker); idx >= 0 {
		prefix := expr[:idx]
		// "docs/**" and "docs/img**" both descend from "docs/".
		dir := prefix[:strings.LastIndex(prefix, "/")+1]

		suffix := ""
		if rest := strings.TrimLeft(expr[idx:], "*"); strings.HasPrefix(rest, "/") {
			suffix = strings.TrimLeft(rest, "/")
		}
		if suffix == "" {
			suffix = "*"
		}
		expr = dir + recursiveMarker + "/" + suffix
	}

	if expr == "" || !doublestar.ValidatePattern(expr) {
		return "", "", fmt.Errorf("%w: %s", models.ErrInvalidPattern, pattern)
	}
	return base, expr, nil
}

// absoluteBase returns the leading path segments up to the first one holding a
// wildcard, plus the remaining expression.
func absoluteBase(pattern string) (string, string) {
	clean := filepath.ToSlash(pattern)
	volume := filepath.ToSlash(filepath.VolumeName(pattern))
	segments := strings.Split(strings.TrimPrefix(clean, volume), "/")

	cut := len(segments)
	for i, seg := range segments {
		if hasMeta(seg) {
			cut = i
			break
		}
	}
	if cut == len(segments) {
		// No wildcard at all: match the final segment literally in its directory.
		cut = len(segments) - 1
	}

	base := volume + strings.Join(segments[:cut], "/")
	if base == volume {
		base = volume + "/"
	}
	return filepath.FromSlash(base), strings.Join(segments[cut:], "/")
}

func hasMeta(segment string) bool {
	return strings.ContainsAny(segment, "*?[{")
}
