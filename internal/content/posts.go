// Package content reads the MDX post sources that narration is generated
// from.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emots/narrate-server/internal/narration"
)

const postExtension = ".mdx"

// Repository lists and reads post sources from a directory. The slug is the
// file name without extension.
type Repository struct {
	dir string
}

func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the posts directory being read.
func (r *Repository) Dir() string {
	return r.dir
}

// ListSlugs returns the slugs of all posts, sorted.
func (r *Repository) ListSlugs() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read posts directory: %w", err)
	}

	var slugs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, postExtension) {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, postExtension))
	}

	sort.Strings(slugs)
	return slugs, nil
}

// Read returns a post's raw MDX source.
func (r *Repository) Read(slug string) (string, error) {
	if strings.ContainsAny(slug, `/\`) || slug == "" || strings.Contains(slug, "..") {
		return "", narration.ErrInvalidInput.WithMessage("invalid slug")
	}

	data, err := os.ReadFile(filepath.Join(r.dir, slug+postExtension))
	if err != nil {
		if os.IsNotExist(err) {
			return "", narration.ErrNotFound.WithMessage("post not found")
		}
		return "", fmt.Errorf("failed to read post %q: %w", slug, err)
	}
	return string(data), nil
}

// SlugForPath maps a file path inside the posts directory back to its slug,
// or "" when the path is not a post source.
func (r *Repository) SlugForPath(path string) string {
	if filepath.Ext(path) != postExtension {
		return ""
	}
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || strings.Contains(rel, string(filepath.Separator)) {
		return ""
	}
	return strings.TrimSuffix(rel, postExtension)
}
