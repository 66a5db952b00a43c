// Package classify maps file names onto configured categories by extension.
package classify

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"downsort/internal/config"
	"downsort/internal/fileutil"
)

// Table is an immutable, ordered category table. It is safe for concurrent use.
type Table struct {
	categories []config.Category
	byExt      map[string]int
	byName     map[string]int
	fallback   int
}

// NewTable validates categories and builds a lookup table. Extensions must be
// disjoint across categories and the fallback category must exist with a
// destination.
func NewTable(categories []config.Category) (*Table, error) {
	if len(categories) == 0 {
		return nil, errors.New("category table is empty")
	}
	t := &Table{
		categories: make([]config.Category, 0, len(categories)),
		byExt:      make(map[string]int),
		byName:     make(map[string]int, len(categories)),
		fallback:   -1,
	}
	for _, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, errors.New("category without a name")
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		idx := len(t.categories)
		exts := make([]string, 0, len(cat.Extensions))
		for _, raw := range cat.Extensions {
			ext := foldExtension(raw)
			if ext == "" {
				continue
			}
			if owner, taken := t.byExt[ext]; taken {
				if owner == idx {
					continue
				}
				return nil, fmt.Errorf("extension %q listed under both %q and %q", ext, t.categories[owner].Name, name)
			}
			t.byExt[ext] = idx
			exts = append(exts, ext)
		}
		t.byName[name] = idx
		t.categories = append(t.categories, config.Category{Name: name, Extensions: exts, Destination: cat.Destination})
		if name == config.FallbackCategory {
			t.fallback = idx
		}
	}
	if t.fallback < 0 {
		return nil, fmt.Errorf("fallback category %q missing", config.FallbackCategory)
	}
	if strings.TrimSpace(t.categories[t.fallback].Destination) == "" {
		return nil, fmt.Errorf("fallback category %q has no destination", config.FallbackCategory)
	}
	return t, nil
}

// Classify returns the category for a file name. Only the base name is
// considered; names without an extension fall back.
func (t *Table) Classify(name string) string {
	ext := foldExtension(fileutil.Ext(filepath.Base(name)))
	if ext == "" {
		return t.categories[t.fallback].Name
	}
	if idx, ok := t.byExt[ext]; ok {
		return t.categories[idx].Name
	}
	return t.categories[t.fallback].Name
}

// Destination returns the directory for a category. Unknown categories and
// categories without a destination resolve to the fallback destination.
func (t *Table) Destination(category string) string {
	if idx, ok := t.byName[category]; ok {
		if dest := t.categories[idx].Destination; strings.TrimSpace(dest) != "" {
			return dest
		}
	}
	return t.categories[t.fallback].Destination
}

// Categories returns a copy of the table in match order.
func (t *Table) Categories() []config.Category {
	out := make([]config.Category, len(t.categories))
	for i, cat := range t.categories {
		cat.Extensions = append([]string(nil), cat.Extensions...)
		out[i] = cat
	}
	return out
}

// Fallback returns the name of the fallback category.
func (t *Table) Fallback() string {
	return t.categories[t.fallback].Name
}

// foldExtension composes and lowercases so "JPG", "jpg" and decomposed
// accented forms share one key.
func foldExtension(ext string) string {
	ext = strings.TrimLeft(strings.TrimSpace(ext), ".")
	if ext == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(ext))
}
