package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pevans/progcat"
	"github.com/pevans/progcat/urlnorm"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file in a fixture directory that maps URLs to files.
const ManifestName = "routes.yaml"

// ErrNoRoute is wrapped by the not-found error for URLs the manifest does
// not list.
var ErrNoRoute = errors.New("no fixture for URL")

// Manifest is the content of routes.yaml.
type Manifest struct {
	Routes map[string]string `yaml:"routes"`
}

// Files serves pages from a fixture directory. Lookups use normalized URLs,
// so equivalent spellings of a listed URL all resolve to the same file.
type Files struct {
	dir    string
	routes map[string]string
}

// NewFiles loads the manifest of dir.
func NewFiles(dir string) (*Files, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse fixture manifest: %w", err)
	}

	routes := make(map[string]string, len(m.Routes))
	for rawURL, file := range m.Routes {
		key, err := urlnorm.Normalize(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture URL %q: %w", rawURL, err)
		}
		if filepath.IsAbs(file) {
			return nil, fmt.Errorf("fixture file %q must be relative to %s", file, dir)
		}
		routes[key] = file
	}

	return &Files{dir: dir, routes: routes}, nil
}

// Len returns the number of routes in the manifest.
func (f *Files) Len() int {
	return len(f.routes)
}

// Fetch returns the fixture file routed for url. Unknown URLs and missing
// files are permanent not-found errors.
func (f *Files) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := urlnorm.Normalize(url)
	if err != nil {
		return nil, &progcat.FetchError{URL: url, Permanent: true, Err: err}
	}

	file, ok := f.routes[key]
	if !ok {
		return nil, &progcat.FetchError{
			URL:        url,
			StatusCode: http.StatusNotFound,
			Permanent:  true,
			Err:        ErrNoRoute,
		}
	}

	data, err := os.ReadFile(filepath.Join(f.dir, file))
	if err != nil {
		return nil, &progcat.FetchError{
			URL:        url,
			StatusCode: http.StatusNotFound,
			Permanent:  true,
			Err:        fmt.Errorf("failed to read fixture %s: %w", file, err),
		}
	}

	return data, nil
}
