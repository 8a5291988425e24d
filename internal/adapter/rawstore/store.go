// Package rawstore reads and writes the raw Yelp documents kept on disk:
// one file per search page and one file per business detail.
package rawstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/fileutil"
)

const searchPagePrefix = "yelp_search_offset_"

// ErrNoRawDocuments is returned when a stage finds nothing to read.
var ErrNoRawDocuments = errors.New("no raw documents found")

// Store is the file-backed raw document store.
type Store struct {
	rawDir     string
	detailsDir string
}

// New creates a Store rooted at rawDir (search pages) and detailsDir (details).
func New(rawDir, detailsDir string) *Store {
	return &Store{rawDir: rawDir, detailsDir: detailsDir}
}

// PagePath returns the file holding the search page at offset.
func (s *Store) PagePath(offset int) string {
	return filepath.Join(s.rawDir, fmt.Sprintf("%s%03d.json", searchPagePrefix, offset))
}

// DetailPath returns the file holding the detail document for id.
func (s *Store) DetailPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid business id %q", id)
	}
	return filepath.Join(s.detailsDir, id+".json"), nil
}

// ReadPage loads a cached search page. ok is false when the page is not on disk.
func (s *Store) ReadPage(offset int) (page domain.SearchPage, ok bool, err error) {
	path := s.PagePath(offset)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return domain.SearchPage{}, false, nil
	}
	page, err = readJSON[domain.SearchPage](path)
	if err != nil {
		return domain.SearchPage{}, false, err
	}
	return page, true, nil
}

// WritePage stores the raw response body of a search page.
func (s *Store) WritePage(offset int, body []byte) error {
	return fileutil.WriteFileAtomic(s.PagePath(offset), body)
}

// HasDetail reports whether a detail document for id is already cached.
func (s *Store) HasDetail(id string) bool {
	path, err := s.DetailPath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// ReadDetail loads the cached detail document for id.
func (s *Store) ReadDetail(id string) (domain.BusinessDetail, error) {
	path, err := s.DetailPath(id)
	if err != nil {
		return domain.BusinessDetail{}, err
	}
	return readJSON[domain.BusinessDetail](path)
}

// WriteDetail stores the raw response body of a detail request.
func (s *Store) WriteDetail(id string, body []byte) error {
	path, err := s.DetailPath(id)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, body)
}

// Businesses reads every cached search page in file name order and returns
// their listings concatenated.
func (s *Store) Businesses() ([]domain.Business, error) {
	files, err := s.glob(s.rawDir, searchPagePrefix+"*.json")
	if err != nil {
		return nil, err
	}

	var out []domain.Business
	for _, f := range files {
		page, err := readJSON[domain.SearchPage](f)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Businesses...)
	}
	return out, nil
}

// Details reads every cached detail document in file name order.
func (s *Store) Details() ([]domain.BusinessDetail, error) {
	files, err := s.glob(s.detailsDir, "*.json")
	if err != nil {
		return nil, err
	}

	out := make([]domain.BusinessDetail, 0, len(files))
	for _, f := range files {
		d, err := readJSON[domain.BusinessDetail](f)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) glob(dir, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s in %q", ErrNoRawDocuments, pattern, dir)
	}
	sort.Strings(files)
	return files, nil
}

func readJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %q: %w", path, err)
	}
	return v, nil
}
