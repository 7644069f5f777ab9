// Package media stores report attachments on the local filesystem, one
// directory per report, and resolves them to public URLs. Attachment
// handling is always best-effort: a failed listing or removal never blocks
// the report operation that triggered it.
package media

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"

	"github.com/nagrik-gov/portal/internal/shared/config"
	apperrors "github.com/nagrik-gov/portal/internal/shared/errors"
)

// Storage saves, lists and removes report attachments.
type Storage interface {
	Save(reportID, filename string, r io.Reader) (string, error)
	List(reportID string) []string
	Remove(reportID string) error
}

// FS is filesystem-backed attachment storage.
type FS struct {
	dir     string
	baseURL string
	logger  *log.Entry
}

// NewFS creates filesystem storage rooted at cfg.Dir.
func NewFS(cfg config.MediaConfig) (*FS, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "creating media directory")
	}
	return &FS{
		dir:     cfg.Dir,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		logger:  log.WithField("component", "media"),
	}, nil
}

// Save stores one attachment and returns its public URL. The filename is
// flattened to its base to keep writes inside the report directory.
func (f *FS) Save(reportID, filename string, r io.Reader) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", apperrors.BadRequest("invalid attachment filename")
	}

	dir := filepath.Join(f.dir, reportID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrap(err, "creating report media directory")
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", apperrors.Wrap(err, "creating attachment file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", apperrors.Wrap(err, "writing attachment")
	}
	return f.url(reportID, name), nil
}

// List returns the public URLs of a report's attachments, sorted by name.
// A missing directory means no attachments.
func (f *FS) List(reportID string) []string {
	entries, err := os.ReadDir(filepath.Join(f.dir, reportID))
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.WithError(err).WithField("report_id", reportID).Warn("failed to list attachments")
		}
		return nil
	}

	var urls []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		urls = append(urls, f.url(reportID, entry.Name()))
	}
	sort.Strings(urls)
	return urls
}

// Remove deletes all attachments of a report.
func (f *FS) Remove(reportID string) error {
	if err := os.RemoveAll(filepath.Join(f.dir, reportID)); err != nil {
		return apperrors.Wrap(err, "removing attachments")
	}
	return nil
}

// Dir returns the storage root, for mounting a file server under the public
// base URL.
func (f *FS) Dir() string {
	return f.dir
}

func (f *FS) url(reportID, name string) string {
	return f.baseURL + "/" + reportID + "/" + name
}
