package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/resilience"
	"github.com/oregrid/facility-cli/internal/validate"
)

// FileStore keeps one JSON file per facility under
// <root>/<country>/<facility_id>.json. Every mutation backs up the previous
// version into <root>/.backups/ and writes via temp-file + rename so a
// partial write is never observable.
type FileStore struct {
	root string
}

// NewFileStore creates a facility file store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(resilience.ErrStorage, "filestore: create root %s: %v", dir, err)
	}
	return &FileStore{root: dir}, nil
}

// countryOf derives the country directory from a facility ID prefix.
func countryOf(facilityID string) string {
	if i := strings.Index(facilityID, "-"); i > 0 {
		return facilityID[:i]
	}
	return facilityID
}

func (s *FileStore) path(facilityID string) string {
	return filepath.Join(s.root, countryOf(facilityID), facilityID+".json")
}

// Get loads a single record, returning (nil, nil) when the file is absent.
func (s *FileStore) Get(_ context.Context, facilityID string) (*model.FacilityRecord, error) {
	data, err := os.ReadFile(s.path(facilityID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(resilience.ErrStorage, "filestore: read %s: %v", facilityID, err)
	}
	var rec model.FacilityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrapf(resilience.ErrInput, "filestore: decode %s: %v", facilityID, err)
	}
	return &rec, nil
}

// List loads every record, optionally restricted to one country code.
// Malformed files are skipped and reported.
func (s *FileStore) List(ctx context.Context, country string) ([]*model.FacilityRecord, []SkippedRecord, error) {
	var records []*model.FacilityRecord
	var skipped []SkippedRecord

	walkRoot := s.root
	if country != "" {
		walkRoot = filepath.Join(s.root, strings.ToLower(country))
		if _, err := os.Stat(walkRoot); errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
	}

	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// Backups are not part of the live corpus.
			if d.Name() == backupDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Path: path, Reason: err.Error()})
			return nil
		}
		var rec model.FacilityRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			zap.L().Warn("filestore: skipping malformed record",
				zap.String("path", path), zap.Error(err))
			skipped = append(skipped, SkippedRecord{Path: path, Reason: err.Error()})
			return nil
		}
		if rec.FacilityID == "" {
			skipped = append(skipped, SkippedRecord{Path: path, Reason: "missing facility_id"})
			return nil
		}
		records = append(records, &rec)
		return nil
	})
	if err != nil {
		return nil, nil, eris.Wrapf(resilience.ErrStorage, "filestore: walk %s: %v", walkRoot, err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].FacilityID < records[j].FacilityID })
	return records, skipped, nil
}

const backupDirName = ".backups"

// Put writes a record atomically. An existing version is backed up first; a
// schema-invalid record is rejected before anything is touched.
func (s *FileStore) Put(_ context.Context, rec *model.FacilityRecord) error {
	if violations := validate.Record(rec); len(violations) > 0 {
		return eris.Wrapf(resilience.ErrValidation, "filestore: put %s: %v", rec.FacilityID, violations)
	}

	path := s.path(rec.FacilityID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(resilience.ErrStorage, "filestore: mkdir for %s: %v", rec.FacilityID, err)
	}

	if err := s.backup(rec.FacilityID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return eris.Wrapf(resilience.ErrStorage, "filestore: encode %s: %v", rec.FacilityID, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(resilience.ErrStorage, "filestore: write temp for %s: %v", rec.FacilityID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(resilience.ErrStorage, "filestore: replace %s: %v", rec.FacilityID, err)
	}
	return nil
}

// Delete backs up then removes a record. Deleting an absent record is a no-op.
func (s *FileStore) Delete(_ context.Context, facilityID string) error {
	path := s.path(facilityID)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := s.backup(facilityID); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return eris.Wrapf(resilience.ErrStorage, "filestore: delete %s: %v", facilityID, err)
	}
	return nil
}

// backup copies the current version of a record, if any, into the backup
// directory with a timestamped name.
func (s *FileStore) backup(facilityID string) error {
	data, err := os.ReadFile(s.path(facilityID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return eris.Wrapf(resilience.ErrStorage, "filestore: backup read %s: %v", facilityID, err)
	}

	dir := filepath.Join(s.root, backupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(resilience.ErrStorage, "filestore: backup dir: %v", err)
	}

	name := fmt.Sprintf("%s.%s.json", facilityID, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return eris.Wrapf(resilience.ErrStorage, "filestore: backup write %s: %v", facilityID, err)
	}
	return nil
}
