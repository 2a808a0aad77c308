package screening

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	dErrors "kycgate/pkg/domain-errors"
)

// FileListStore loads watchlists from JSON files on disk, one file per list
// named <list>.json. Regulators distribute consolidated lists as downloads,
// so the file layout mirrors how operations drops them in.
type FileListStore struct {
	dir string
}

func NewFileListStore(dir string) *FileListStore {
	return &FileListStore{dir: dir}
}

func (s *FileListStore) Entries(_ context.Context, list ListName) ([]Entry, error) {
	path := filepath.Join(s.dir, string(list)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "watchlist file missing: "+string(list))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read watchlist file")
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "parse watchlist file: "+string(list))
	}
	return entries, nil
}
