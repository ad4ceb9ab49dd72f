package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// FileStore writes snapshots below a root directory of an afero filesystem.
type FileStore struct {
	fs     afero.Fs
	root   string
	logger alma.Logger
}

// NewFileStore creates a store rooted at root. A nil fs uses the OS filesystem.
func NewFileStore(fs afero.Fs, root string, logger alma.Logger) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if root == "" {
		root = constants.DefaultSnapshotRoot
	}

	if logger == nil {
		logger = alma.NopLogger{}
	}

	return &FileStore{fs: fs, root: root, logger: logger}
}

// Root returns the snapshot root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Save writes p as the next version of basePath, relative to the root, and
// returns the path written.
func (s *FileStore) Save(_ context.Context, p alma.Payload, basePath string) (string, error) {
	fullPath, err := s.resolve(basePath)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)

	err = s.fs.MkdirAll(dir, constants.RecordsDirPerm)
	if err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	names, err := s.names(dir)
	if err != nil {
		return "", err
	}

	name, err := versionedName(names, filepath.Base(fullPath))
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(dir, name)

	// O_EXCL keeps an existing version untouched.
	file, err := s.fs.OpenFile(finalPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.RecordsFilePerm)
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}

	_, err = file.WriteString(p.String())
	if err != nil {
		_ = file.Close()

		return "", fmt.Errorf("writing snapshot file: %w", err)
	}

	err = file.Close()
	if err != nil {
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}

	s.logger.Info("record saved", map[string]interface{}{"path": finalPath})

	return finalPath, nil
}

// Latest loads the last snapshot of dir, relative to the root, whose name
// starts with prefix.
func (s *FileStore) Latest(_ context.Context, dir, prefix string) (alma.Payload, error) {
	fullDir, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}

	names, err := s.names(fullDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("snapshot directory not found", map[string]interface{}{"dir": fullDir})

			return nil, fmt.Errorf("%w: %s", alma.ErrSnapshotNotFound, fullDir)
		}

		return nil, err
	}

	name, ok := latestName(names, prefix)
	if !ok {
		s.logger.Warn("no snapshot found", map[string]interface{}{"dir": fullDir, "prefix": prefix})

		return nil, fmt.Errorf("%w: %s/%s*", alma.ErrSnapshotNotFound, fullDir, prefix)
	}

	data, err := afero.ReadFile(s.fs, filepath.Join(fullDir, name))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	return parseSnapshot(name, data)
}

func (s *FileStore) names(dir string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot directory: %w", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}

	return names, nil
}

// resolve joins rel to the root and rejects paths escaping it.
func (s *FileStore) resolve(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", constants.ErrDirectoryTraversalDetected, rel)
	}

	return filepath.Join(s.root, cleaned), nil
}
