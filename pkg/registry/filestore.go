// file: pkg/registry/filestore.go

package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

const (
	_fileSuffix       = ".json"
	_metadataDir      = "_metadata"
	_resourceVersions = "globalResourceVersion"
)

// FileStore 实现了 Store 接口，使用本地文件系统作为后端。
// key "group/version/resource/namespace/name" 对应文件 <basePath>/group/version/resource/namespace/name.json
type FileStore struct {
	basePath string

	// rvLock 保护全局版本号文件
	rvLock sync.Mutex
}

var _ Store = &FileStore{}

func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, _metadataDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path for filestore: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) pathForKey(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key)+_fileSuffix)
}

func (s *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.pathForKey(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}
	return data, nil
}

func (s *FileStore) Put(key string, data []byte) error {
	path := s.pathForKey(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for object: %w", err)
	}
	return writeFileAtomic(path, data)
}

func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.pathForKey(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object file: %w", err)
	}
	return nil
}

func (s *FileStore) List(prefix string) ([][]byte, error) {
	dirPath := filepath.Join(s.basePath, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
	if _, statErr := os.Stat(dirPath); os.IsNotExist(statErr) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), _fileSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	sort.Strings(paths)

	items := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			// 文件可能在遍历之后被删除
			if errors.Is(readErr, fs.ErrNotExist) {
				continue
			}
			klog.Warningf("failed to read file %s: %v", path, readErr)
			continue
		}
		items = append(items, data)
	}
	return items, nil
}

func (s *FileStore) NextResourceVersion() (uint64, error) {
	s.rvLock.Lock()
	defer s.rvLock.Unlock()

	current, err := s.readResourceVersion()
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := writeFileAtomic(s.resourceVersionPath(), []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, fmt.Errorf("failed to persist resource version: %w", err)
	}
	return next, nil
}

func (s *FileStore) CurrentResourceVersion() (uint64, error) {
	s.rvLock.Lock()
	defer s.rvLock.Unlock()
	return s.readResourceVersion()
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) resourceVersionPath() string {
	return filepath.Join(s.basePath, _metadataDir, _resourceVersions)
}

func (s *FileStore) readResourceVersion() (uint64, error) {
	data, err := os.ReadFile(s.resourceVersionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read resource version: %w", err)
	}
	rv, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupted resource version file: %w", err)
	}
	return rv, nil
}

// writeFileAtomic 先写临时文件再 rename，读者不会看到写了一半的文件。
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
