package file

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// FID get fid from file name
func FID(name string) uint64 {
	name = path.Base(name)
	if !strings.HasSuffix(name, ".sst") {
		return 0
	}
	name = strings.TrimSuffix(name, ".sst")
	id, err := strconv.Atoi(name)
	if err != nil {
		return 0
	}
	return uint64(id)
}

// FileNameSSTable join the name of sst
func FileNameSSTable(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%05d.sst", id))
}

// FileNameManifest join the name of a manifest
func FileNameManifest(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("MANIFEST-%06d", id))
}

// IsManifest reports whether name refers to a manifest file. Writers use
// this to decide when a sync must also reach the containing directory.
func IsManifest(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "MANIFEST")
}
