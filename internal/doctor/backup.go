package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupTimeLayout = "20060102-150405"

// BackupFile writes a timestamped copy of path next to it and returns the
// copy's path.
func BackupFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("file path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backupPath := fmt.Sprintf("%s.bak-%s", path, time.Now().Format(backupTimeLayout))
	if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
		return "", err
	}
	return backupPath, nil
}

// WriteFile replaces path with content, keeping its permissions. With backup
// set, the previous contents are copied aside first and the backup path is
// returned. The write goes through a temp file in the same directory and a
// rename, so readers never see a half-written file.
func WriteFile(path, content string, backup bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("file path is empty")
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	} else if !os.IsNotExist(err) {
		return "", err
	}

	var backupPath string
	if backup {
		p, err := BackupFile(path)
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("backup %s: %w", path, err)
		}
		backupPath = p
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", err
	}
	return backupPath, nil
}
