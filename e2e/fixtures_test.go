//go:build e2e && unix

package main

import (
	"os"
	"path/filepath"
	"strings"
)

// CreateTestWorkspace creates a temporary directory for documents, config and logs
func (tf *TUITestFramework) CreateTestWorkspace() (string, error) {
	workspace, err := os.MkdirTemp("", "pagewise-e2e-*")
	if err != nil {
		return "", err
	}
	tf.workspace = workspace
	return workspace, nil
}

// WriteDocument writes a text document with one form feed between pages
func (tf *TUITestFramework) WriteDocument(name string, pages ...string) (string, error) {
	path := filepath.Join(tf.workspace, name)
	if err := os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteConfig writes config.toml where the app looks for it
func (tf *TUITestFramework) WriteConfig(contents string) error {
	dir := filepath.Join(tf.workspace, "pagewise")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), []byte(contents), 0644)
}
