// Package artifacts stores files produced by functional test runs.
package artifacts

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	"github.com/interzonedev/spunkfix/configs"
	"github.com/pkg/errors"
)

const (
	defaultName  = "unnamed"
	dataDirName  = "data"
	artifactsDir = "artifacts"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ErrNotImage is returned when screenshot data is not a recognised image.
var ErrNotImage = errors.New("data is not an image")

// sanitizeName turns a test name like "TestLogin/happy path" into a string
// safe to use as a single path element.
func sanitizeName(name string) string {
	cleaned := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if cleaned == "" {
		return defaultName
	}
	return cleaned
}

// BaseDir returns the root artifacts directory, creating it if necessary.
// An empty base falls back to $SPUNKFIX_ARTIFACTS_DIR, then ./data/artifacts.
func BaseDir(base string) (string, error) {
	dir := strings.TrimSpace(base)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(configs.EnvArtifactsDir))
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "failed to determine working directory")
		}
		dir = filepath.Join(cwd, dataDirName, artifactsDir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to ensure artifacts dir %s", dir)
	}
	return dir, nil
}

// Dir returns <base>/<runID>/<test name>, creating it if necessary.
func Dir(base, runID, testName string) (string, error) {
	root, err := BaseDir(base)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, sanitizeName(runID), sanitizeName(testName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to ensure test artifacts dir %s", dir)
	}
	return dir, nil
}

// SaveScreenshot writes data to dir under name, with the extension of the
// detected image type, and returns the written path.
func SaveScreenshot(dir, name string, data []byte) (string, error) {
	if !filetype.IsImage(data) {
		return "", ErrNotImage
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return "", errors.Wrap(err, "detect screenshot type")
	}

	path := filepath.Join(dir, sanitizeName(name)+"."+kind.Extension)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write screenshot %s", path)
	}
	return path, nil
}
