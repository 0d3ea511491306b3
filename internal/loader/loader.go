// Package loader reads sample payloads from disk or stdin and dry-runs
// batches of them concurrently.
package loader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/logging"
	"github.com/sdpower/connector-go/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StdinPath reads the payload from standard input
const StdinPath = "-"

// DryRunner is satisfied by *calculator.Calculator
type DryRunner interface {
	DryRun(manifest types.Manifest, rawPayload string) (*types.DryRunResult, error)
}

type Loader struct {
	maxWorkers int
	stdin      io.Reader
}

func New(maxWorkers int) *Loader {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Loader{
		maxWorkers: maxWorkers,
		stdin:      os.Stdin,
	}
}

// SetStdin replaces the reader used for the "-" path
func (l *Loader) SetStdin(r io.Reader) {
	l.stdin = r
}

// ReadPayload returns the raw payload text at path, or stdin for "-".
func (l *Loader) ReadPayload(path string) (string, error) {
	if path == StdinPath {
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return "", types.LoaderError{Path: "stdin", Err: err}
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", types.LoaderError{Path: path, Err: err}
	}
	return string(data), nil
}

// ExpandPaths replaces every directory argument with the .json files it
// directly contains, sorted by name. Files and "-" pass through unchanged;
// "-" may appear at most once.
func (l *Loader) ExpandPaths(paths []string) ([]string, error) {
	var expanded []string
	seenStdin := false
	for _, path := range paths {
		if path == StdinPath {
			if seenStdin {
				return nil, errors.WithHint(types.ErrStdinRepeated, "pipe a single payload, or save the others to files")
			}
			seenStdin = true
			expanded = append(expanded, path)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, types.LoaderError{Path: path, Err: err}
		}
		if !info.IsDir() {
			expanded = append(expanded, path)
			continue
		}

		found, err := findJSONFiles(path)
		if err != nil {
			return nil, types.LoaderError{Path: path, Err: err}
		}
		logging.Debug("expanded payload directory",
			zap.String("dir", path),
			zap.Int("files", len(found)))
		expanded = append(expanded, found...)
	}

	if len(expanded) == 0 {
		return nil, errors.WithHint(types.ErrNoPayloads, "pass payload files or a directory holding .json payloads")
	}
	return expanded, nil
}

func findJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// RunBatch dry-runs every payload against one manifest with at most
// maxWorkers runs in flight. Results keep the order of paths. A failing
// payload is reported in its BatchResult and does not stop the others; only
// cancellation of ctx returns an error. Stdin is read once, before any run
// starts, and shared by every "-" entry.
func (l *Loader) RunBatch(ctx context.Context, runner DryRunner, manifest types.Manifest, paths []string) ([]types.BatchResult, error) {
	results := make([]types.BatchResult, len(paths))

	var stdinPayload string
	var stdinErr error
	for _, path := range paths {
		if path == StdinPath {
			stdinPayload, stdinErr = l.ReadPayload(StdinPath)
			break
		}
	}
	read := func(path string) (string, error) {
		if path == StdinPath {
			return stdinPayload, stdinErr
		}
		return l.ReadPayload(path)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxWorkers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = runOne(runner, manifest, path, read)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runOne(runner DryRunner, manifest types.Manifest, path string, read func(string) (string, error)) types.BatchResult {
	res := types.BatchResult{Path: path}

	payload, err := read(path)
	if err == nil {
		res.Result, err = runner.DryRun(manifest, payload)
	}
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		logging.Warn("dry-run failed",
			zap.String("path", path),
			zap.Error(err))
	}
	return res
}
