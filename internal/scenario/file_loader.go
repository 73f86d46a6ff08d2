package scenario

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"simulation-server/internal/models"

	"go.uber.org/zap"
)

var fileExtensions = []string{".json", ".yaml", ".yml"}

// FileLoader читает сценарии из каталога: <id>.json, <id>.yaml или <id>.yml.
type FileLoader struct {
	fsys   fs.FS
	logger *zap.Logger
}

// NewFileLoader создает загрузчик для каталога dir.
func NewFileLoader(dir string, logger *zap.Logger) *FileLoader {
	return NewFSLoader(os.DirFS(dir), logger)
}

// NewFSLoader создает загрузчик поверх произвольной файловой системы.
func NewFSLoader(fsys fs.FS, logger *zap.Logger) *FileLoader {
	return &FileLoader{fsys: fsys, logger: logger.Named("FileScenarioLoader")}
}

// Load читает и разбирает сценарий по идентификатору.
func (l *FileLoader) Load(ctx context.Context, id string) (*models.Scenario, error) {
	// Такой идентификатор не может соответствовать ни одному файлу
	if ValidateID(id) != nil {
		return nil, fmt.Errorf("%w: '%s'", models.ErrScenarioNotFound, id)
	}
	for _, ext := range fileExtensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := id + ext
		data, err := fs.ReadFile(l.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			l.logger.Error("Failed to read scenario file", zap.String("file", name), zap.Error(err))
			return nil, fmt.Errorf("read scenario file %s: %w", name, err)
		}
		format, _ := FormatFromExt(ext)
		sc, err := Parse(id, data, format)
		if err != nil {
			l.logger.Warn("Malformed scenario file", zap.String("file", name), zap.Error(err))
			return nil, err
		}
		l.logger.Debug("Scenario loaded from file", zap.String("scenario_id", id), zap.String("file", name))
		return sc, nil
	}
	return nil, fmt.Errorf("%w: '%s'", models.ErrScenarioNotFound, id)
}

// List возвращает краткие описания всех корректных сценариев каталога.
// Некорректные файлы пропускаются с предупреждением.
func (l *FileLoader) List(ctx context.Context) ([]models.ScenarioSummary, error) {
	ids, err := l.IDs()
	if err != nil {
		return nil, err
	}
	summaries := make([]models.ScenarioSummary, 0, len(ids))
	for _, id := range ids {
		sc, err := l.Load(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrMalformedScenario) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, sc.Summary())
	}
	return summaries, nil
}

// IDs возвращает отсортированный список идентификаторов сценариев в каталоге.
func (l *FileLoader) IDs() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if _, ok := FormatFromExt(ext); !ok {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if ValidateID(id) != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ParseFile читает и разбирает один файл сценария по пути.
// Идентификатор берется из имени файла.
func ParseFile(path string) (*models.Scenario, error) {
	ext := filepath.Ext(path)
	format, ok := FormatFromExt(ext)
	if !ok {
		return nil, fmt.Errorf("unsupported scenario file extension '%s'", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file %s: %w", path, err)
	}
	return Parse(strings.TrimSuffix(filepath.Base(path), ext), data, format)
}
