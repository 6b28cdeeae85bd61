package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shaiso/Cascade/internal/domain"
)

// extensions — расширения файлов определений.
var extensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// Discover загружает все определения из каталога (без рекурсии).
//
// Файлы читаются в лексическом порядке имён; результат в том же порядке.
// Повторяющийся moduleName — ошибка.
func Discover(dir string) ([]domain.JobRequest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read job definitions dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	jobs := make([]domain.JobRequest, 0, len(names))
	seen := make(map[string]string, len(names))

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		job, err := Parse(path, data)
		if err != nil {
			return nil, err
		}

		if prev, ok := seen[job.ModuleName]; ok {
			return nil, NewValidationError(path, -1, "moduleName",
				fmt.Sprintf("module %s already declared in %s", job.ModuleName, prev), ErrDuplicateModule)
		}
		seen[job.ModuleName] = path

		jobs = append(jobs, job)
	}

	return jobs, nil
}
