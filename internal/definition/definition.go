package definition

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/domain"
)

// File — содержимое файла определения задания.
type File struct {
	ModuleName      string  `yaml:"moduleName" json:"moduleName"`
	Description     string  `yaml:"description,omitempty" json:"description,omitempty"`
	Timeout         Seconds `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	CompletionToken string  `yaml:"completionToken,omitempty" json:"completionToken,omitempty"`
	Stacks          []Stack `yaml:"stacks" json:"stacks"`
}

// Stack — один шаг в файле определения.
type Stack struct {
	TemplatePath string            `yaml:"templatePath" json:"templatePath"`
	StackName    string            `yaml:"stackName" json:"stackName"`
	RegionName   string            `yaml:"regionName" json:"regionName"`
	Parameters   map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Seconds — таймаут в секундах. Принимает число или строку с числом.
type Seconds int

// UnmarshalYAML реализует yaml.Unmarshaler.
func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: expected scalar, got %v", ErrInvalidTimeout, value.Tag)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeout, value.Value)
	}
	*s = Seconds(n)
	return nil
}

// Parse разбирает и валидирует определение задания.
//
// name — имя файла, используется в сообщениях об ошибках.
// JSON разбирается тем же декодером, что и YAML.
func Parse(name string, data []byte) (domain.JobRequest, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.JobRequest{}, NewValidationError(name, -1, "", err.Error(), fmt.Errorf("%w: %v", ErrDecode, err))
	}

	if err := Validate(name, &f); err != nil {
		return domain.JobRequest{}, err
	}

	return f.Job(), nil
}

// Validate проверяет обязательные поля и возвращает первую найденную ошибку.
func Validate(name string, f *File) error {
	if f.ModuleName == "" {
		return missingField(name, -1, "moduleName")
	}
	if f.Stacks == nil {
		return missingField(name, -1, "stacks")
	}
	if f.Timeout < 0 {
		return NewValidationError(name, -1, "timeout",
			fmt.Sprintf("timeout must be positive, got %d", f.Timeout), ErrInvalidTimeout)
	}

	for i, s := range f.Stacks {
		switch {
		case s.TemplatePath == "":
			return missingField(name, i, "templatePath")
		case s.StackName == "":
			return missingField(name, i, "stackName")
		case s.RegionName == "":
			return missingField(name, i, "regionName")
		}
	}

	return nil
}

// Job переводит файл в JobRequest с заполненными значениями по умолчанию.
func (f *File) Job() domain.JobRequest {
	job := domain.JobRequest{
		ModuleName:     f.ModuleName,
		Description:    f.Description,
		TimeoutSeconds: int(f.Timeout),
		Steps:          make([]domain.StepRequest, 0, len(f.Stacks)),
	}
	if job.Description == "" {
		job.Description = DefaultDescription(f.ModuleName)
	}
	if job.TimeoutSeconds == 0 {
		job.TimeoutSeconds = domain.DefaultTimeoutSeconds
	}

	for _, s := range f.Stacks {
		params := s.Parameters
		if params == nil {
			params = map[string]string{}
		}
		job.Steps = append(job.Steps, domain.StepRequest{
			TemplateLocation: s.TemplatePath,
			StackName:        s.StackName,
			RegionName:       s.RegionName,
			Parameters:       params,
			CompletionToken:  f.CompletionToken,
		})
	}

	return job
}

// FromJob строит File из JobRequest (обратное преобразование для вывода).
func FromJob(job domain.JobRequest) File {
	f := File{
		ModuleName:      job.ModuleName,
		Description:     job.Description,
		Timeout:         Seconds(job.Timeout()),
		CompletionToken: job.CompletionToken(),
		Stacks:          make([]Stack, 0, len(job.Steps)),
	}
	for _, s := range job.Steps {
		f.Stacks = append(f.Stacks, Stack{
			TemplatePath: s.TemplateLocation,
			StackName:    s.StackName,
			RegionName:   s.RegionName,
			Parameters:   s.Parameters,
		})
	}
	return f
}

// DefaultDescription возвращает описание задания по умолчанию.
func DefaultDescription(module string) string {
	return fmt.Sprintf("Creates the %s environment", module)
}
