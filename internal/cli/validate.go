package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/definition"
	"github.com/shaiso/Cascade/internal/domain"
)

// NewValidateCmd создаёт команду локальной проверки каталога определений.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "validate DIR",
		Short: "Validate job definitions in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			jobs, err := definition.Discover(args[0])
			if err != nil {
				return err
			}

			if asYAML {
				return writeDefinitionsYAML(cmd.OutOrStdout(), jobs)
			}

			files := make([]definition.File, len(jobs))
			rows := make([][]string, len(jobs))
			for i, job := range jobs {
				files[i] = definition.FromJob(job)
				rows[i] = []string{
					job.ModuleName,
					strconv.Itoa(len(job.Steps)),
					strings.Join(jobRegions(job), ","),
					strconv.Itoa(job.Timeout()) + "s",
					job.CompletionToken(),
				}
			}

			out.Print([]string{"MODULE", "STEPS", "REGIONS", "TIMEOUT", "TOKEN"}, rows, files)
			out.Success(fmt.Sprintf("%d job definition(s) valid", len(jobs)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print normalized definitions as YAML documents")

	return cmd
}

// writeDefinitionsYAML печатает определения с подставленными значениями по умолчанию.
func writeDefinitionsYAML(w io.Writer, jobs []domain.JobRequest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	for _, job := range jobs {
		if err := enc.Encode(definition.FromJob(job)); err != nil {
			return fmt.Errorf("encode %s: %w", job.ModuleName, err)
		}
	}
	return nil
}

// jobRegions возвращает регионы задания без повторов.
func jobRegions(job domain.JobRequest) []string {
	seen := make(map[string]bool, len(job.Steps))
	var regions []string
	for _, s := range job.Steps {
		if !seen[s.RegionName] {
			seen[s.RegionName] = true
			regions = append(regions, s.RegionName)
		}
	}
	sort.Strings(regions)
	return regions
}
