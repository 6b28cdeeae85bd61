package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления заданиями через API.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage deployment jobs",
	}

	cmd.AddCommand(
		newJobSubmitCmd(clientFn, outputFn),
		newJobListCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobStepsCmd(clientFn, outputFn),
	)

	return cmd
}

var deploymentHeaders = []string{"ID", "MODULE", "STATUS", "STEPS", "DURATION", "CREATED"}

func deploymentRow(d DeploymentResponse) []string {
	return []string{d.ID, d.Module, d.Status, strconv.Itoa(d.Steps), formatDuration(d.DurationMs), d.CreatedAt}
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a job definition (JSON or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read definition: %w", err)
			}

			d, err := client.SubmitJob(data, contentTypeFor(args[0]))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job submitted: %s", d.ID))
			out.Print(deploymentHeaders, [][]string{deploymentRow(*d)}, d)
			return nil
		},
	}
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListJobsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			opts.Status = strings.ToUpper(opts.Status)
			deployments, err := client.ListJobs(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(deployments))
			for i, d := range deployments {
				rows[i] = deploymentRow(d)
			}

			out.Print(deploymentHeaders, rows, deployments)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED, TIMED_OUT)")
	cmd.Flags().StringVar(&opts.Module, "module", "", "Filter by module name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show deployment details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			d, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Details([][2]string{
				{"ID", d.ID},
				{"Module", d.Module},
				{"Description", d.Description},
				{"Status", d.Status},
				{"Steps", strconv.Itoa(d.Steps)},
				{"Timeout", strconv.Itoa(d.TimeoutSecs) + "s"},
				{"Started", d.StartedAt},
				{"Finished", d.FinishedAt},
				{"Duration", formatDuration(d.DurationMs)},
				{"Error", d.Error},
				{"Created", d.CreatedAt},
			}, d)
			return nil
		},
	}
}

func newJobStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "steps ID",
		Short: "List steps of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.ListJobSteps(args[0])
			if err != nil {
				return err
			}

			headers := []string{"#", "REGION", "STACK", "PHASE", "STATUS", "POLLS", "STACK_STATUS", "ERROR"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				rows[i] = []string{
					strconv.Itoa(s.Index), s.RegionName, s.StackName, s.Phase, s.Status,
					strconv.Itoa(s.Polls), s.StackStatus, s.Error,
				}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}

// contentTypeFor выбирает Content-Type по расширению файла определения.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/json"
	}
}
