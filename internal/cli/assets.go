package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cascade/internal/assets"
)

// NewAssetsCmd создаёт группу команд для работы с шаблонами ассетов.
func NewAssetsCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Prepare synthesized templates for distribution",
	}

	cmd.AddCommand(newAssetsPatchCmd(outputFn))

	return cmd
}

func newAssetsPatchCmd(outputFn func() *Output) *cobra.Command {
	var in, out string
	var bucket, prefix string

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Point asset parameter defaults at the shared asset bucket",
		Long: `Patch rewrites AssetParameters* defaults of a synthesized template.
The bucket comes from --bucket, TEMPLATE_ASSET_BUCKET or S3_ASSET_BUCKET, the key prefix from --prefix or S3_ASSET_PREFIX.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := outputFn()

			opts := assets.OptionsFromEnv(os.LookupEnv)
			if cmd.Flags().Changed("bucket") {
				opts.Bucket = bucket
			}
			if cmd.Flags().Changed("prefix") {
				opts.Prefix = prefix
			}

			report, err := assets.PatchFile(in, out, opts)
			if err != nil {
				return err
			}

			for _, key := range report.Ignored {
				output.Warn(fmt.Sprintf("ignoring %s", key))
			}
			output.Success(fmt.Sprintf("Patched %d parameter(s): %s", len(report.Patched), out))
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", assets.DefaultInput, "Synthesized template")
	cmd.Flags().StringVar(&out, "out", assets.DefaultOutput, "Patched template")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Asset bucket (overrides environment)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Asset key prefix (overrides environment)")

	return cmd
}
