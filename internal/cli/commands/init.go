package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize leaplint configuration",
		Long: `Initialize leaplint in a project directory.

This creates:
  - leaplint.toml configuration file
  - .gitignore entry for the .leaplint/ state directory

Use --example to also write a jaffle shop manifest with documentation gaps
to try check, fix and doctor on.`,
		Example: `  # Initialize in current directory
  leaplint init

  # Initialize with a working example manifest
  leaplint init --example

  # Initialize in a new directory
  leaplint init my-project --example

  # Force overwrite existing config
  leaplint init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode := output.ModeAuto
			if cfg := config.FromContext(cmd.Context()); cfg != nil {
				mode = output.Mode(cfg.Output)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Also create an example manifest")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.FileNameTOML)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.FileNameTOML)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}
	if len(groups["project"]) > 0 {
		r.Println("")
		r.Header(2, "Project")
		for _, f := range groups["project"] {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	r.Success("leaplint initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "example" {
		r.Println("  leaplint check    Run the project rules")
		r.Println("  leaplint fix      Preview inherited column descriptions")
		r.Println("  leaplint doctor   Get a project health report")
		return nil
	}
	r.Println("  1. Export your project manifest to manifest.yaml")
	r.Println("  2. Run 'leaplint check' to run the project rules")
	r.Println("  3. Run 'leaplint rules' to see what is checked")
	return nil
}
