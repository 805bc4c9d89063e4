package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"conveyor/internal/api"
	"conveyor/internal/pipeline"
)

// importDocument is the YAML shape accepted by `conveyor import`.
type importDocument struct {
	Name  string       `yaml:"name"`
	Steps []importStep `yaml:"steps"`
}

type importStep struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Payload map[string]any `yaml:"payload"`
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var nameOverride string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a pipeline configuration from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := loadDraft(args[0])
			if err != nil {
				return err
			}
			if name := strings.TrimSpace(nameOverride); name != "" {
				draft.Name = name
			}

			stored, err := ctx.apiClient().CreateConfiguration(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported configuration %q (%s) with %d steps\n",
				stored.Name, stored.ID, len(stored.Steps))
			return nil
		},
	}

	cmd.Flags().StringVar(&nameOverride, "name", "", "Override the configuration name from the file")
	return cmd
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a configuration with the default step sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template := pipeline.NewDefaultConfiguration(args[0])
			draft := api.ConfigurationDraft{Name: template.Name, Steps: template.Steps}

			stored, err := ctx.apiClient().CreateConfiguration(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created configuration %q (%s) with %d steps\n",
				stored.Name, stored.ID, len(stored.Steps))
			return nil
		},
	}
}

func loadDraft(path string) (api.ConfigurationDraft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return api.ConfigurationDraft{}, fmt.Errorf("read import file: %w", err)
	}

	var doc importDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return api.ConfigurationDraft{}, fmt.Errorf("parse import file: %w", err)
	}

	draft := api.ConfigurationDraft{Name: strings.TrimSpace(doc.Name)}
	for _, entry := range doc.Steps {
		id := pipeline.NormalizeStepID(entry.ID)
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = pipeline.DisplayName(id)
		}
		step := pipeline.Step{
			ID:     id,
			Name:   name,
			Status: pipeline.StepPending,
		}
		if len(entry.Payload) > 0 {
			step.Payload = pipeline.Payload(entry.Payload)
		}
		draft.Steps = append(draft.Steps, step)
	}

	if err := draft.Validate(); err != nil {
		return api.ConfigurationDraft{}, err
	}
	return draft, nil
}
