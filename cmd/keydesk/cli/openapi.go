package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/openapi"
)

func newOpenAPICmd(a *app) *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  "Generate the OpenAPI 3.1 document for the keydesk JSON API (the same document served at /openapi.json).",
		Example: `  keydesk openapi
  keydesk openapi --base-url https://keys.example.com -o openapi.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				baseURL = cfg.PublicURL()
			}

			data, err := json.MarshalIndent(openapi.Generate(baseURL, a.version), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal openapi: %w", err)
			}
			data = append(data, '\n')

			if outputFile != "" {
				if err := os.WriteFile(outputFile, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", outputFile, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outputFile)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL in the document (default: server.public_url or derived from host/port)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")

	return cmd
}
