package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-contentbind/pkg/config"
	"github.com/goliatone/go-contentbind/pkg/contentful"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/logging"
	"github.com/goliatone/go-contentbind/pkg/orchestrator"
)

const stdio = "-"

type rootOptions struct {
	verbosity  int
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "contentbind",
		Short: "Fill HTML templates with content from a headless CMS",
		Long: `contentbind reads an HTML document annotated with data-contentful-* attributes,
fetches the declared lists and entries in a single GraphQL query and writes the
document back with the content bound in place.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity, cmd.ErrOrStderr())
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (CONTENTBIND_* env vars override it)")

	rootCmd.AddCommand(newRenderCmd(opts))
	rootCmd.AddCommand(newQueryCmd(opts))
	return rootCmd
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	var (
		input  string
		output string
		data   string
		strict bool
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Bind content into a document",
		Example: `  contentbind render --input page.html --output out.html
  contentbind render --input page.html --data recorded.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				cfg.Strict = strict
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			fetcher, err := newFetcher(cfg, data)
			if err != nil {
				return err
			}

			orch := orchestrator.New(
				orchestrator.WithLogger(logging.GetLogger("contentbind")),
				orchestrator.WithFetcher(fetcher),
				orchestrator.WithDateFormat(cfg.DateFormat),
				orchestrator.WithStrictTemplates(cfg.Strict),
				orchestrator.WithRand(cfg.Rand()),
			)

			in, closeIn, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeIn()

			var buf bytes.Buffer
			bindErr := orch.BindHTML(cmd.Context(), in, &buf)
			if buf.Len() == 0 && bindErr != nil {
				return bindErr
			}
			if err := writeOutput(cmd, output, buf.Bytes()); err != nil {
				return errors.Join(bindErr, err)
			}
			return bindErr
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", stdio, "HTML document to bind (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", stdio, "where to write the bound document (- for stdout)")
	cmd.Flags().StringVar(&data, "data", "", "recorded GraphQL response (JSON or YAML) used instead of the CDN")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on malformed rich-text list templates")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for random list order (0 draws from the global source)")
	return cmd
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the GraphQL query a document would send",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			in, closeIn, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeIn()

			doc, err := dom.ParseDocument(in)
			if err != nil {
				return fmt.Errorf("parse document: %w", err)
			}
			query, err := orchestrator.New(
				orchestrator.WithLogger(logging.GetLogger("contentbind")),
				orchestrator.WithStrictTemplates(cfg.Strict),
			).Query(doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), query)
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", stdio, "HTML document to scan (- for stdin)")
	return cmd
}

func loadConfig(cmd *cobra.Command, root *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("verbose") && cfg.Verbosity > 0 {
		logging.SetupLogger(cfg.Verbosity, cmd.ErrOrStderr())
	}
	return cfg, nil
}

func newFetcher(cfg *config.Config, data string) (contentful.Fetcher, error) {
	logger := logging.GetLogger("contentful")
	if data = strings.TrimSpace(data); data != "" {
		return contentful.NewFileFetcher(data, contentful.WithLogger(logger)), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fetcher, err := contentful.NewHTTPFetcher(cfg.HTTPConfig(), contentful.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("url", fetcher.URL()).Msg("Fetching from CDN")
	return fetcher, nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == stdio {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == stdio {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
