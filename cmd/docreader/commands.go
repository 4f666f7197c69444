package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/brunobiangulo/docreader"
	"github.com/brunobiangulo/docreader/legacy"
)

type readFlags struct {
	fileType     string
	output       string
	multimodal   bool
	chunkSize    int
	chunkOverlap int
	cachePath    string
}

func newReadCommand(root *rootFlags) *cobra.Command {
	flags := &readFlags{}
	cmd := &cobra.Command{
		Use:   "read <file|url>...",
		Short: "Read documents and print their text, chunks or JSON response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch flags.output {
			case "text", "chunks", "json":
			default:
				return fmt.Errorf("unknown output %q (want text, chunks or json)", flags.output)
			}
			r, err := openReader(root, func(c *docreader.Config) {
				if flags.cachePath != "" {
					c.CachePath = flags.cachePath
				}
			})
			if err != nil {
				return err
			}
			defer r.Close()
			return runRead(cmd.Context(), r, args, flags, flags.overrides(cmd.Flags()), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&flags.fileType, "type", "t", "", "Document format or MIME type (detected when empty)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "text", "Output: text, chunks or json")
	cmd.Flags().BoolVar(&flags.multimodal, "multimodal", false, "Extract embedded images")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "Chunk size in characters (config default when 0)")
	cmd.Flags().IntVar(&flags.chunkOverlap, "chunk-overlap", 0, "Chunk overlap in characters (config default, scaled to --chunk-size, when unset)")
	cmd.Flags().StringVar(&flags.cachePath, "cache", "", "SQLite result cache path")
	return cmd
}

func openReader(root *rootFlags, mutate func(*docreader.Config)) (docreader.Reader, error) {
	cfg, err := docreader.LoadConfig(root.configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if root.verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if mutate != nil {
		mutate(&cfg)
	}
	return docreader.New(cfg)
}

// overrides turns the read flags into per-request options. Flags left at
// their defaults keep the configured values.
func (f *readFlags) overrides(set *pflag.FlagSet) docreader.RequestOptions {
	opts := docreader.RequestOptions{ChunkSize: f.chunkSize}
	if set.Changed("multimodal") {
		opts.Multimodal = &f.multimodal
	}
	if set.Changed("chunk-overlap") {
		opts.ChunkOverlap = &f.chunkOverlap
	}
	return opts
}

// runRead reads each source in order. A source that fails is reported on
// errOut and the remaining sources are still read.
func runRead(ctx context.Context, r docreader.Reader, sources []string, flags *readFlags, overrides docreader.RequestOptions, out, errOut io.Writer) error {
	var opts []docreader.ReadOption
	if flags.fileType != "" {
		opts = append(opts, docreader.WithFileType(flags.fileType))
	}
	opts = append(opts, docreader.WithOptions(overrides))

	failed := false
	for _, src := range sources {
		var resp docreader.Response
		var err error
		if isURL(src) {
			resp, err = r.ReadURL(ctx, src, opts...)
		} else {
			resp, err = r.ReadFile(ctx, src, opts...)
		}
		if err == nil {
			err = resp.Err
		}
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", src, err)
			failed = true
			continue
		}
		if err := printResponse(out, src, resp, flags.output, len(sources) > 1); err != nil {
			return err
		}
	}
	if failed {
		return errReadFailed
	}
	return nil
}

func printResponse(w io.Writer, src string, resp docreader.Response, output string, many bool) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "chunks":
		for _, c := range resp.Chunks {
			header := fmt.Sprintf("--- chunk %d [%d:%d]", c.Seq, c.Start, c.End)
			if c.Heading != "" {
				header += " " + c.Heading
			}
			if _, err := fmt.Fprintf(w, "%s\n%s\n", header, c.Content); err != nil {
				return err
			}
		}
		return nil
	}
	if many {
		if _, err := fmt.Fprintf(w, "==> %s (%s, %s) <==\n", src, resp.FileType, resp.Method); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, resp.Text)
	return err
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func newToolsCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show which external .doc extraction tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := docreader.LoadConfig(root.configPath, os.Getenv)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			locator := legacy.NewLocator(afero.NewOsFs(), os.Getenv, exec.LookPath, logger)
			printTools(cmd.OutOrStdout(), locator, cfg.ToolOverrides())
			return nil
		},
	}
}

func printTools(w io.Writer, locator *legacy.Locator, overrides map[string]string) {
	for _, t := range []legacy.Tool{legacy.Soffice, legacy.Antiword, legacy.Catdoc} {
		path, ok := locator.Locate(t, overrides)
		if !ok {
			path = "not found (set " + t.EnvVar + ")"
		}
		fmt.Fprintf(w, "%-9s %s\n", t.Name, path)
	}
}

func newFormatsCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported document formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := openReader(root, nil)
			if err != nil {
				return err
			}
			defer r.Close()
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(r.Formats(), "\n"))
			return nil
		},
	}
}
