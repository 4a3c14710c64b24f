package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"howett.net/plist"

	"github.com/go-fetchassets/pkg/config"
	"github.com/go-fetchassets/pkg/download"
	"github.com/go-fetchassets/pkg/utils"
)

type options struct {
	archive            string
	url                string
	destination        string
	outputDir          string
	overwrite          bool
	deleteAfterExtract bool
	output             string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "generateconfig",
		Short: "Hash a local asset archive and emit a fetch-assets plist overlay",
		Long: `generateconfig computes the SHA-256 of a locally built asset archive and
writes a plist overlay that points fetch-assets at its published copy.
Save the result as ./` + config.DefaultProfileName + ` or pass it with --config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, size, err := buildAsset(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.output != "" {
				if err := utils.EnsureDirForFile(opts.output); err != nil {
					return err
				}
				f, err := os.Create(opts.output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", opts.output, err)
				}
				defer f.Close()
				out = f
			}

			if err := writeOverlay(out, asset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", opts.archive, asset.Hash, humanize.Bytes(uint64(size)))
			if opts.output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Overlay written to %s\n", opts.output)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.archive, "archive", "", "Required: local copy of the asset archive to hash")
	f.StringVar(&opts.url, "url", config.DefaultAssetURL, "URL the archive is published at")
	f.StringVar(&opts.destination, "destination", config.DefaultDestination, "Where fetch-assets stores the download")
	f.StringVar(&opts.outputDir, "output-dir", config.DefaultOutputDir, "Directory fetch-assets extracts into")
	f.BoolVar(&opts.overwrite, "overwrite", true, "Value for the Overwrite key")
	f.BoolVar(&opts.deleteAfterExtract, "delete-after-extract", true, "Value for the DeleteAfterExtract key")
	f.StringVar(&opts.output, "output", "", "Write the overlay to this file instead of stdout")
	cmd.MarkFlagRequired("archive")

	return cmd
}

// buildAsset hashes the archive and returns the validated overlay contents
// along with the archive size
func buildAsset(opts *options) (config.Asset, int64, error) {
	info, err := os.Stat(opts.archive)
	if err != nil {
		return config.Asset{}, 0, fmt.Errorf("failed to stat archive: %w", err)
	}
	if !info.Mode().IsRegular() {
		return config.Asset{}, 0, fmt.Errorf("%s is not a regular file", opts.archive)
	}

	hash, err := download.FileHash(opts.archive)
	if err != nil {
		return config.Asset{}, 0, err
	}

	asset := config.Asset{
		URL:                opts.url,
		File:               opts.destination,
		Hash:               hash,
		OutputDir:          opts.outputDir,
		Overwrite:          opts.overwrite,
		DeleteAfterExtract: opts.deleteAfterExtract,
	}
	if err := config.ValidateAsset(asset); err != nil {
		return config.Asset{}, 0, err
	}
	return asset, info.Size(), nil
}

func writeOverlay(w io.Writer, asset config.Asset) error {
	data, err := plist.MarshalIndent(asset, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
