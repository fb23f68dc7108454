package main

import (
	"context"
	"fmt"

	"stagehand/internal/assets"

	"github.com/spf13/cobra"
)

var fetchAssets bool

// manifestCmd groups asset manifest commands
var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Asset manifest commands",
}

var manifestCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate an asset manifest",
	Long: `Parses the manifest and lists its bundles. With --fetch every asset is
read from the assets root on the loader's worker pool and failures are
reported per bundle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: manifestCheck,
}

func manifestCheck(cmd *cobra.Command, args []string) error {
	path := cfg.Paths.Manifest
	if len(args) == 1 {
		path = args[0]
	}
	m, err := assets.LoadManifest(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d bundles\n", path, m.Len())

	var loader *assets.Loader
	if fetchAssets {
		loader = assets.NewLoader(&assets.DirFetcher{Root: cfg.Paths.AssetsRoot}, cfg.GetWorkers())
	}

	broken := 0
	for _, tag := range m.Tags() {
		req, err := m.Request(tag)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-16s %d assets, %d required\n", tag, len(req.Assets), len(req.Required()))
		if loader == nil {
			continue
		}

		loader.Start(context.Background(), req)
		loader.Wait()
		for _, a := range req.Assets {
			if loader.Status(a.Ref) != assets.Failed {
				continue
			}
			kind := "optional"
			if a.Required {
				kind = "required"
				broken++
			}
			fmt.Fprintf(out, "    missing %s asset %s\n", kind, a.Ref)
		}
	}
	if broken > 0 {
		return fmt.Errorf("%d required assets could not be read", broken)
	}
	return nil
}
