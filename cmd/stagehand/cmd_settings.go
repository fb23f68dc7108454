package main

import (
	"errors"
	"fmt"
	"io/fs"

	"stagehand/internal/settings"

	"github.com/spf13/cobra"
)

var showYAML bool

// settingsCmd groups offline settings commands
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and edit the persisted settings file",
	Long: `Reads and writes the settings file outside a running session.

A running stagehand watches its settings file, so edits made here are
picked up live unless the session has unsaved changes of its own.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	RunE:  settingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Sets one setting and saves the file. Values are validated and clamped
the same way the settings panel does.

Keys:
  display.width display.height display.fullscreen
  audio.master audio.music audio.sfx
  language graphics.quality

Examples:
  stagehand settings set audio.master 65%
  stagehand settings set display.fullscreen on
  stagehand settings set language pt-BR`,
	Args: cobra.ExactArgs(2),
	RunE: settingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE:  settingsReset,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Paths.Settings)
		return nil
	},
}

func settingsShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p := settings.NewPersistence(cfg.Paths.Settings)
	snap, err := p.Read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "No settings file at %s, showing defaults.\n", p.Path())
		snap = settings.Defaults()
	case err != nil:
		return err
	}

	if showYAML {
		data, err := settings.Encode(snap)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	printSnapshot(cmd, snap)
	return nil
}

func printSnapshot(cmd *cobra.Command, snap settings.Snapshot) {
	out := cmd.OutOrStdout()
	for _, k := range settings.Keys {
		fmt.Fprintf(out, "%-20s %s\n", k, snap.Format(k))
	}
}

// settingsSet goes through Load so an old or broken file is migrated or
// reset before the edit.
func settingsSet(cmd *cobra.Command, args []string) error {
	key, err := settings.ParseKey(args[0])
	if err != nil {
		return err
	}
	p := settings.NewPersistence(cfg.Paths.Settings)
	snap, report := p.Load()
	if report.BackupPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Unusable settings file moved to %s\n", report.BackupPath)
	}

	store := settings.NewStore(snap)
	updated, err := store.Set(key, args[1])
	if err != nil {
		return err
	}
	if err := p.Save(updated); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, updated.Format(key))
	return nil
}

func settingsReset(cmd *cobra.Command, args []string) error {
	p := settings.NewPersistence(cfg.Paths.Settings)
	if err := p.Save(settings.Defaults()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings restored to defaults.")
	return nil
}
