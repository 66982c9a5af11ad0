package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"linkstash/pkg/export"
	"linkstash/pkg/logger"
	"linkstash/pkg/models"
	"linkstash/pkg/store"
	"linkstash/pkg/ui"
	"linkstash/pkg/ui/tui"
)

var (
	listFilter    string
	listPlatform  string
	deleteAllYes  bool
	deleteYes     bool
	exportFormat  string
	exportOutput  string
	exportPlatfms []string
	exportNames   []string
)

var collectionsCmd = &cobra.Command{
	Use:     "collections",
	Aliases: []string{"col"},
	Short:   "Inspect and manage stored collections",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections, newest first",
	Example: `  linkstash collections list
  linkstash collections list --platform tiktok
  linkstash collections list --filter recipes`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCollectionCmd = &cobra.Command{
	Use:   "show <platform> <name>",
	Short: "Print the links stored in one collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runShowCollection,
}

var renameCmd = &cobra.Command{
	Use:   "rename <platform> <old> <new>",
	Short: "Rename a collection, merging into the target if it exists",
	Args:  cobra.ExactArgs(3),
	RunE:  runRename,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <platform> <name>",
	Short: "Delete one collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every collection on every platform",
	Args:  cobra.NoArgs,
	RunE:  runDeleteAll,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export collections as CSV or JSON",
	Long: `Export collections as CSV or JSON.

The output defaults to a timestamped file in the configured export
directory. Use --output - to write to stdout.`,
	Example: `  linkstash collections export
  linkstash collections export --format json --output saved.json
  linkstash collections export --platform instagram --collection someone -o -`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(listCmd, showCollectionCmd, renameCmd, deleteCmd, deleteAllCmd, exportCmd)

	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "fuzzy filter on platform/name")
	listCmd.Flags().StringVarP(&listPlatform, "platform", "p", "", "only list one platform")

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
	deleteAllCmd.Flags().BoolVarP(&deleteAllYes, "yes", "y", false, "do not ask for confirmation")

	exportCmd.Flags().StringVar(&exportFormat, "format", "", "export format (csv, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, directory or - for stdout")
	exportCmd.Flags().StringSliceVarP(&exportPlatfms, "platform", "p", nil, "only export these platforms")
	exportCmd.Flags().StringSliceVar(&exportNames, "collection", nil, "only export these collections")
}

func openCollections(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(changedFlags(cmd), nil)
	if err != nil {
		return nil, err
	}
	return openStore(cmd.Context(), cfg)
}

func parsePlatformArg(s string) (models.Platform, error) {
	p, err := models.ParsePlatform(strings.ToLower(s))
	if err != nil {
		return "", fmt.Errorf("%w (instagram, tiktok, youtube, pinterest)", err)
	}
	return p, nil
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openCollections(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	entries := tui.Entries(st.GetAllCollections())
	if listPlatform != "" {
		p, err := parsePlatformArg(listPlatform)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.Platform == p {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	entries = tui.FilterEntries(entries, listFilter)

	if len(entries) == 0 {
		ui.PrintInfo("Collections", "none")
		return nil
	}
	for _, e := range entries {
		meta := string(e.Meta.Type)
		if e.Meta.Handle != "" && e.Meta.Handle != e.Name {
			meta += " @" + e.Meta.Handle
		}
		fmt.Printf("%-10s %-40s %6d  %s\n", e.Platform, e.Name, e.Count, ui.Dim(meta))
	}
	return nil
}

func runShowCollection(cmd *cobra.Command, args []string) error {
	p, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}
	st, err := openCollections(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, ok := st.Meta(p, args[1])
	if !ok {
		return fmt.Errorf("no %s collection named %q", p, args[1])
	}
	bookmarks := st.Bookmarks(p, args[1])
	ui.PrintInfo(fmt.Sprintf("%s/%s", p, args[1]), fmt.Sprintf("%s, %d links", meta.Type, len(bookmarks)))
	for _, b := range bookmarks {
		fmt.Println(b.URL)
	}
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	p, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}
	st, err := openCollections(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	merging := false
	if _, ok := st.Meta(p, args[2]); ok && args[1] != args[2] {
		merging = true
	}
	if err := st.RenameCollection(p, args[1], args[2]); err != nil {
		return err
	}
	if merging {
		ui.PrintSuccess(fmt.Sprintf("Merged %s/%s into %s/%s", p, args[1], p, args[2]))
	} else {
		ui.PrintSuccess(fmt.Sprintf("Renamed %s/%s to %s", p, args[1], args[2]))
	}
	return persistCheck(st)
}

func runDelete(cmd *cobra.Command, args []string) error {
	p, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}
	st, err := openCollections(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if !deleteYes {
		ok, err := confirm(fmt.Sprintf("Delete %s/%s with %d links?", p, args[1], len(st.Bookmarks(p, args[1]))))
		if err != nil || !ok {
			return err
		}
	}
	if err := st.DeleteCollection(p, args[1]); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Deleted %s/%s", p, args[1]))
	return persistCheck(st)
}

func runDeleteAll(cmd *cobra.Command, args []string) error {
	st, err := openCollections(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	snap := st.GetAllCollections()
	if !deleteAllYes {
		ok, err := confirm(fmt.Sprintf("Delete all %d collections (%d links)?", len(tui.Entries(snap)), snap.Bookmarks()))
		if err != nil || !ok {
			return err
		}
	}
	st.DeleteAll()
	ui.PrintSuccess("Deleted all collections")
	return persistCheck(st)
}

func runExport(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd)
	if cmd.Flags().Changed("format") {
		flags["format"] = exportFormat
	}
	cfg, err := loadConfig(flags, nil)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	filter := export.Filter{Collections: exportNames}
	for _, s := range exportPlatfms {
		p, err := parsePlatformArg(s)
		if err != nil {
			return err
		}
		filter.Platforms = append(filter.Platforms, p)
	}

	format := strings.ToLower(cfg.Export.Format)
	snap := st.GetAllCollections()
	if exportOutput == "-" {
		return export.Encode(os.Stdout, format, export.Collections(snap, filter))
	}

	path := exportOutput
	if path == "" {
		path = cfg.Export.Directory
	}
	if info, err := os.Stat(path); (err == nil && info.IsDir()) || path == "" {
		path = filepath.Join(path, export.DefaultName(format, time.Now()))
	}

	count, err := export.Write(path, format, snap, filter)
	if err != nil {
		return err
	}
	logger.GetLogger().InfoWithFields("export written", map[string]interface{}{
		"path":   path,
		"format": format,
		"links":  count,
	})
	ui.PrintSuccess(fmt.Sprintf("Exported %d links to %s", count, path))
	return nil
}

// confirm asks a yes/no question on an interactive terminal. Without a
// terminal it refuses, so scripts have to pass --yes.
func confirm(question string) (bool, error) {
	if !isTerminal(os.Stdin) {
		return false, fmt.Errorf("refusing to delete without a terminal, pass --yes")
	}
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		ui.PrintInfo("Aborted", "nothing deleted")
		return false, nil
	}
	return true, nil
}

func persistCheck(st *store.Store) error {
	if n := st.PersistFailures(); n > 0 {
		return fmt.Errorf("change applied in memory but %d writes failed, see the log", n)
	}
	return nil
}
