package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickyhof/CommitView"
	"github.com/nickyhof/CommitView/attrs"
	"github.com/nickyhof/CommitView/config"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/db"
	"github.com/nickyhof/CommitView/ps"
	"github.com/nickyhof/CommitView/viewer"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

var errNoData = errors.New("no dataset loaded (use .load <path>)")

// CLI holds the CLI state
type CLI struct {
	instance    *CommitView.Instance
	viewer      *viewer.Viewer
	out         io.Writer
	history     []string
	historyFile string
	dataset     string // path of the loaded dataset
}

var (
	configPath string
	layoutsDir string
	gitURL     string
	engineKind string
	scriptFile string
	userName   string
	userEmail  string

	rootCmd = &cobra.Command{
		Use:          "commitview [dataset]",
		Short:        "Explore a dataset with pivots, filters and aggregates",
		Version:      Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runCLI,
	}
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&layoutsDir, "layouts-dir", "", "Directory of the layout repository (memory if empty)")
	flags.StringVar(&gitURL, "git-url", "", "Git URL the layout repository is cloned from")
	flags.StringVar(&engineKind, "engine", "", "Table engine: memory or duckdb")
	flags.StringVarP(&scriptFile, "script", "f", "", "File of commands to run (non-interactive)")
	flags.StringVar(&userName, "name", "CommitView", "Author name for saved layouts")
	flags.StringVar(&userEmail, "email", "cli@commitview.local", "Author email for saved layouts")
}

func runCLI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("layouts-dir") {
		cfg.Layouts.Dir = layoutsDir
	}
	if cmd.Flags().Changed("git-url") {
		cfg.Layouts.GitURL = gitURL
	}
	if cmd.Flags().Changed("engine") {
		cfg.Engine.Kind = engineKind
	}
	if len(args) == 1 {
		cfg.Data.Path = args[0]
	}
	// Keep log lines out of the rendered grid.
	if !cmd.Flags().Changed("config") && os.Getenv("COMMITVIEW_LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	printBanner()
	if cfg.Layouts.Dir == "" {
		fmt.Printf("%sUsing memory layout store%s\n", SuccessColor, ResetColor)
	} else {
		fmt.Printf("%sUsing layout repository: %s%s\n", SuccessColor, cfg.Layouts.Dir, ResetColor)
	}

	instance, err := CommitView.OpenConfig(cfg)
	if err != nil {
		return err
	}
	defer instance.Close()
	instance.Identity = core.Identity{Name: userName, Email: userEmail}

	cli := NewCLI(instance, os.Stdout)
	defer cli.Close()
	cli.historyFile = getHistoryPath()
	cli.loadHistory()

	ctx := cmd.Context()
	if cfg.Data.Path != "" {
		if err := cli.load(ctx, cfg.Data.Path, cfg.Data.Index); err != nil {
			cli.errorf("%v", err)
		}
	}

	if scriptFile != "" {
		return cli.importFile(ctx, scriptFile)
	}
	cli.run(ctx, os.Stdin)
	return nil
}

// NewCLI creates a CLI whose viewer renders grids to out.
func NewCLI(instance *CommitView.Instance, out io.Writer) *CLI {
	v := instance.NewViewer(viewer.WithOutput(out))
	v.SetAttribute(attrs.View, "grid")
	return &CLI{
		instance: instance,
		viewer:   v,
		out:      out,
		history:  make([]string, 0),
	}
}

// Close releases the viewer.
func (cli *CLI) Close() error {
	return cli.viewer.Delete()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("CommitView v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Pivot, filter and save data views   ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run(ctx context.Context, in io.Reader) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(cli.out, cli.getPrompt())

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			cli.saveHistory()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		cli.addToHistory(input)

		if cli.handleCommand(ctx, input) {
			cli.saveHistory()
			return
		}
	}
}

func (cli *CLI) getPrompt() string {
	dataPart := ""
	if cli.dataset != "" {
		dataPart = fmt.Sprintf(" (%s)", filepath.Base(cli.dataset))
	}
	return fmt.Sprintf("%scommitview%s>%s ", PromptColor, dataPart, ResetColor)
}

func (cli *CLI) errorf(format string, args ...any) {
	fmt.Fprintf(cli.out, "%s✗ "+format+"%s\n", append(append([]any{ErrorColor}, args...), ResetColor)...)
}

func (cli *CLI) successf(format string, args ...any) {
	fmt.Fprintf(cli.out, "%s✓ "+format+"%s\n", append(append([]any{SuccessColor}, args...), ResetColor)...)
}

// pivotTargets maps the short list names accepted by .pivot and .unpivot.
var pivotTargets = map[string]string{
	"row":    attrs.RowPivots,
	"column": attrs.ColumnPivots,
	"col":    attrs.ColumnPivots,
	"sort":   attrs.Sort,
}

func pivotTarget(parts []string, at int) (string, error) {
	if len(parts) <= at {
		return attrs.RowPivots, nil
	}
	if target, ok := pivotTargets[strings.ToLower(parts[at])]; ok {
		return target, nil
	}
	return "", fmt.Errorf("unknown pivot list %q (row, column or sort)", parts[at])
}

// handleCommand runs one command line and reports whether the CLI should
// exit. Command names are case-insensitive; arguments are not.
func (cli *CLI) handleCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

	if !strings.HasPrefix(cmd, ".") {
		cli.errorf("Unknown input: commands start with '.' (type .help for commands)")
		return false
	}

	var err error
	switch cmd {
	case ".quit", ".exit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".load":
		if len(parts) < 2 {
			cli.errorf("Usage: .load <path> [index column]")
			return false
		}
		index := ""
		if len(parts) > 2 {
			index = parts[2]
		}
		err = cli.load(ctx, parts[1], index)

	case ".append":
		if len(parts) < 2 {
			cli.errorf("Usage: .append <path>")
			return false
		}
		err = cli.appendData(ctx, parts[1])

	case ".set":
		if len(parts) < 2 {
			cli.errorf("Usage: .set <attribute> [value]")
			return false
		}
		value := strings.TrimSpace(strings.TrimPrefix(rest, parts[1]))
		cli.viewer.SetAttribute(parts[1], value)

	case ".unset":
		if len(parts) < 2 {
			cli.errorf("Usage: .unset <attribute>")
			return false
		}
		cli.viewer.RemoveAttribute(parts[1])

	case ".filter":
		err = cli.viewer.SetFilter(rest)

	case ".toggle":
		if len(parts) < 2 {
			cli.errorf("Usage: .toggle <column> [shift]")
			return false
		}
		err = cli.viewer.ToggleColumn(parts[1], len(parts) > 2 && strings.EqualFold(parts[2], "shift"))

	case ".pivot":
		if len(parts) < 2 {
			cli.errorf("Usage: .pivot <column> [row|column|sort]")
			return false
		}
		var target string
		if target, err = pivotTarget(parts, 2); err == nil {
			err = cli.viewer.DropColumn(target, parts[1])
		}

	case ".unpivot":
		if len(parts) < 2 {
			cli.errorf("Usage: .unpivot <position> [row|column|sort]")
			return false
		}
		idx, convErr := strconv.Atoi(parts[1])
		if convErr != nil {
			cli.errorf("Invalid position %q", parts[1])
			return false
		}
		var target string
		if target, err = pivotTarget(parts, 2); err == nil {
			err = cli.viewer.RemoveAt(target, idx)
		}

	case ".sort":
		if len(parts) < 2 {
			cli.errorf("Usage: .sort <column>")
			return false
		}
		err = cli.viewer.DropColumn(attrs.Sort, parts[1])

	case ".agg":
		if len(parts) < 3 {
			cli.errorf("Usage: .agg <column> <operator>")
			return false
		}
		err = cli.viewer.SetAggregate(parts[1], strings.TrimSpace(strings.TrimPrefix(rest, parts[1])))

	case ".view":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "Plugins: %s\n", strings.Join(cli.viewer.Registry().Names(), ", "))
			return false
		}
		if _, err = cli.viewer.Registry().Get(parts[1]); err == nil {
			cli.viewer.SetAttribute(attrs.View, parts[1])
		}

	case ".render":
		err = cli.render(ctx)

	case ".settings":
		err = cli.viewer.ToggleSettings(ctx)

	case ".save":
		if len(parts) < 2 {
			cli.errorf("Usage: .save <layout>")
			return false
		}
		var txn ps.Transaction
		if txn, err = cli.instance.SaveLayout(cli.viewer, parts[1]); err == nil {
			cli.successf("Saved layout %s (%s)", parts[1], shortID(txn.Id))
		}

	case ".restore":
		if len(parts) < 2 {
			cli.errorf("Usage: .restore <layout> [revision]")
			return false
		}
		rev := ""
		if len(parts) > 2 {
			rev = parts[2]
		}
		err = cli.instance.RestoreLayout(ctx, cli.viewer, parts[1], rev)

	case ".layouts":
		err = cli.showLayouts()

	case ".history":
		if len(parts) > 1 {
			err = cli.showLayoutHistory(parts[1])
		} else {
			cli.printHistory()
		}

	case ".show":
		cli.showAttributes()

	case ".export":
		if len(parts) < 2 {
			cli.errorf("Usage: .export <path.csv|path.json>")
			return false
		}
		err = cli.export(ctx, parts[1])

	case ".import":
		if len(parts) < 2 {
			cli.errorf("Usage: .import <file>")
			return false
		}
		err = cli.importFile(ctx, parts[1])

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "CommitView version %s\n", Version)

	default:
		cli.errorf("Unknown command: %s (type .help for commands)", parts[0])
		return false
	}

	if err != nil {
		cli.errorf("Error: %v", err)
	}
	return false
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sData:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .load <path> [index]       Load a CSV or JSON file, http(s) or s3 URL")
	fmt.Fprintln(cli.out, "  .append <path>             Add rows to the loaded table")
	fmt.Fprintln(cli.out, "  .export <path>             Write the current view as CSV or JSON")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sView:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .filter <expr>             Filter rows, e.g. qty > 2 & region == north")
	fmt.Fprintln(cli.out, "  .toggle <col> [shift]      Show or hide a column")
	fmt.Fprintln(cli.out, "  .pivot <col> [row|column]  Add a row or column pivot")
	fmt.Fprintln(cli.out, "  .unpivot <n> [row|column]  Remove the n-th pivot (0-based)")
	fmt.Fprintln(cli.out, "  .sort <col>                Append a sort column")
	fmt.Fprintln(cli.out, "  .agg <col> <op>            Choose the aggregate of a column")
	fmt.Fprintln(cli.out, "  .view [plugin]             Select or list render plugins")
	fmt.Fprintln(cli.out, "  .set <attr> [value]        Set a raw attribute")
	fmt.Fprintln(cli.out, "  .unset <attr>              Remove a raw attribute")
	fmt.Fprintln(cli.out, "  .show                      Show the current attributes")
	fmt.Fprintln(cli.out, "  .render                    Render the view again")
	fmt.Fprintln(cli.out, "  .settings                  Toggle the settings panel")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sLayouts:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .save <name>               Commit the current layout")
	fmt.Fprintln(cli.out, "  .restore <name> [rev]      Restore a layout, optionally as of a revision")
	fmt.Fprintln(cli.out, "  .layouts                   List saved layouts")
	fmt.Fprintln(cli.out, "  .history [name]            Show command history or a layout's commits")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sOther:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .import <file>             Run commands from a file")
	fmt.Fprintln(cli.out, "  .clear                     Clear the screen")
	fmt.Fprintln(cli.out, "  .version                   Show version info")
	fmt.Fprintln(cli.out, "  .help, .quit")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) load(ctx context.Context, path, index string) error {
	data, err := cli.instance.LoadData(ctx, path)
	if err != nil {
		return err
	}
	if index != "" {
		cli.viewer.SetAttribute(attrs.Index, index)
	}
	if err := cli.viewer.Load(ctx, data); err != nil {
		return err
	}
	cli.dataset = path
	cli.successf("Loaded %d rows from %s", data.Len(), path)
	return nil
}

// appendData adds rows to the loaded table, replacing rows with the same
// index value when the table has an index.
func (cli *CLI) appendData(ctx context.Context, path string) error {
	data, err := cli.instance.LoadData(ctx, path)
	if err != nil {
		return err
	}
	if err := cli.viewer.Update(ctx, data); err != nil {
		return err
	}
	if cli.dataset == "" {
		cli.dataset = path
	}
	cli.successf("Appended %d rows from %s", data.Len(), path)
	return nil
}

func (cli *CLI) render(ctx context.Context) error {
	if cli.viewer.View() == nil {
		return errNoData
	}
	return cli.viewer.Render(ctx)
}

func (cli *CLI) export(ctx context.Context, path string) error {
	view := cli.viewer.View()
	if view == nil {
		return errNoData
	}
	if err := db.ExportView(ctx, view, path, cli.instance.S3, nil); err != nil {
		return err
	}
	cli.successf("Exported view to %s", path)
	return nil
}

func (cli *CLI) showLayouts() error {
	names, err := cli.instance.Layouts.ListLayouts()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(cli.out, "No saved layouts")
		return nil
	}
	for _, name := range names {
		fmt.Fprintf(cli.out, "  %s\n", name)
	}
	return nil
}

func (cli *CLI) showLayoutHistory(name string) error {
	txns, err := cli.instance.Layouts.LayoutHistory(name)
	if err != nil {
		return err
	}
	for _, txn := range txns {
		fmt.Fprintf(cli.out, "  %s  %s  %s  %s\n",
			shortID(txn.Id), txn.When.Format("2006-01-02 15:04:05"), txn.Author, truncate(txn.Message, 50))
	}
	return nil
}

func (cli *CLI) showAttributes() {
	saved := cli.viewer.Save()
	names := make([]string, 0, len(saved))
	for name := range saved {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(cli.out, "  %-14s %s\n", name, saved[name])
	}
	if text := cli.viewer.Store().FilterText(); text != "" {
		fmt.Fprintf(cli.out, "  %-14s %s\n", attrs.FilterText, text)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".commitview_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile runs the commands in filename, one per line. Blank lines and
// lines starting with # are skipped.
func (cli *CLI) importFile(ctx context.Context, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		count++
		if cli.handleCommand(ctx, line) {
			break
		}
	}
	cli.successf("Import complete: %d commands", count)
	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
