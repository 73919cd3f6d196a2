/*
backtree plans and creates selective backups of directory trees.

It scans a directory tree into a size-aggregated model, applies include and
exclude rules to decide which parts are worth backing up, and persists those
decisions in a hand-editable record file next to the tree. A later backup run
reconciles the stored decisions onto a fresh scan, so files that appeared in
the meantime inherit the decision of their nearest recorded ancestor, and
streams everything selected into a compressed .tar.gz archive. It supports
these commands:

	build  - scan a directory tree and write its backup selection record
	reset  - delete a previously written backup selection record
	backup - archive the currently selected paths into a fresh tarball
	tree   - render the size-annotated directory tree without writing anything
	list   - produce a sorted or unsorted listing of all the contents of a tarball

All commands print their primary results (such as tree renderings or archived
paths) to standard output (stdout). Any encountered errors and operational
messages are printed to standard error (stderr).

Exit Codes:

	0 - Success
	1 - Aborted on user request (declined confirmation)
	2 - General failure (invalid input, I/O errors, etc.)
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtree/internal/archive"
	"backtree/internal/config"

	"github.com/lanrat/extsort"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	// Directory aggregates above this many bytes carry a size annotation in
	// the rendered tree and the record file's human-readable column.
	annotateBytes = 100_000_000

	timestampFormat = "2006-01-02 15:04:05"

	exitTimeout     = 10 * time.Second
	exitCodeSuccess = 0
	exitCodeAborted = 1
	exitCodeFailure = 2
)

var (
	// Version is automatically populated by the build process (Makefile).
	Version string

	// ErrAborted is an exit-code relevant sentinel error.
	ErrAborted = errors.New("aborted on user request")
)

// Program is the primary structure of the application.
type Program struct {
	fs afero.Fs

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	gzipConfig    *archive.GzipConfig
	extSortConfig *extsort.Config
	settings      *config.Settings

	interactive bool
	assumeYes   bool
}

// NewProgram returns a pointer to a new [Program].
func NewProgram(fs afero.Fs, stdin io.Reader, stdout io.Writer, stderr io.Writer, gzipConfig *archive.GzipConfig, extsortConfig *extsort.Config, settings *config.Settings) *Program {
	var interactive bool

	if fs == nil {
		fs = afero.NewOsFs()
	}

	if stdin == nil {
		stdin = os.Stdin
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	if gzipConfig == nil {
		cfg := archive.GzipConfigDefault
		gzipConfig = &cfg
	}

	if extsortConfig == nil {
		cfg := archive.ExtSortConfigDefault
		extsortConfig = &cfg
	}

	if settings == nil {
		s := config.DefaultSettings
		settings = &s
	}

	if f, ok := stdin.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &Program{
		fs:            fs,
		stdin:         stdin,
		stdout:        stdout,
		stderr:        stderr,
		gzipConfig:    gzipConfig,
		extSortConfig: extsortConfig,
		settings:      settings,
		interactive:   interactive,
	}
}

func newRootCmd(ctx context.Context, fs afero.Fs, stdin io.Reader, stdout io.Writer, stderr io.Writer, settings *config.Settings) *cobra.Command {
	if settings == nil {
		s := config.DefaultSettings
		settings = &s
	}

	rootCmd := &cobra.Command{
		Use:               "backtree",
		Short:             rootHelpShort,
		Long:              rootHelpLong,
		Version:           Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	buildSettings := *settings

	var (
		buildInclude  []string
		buildExclude  []string
		buildGlobs    []string
		buildGlobFile string
		buildYes      bool
	)

	buildCmd := &cobra.Command{
		Use:     "build [root-folder]",
		Short:   buildHelpShort,
		Long:    buildHelpLong,
		Example: buildExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			prog := NewProgram(fs, stdin, stdout, stderr, nil, nil, &buildSettings)
			prog.assumeYes = buildYes

			return prog.Build(ctx, rootArg(args), buildInclude, buildExclude, buildGlobFile, buildGlobs)
		},
	}
	buildCmd.Flags().StringArrayVarP(&buildInclude, "include", "i", nil, "path to always select; can be repeated multiple times")
	buildCmd.Flags().StringArrayVarP(&buildExclude, "exclude", "e", nil, "path to deselect; can be repeated multiple times")
	buildCmd.Flags().StringArrayVar(&buildGlobs, "exclude-glob", nil, "glob pattern to deselect; can be repeated multiple times")
	buildCmd.Flags().StringVar(&buildGlobFile, "globs-from", "", "file with glob patterns to deselect, one per line")
	buildCmd.Flags().Float64Var(&buildSettings.ShowMB, "show", settings.ShowMB, "only record entries above this size (MB)")
	buildCmd.Flags().Float64Var(&buildSettings.FileMaxMB, "filemax", settings.FileMaxMB, "deselect files above this size (MB); negative for no ceiling")
	buildCmd.Flags().IntVar(&buildSettings.MaxDepth, "depth", settings.MaxDepth, "only record entries up to this depth; negative for unlimited")
	buildCmd.Flags().StringVar(&buildSettings.Order, "order", settings.Order, "sibling order: dirs-first or files-first")
	buildCmd.Flags().BoolVarP(&buildYes, "yes", "y", false, "do not ask for confirmation")

	resetCmd := &cobra.Command{
		Use:     "reset [root-folder]",
		Short:   resetHelpShort,
		Long:    resetHelpLong,
		Example: resetExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			prog := NewProgram(fs, stdin, stdout, stderr, nil, nil, settings)

			return prog.Reset(rootArg(args))
		},
	}

	backupSettings := *settings
	backupCompressorConfig := archive.GzipConfigDefault

	var (
		backupOut string
		backupYes bool
	)

	backupCmd := &cobra.Command{
		Use:     "backup [root-folder]",
		Short:   backupHelpShort,
		Long:    backupHelpLong,
		Example: backupExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			backupCompressorConfig.Level = backupSettings.Level

			prog := NewProgram(fs, stdin, stdout, stderr, &backupCompressorConfig, nil, &backupSettings)
			prog.assumeYes = backupYes

			return prog.Backup(ctx, rootArg(args), backupOut)
		},
	}
	backupCmd.Flags().StringVar(&backupOut, "out", "", "destination directory for the archive; defaults to next to the root")
	backupCmd.Flags().IntVar(&backupSettings.Level, "level", settings.Level, "gzip compression level 0-9; -1 for the default")
	backupCmd.Flags().IntVar(&backupCompressorConfig.BlockSize, "blocksize", archive.GzipConfigDefault.BlockSize, "block size for compressing")
	backupCmd.Flags().IntVar(&backupCompressorConfig.BlockCount, "blockcount", archive.GzipConfigDefault.BlockCount, "blocks to compress in parallel")
	backupCmd.Flags().BoolVarP(&backupYes, "yes", "y", false, "do not ask for confirmation")

	treeSettings := *settings

	var (
		treeInclude  []string
		treeExclude  []string
		treeGlobs    []string
		treeGlobFile string
		treeNoColor  bool
	)

	treeCmd := &cobra.Command{
		Use:     "tree [root-folder]",
		Short:   treeHelpShort,
		Long:    treeHelpLong,
		Example: treeExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			prog := NewProgram(fs, stdin, stdout, stderr, nil, nil, &treeSettings)

			return prog.Tree(ctx, rootArg(args), treeInclude, treeExclude, treeGlobFile, treeGlobs, treeNoColor)
		},
	}
	treeCmd.Flags().StringArrayVarP(&treeInclude, "include", "i", nil, "path to always select; can be repeated multiple times")
	treeCmd.Flags().StringArrayVarP(&treeExclude, "exclude", "e", nil, "path to deselect; can be repeated multiple times")
	treeCmd.Flags().StringArrayVar(&treeGlobs, "exclude-glob", nil, "glob pattern to deselect; can be repeated multiple times")
	treeCmd.Flags().StringVar(&treeGlobFile, "globs-from", "", "file with glob patterns to deselect, one per line")
	treeCmd.Flags().Float64Var(&treeSettings.ShowMB, "show", settings.ShowMB, "only show entries above this size (MB)")
	treeCmd.Flags().Float64Var(&treeSettings.FileMaxMB, "filemax", settings.FileMaxMB, "deselect files above this size (MB); negative for no ceiling")
	treeCmd.Flags().IntVar(&treeSettings.MaxDepth, "depth", settings.MaxDepth, "only show entries up to this depth; negative for unlimited")
	treeCmd.Flags().StringVar(&treeSettings.Order, "order", settings.Order, "sibling order: dirs-first or files-first")
	treeCmd.Flags().IntVar(&treeSettings.MaxItems, "max-items", settings.MaxItems, "show at most this many of the largest entries")
	treeCmd.Flags().BoolVar(&treeNoColor, "no-color", false, "disable highlighting of the largest entries")

	listSort := true
	listSorterConfig := archive.ExtSortConfigDefault
	listCmd := &cobra.Command{
		Use:     "list <input.tar.gz>",
		Short:   listHelpShort,
		Long:    listHelpLong,
		Example: listExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			prog := NewProgram(fs, stdin, stdout, stderr, nil, &listSorterConfig, settings)

			return prog.List(ctx, args[0], listSort)
		},
	}
	listCmd.Flags().BoolVar(&listSort, "sort", true, "sort the output list; for better comparability")
	listCmd.Flags().StringVar(&listSorterConfig.TempFilesDir, "tmpdir", archive.ExtSortConfigDefault.TempFilesDir, "on-disk location for intermediate files")
	listCmd.Flags().IntVar(&listSorterConfig.NumWorkers, "workers", archive.ExtSortConfigDefault.NumWorkers, "workers for concurrent operations")
	listCmd.Flags().IntVar(&listSorterConfig.ChunkSize, "chunksize", archive.ExtSortConfigDefault.ChunkSize, "max records per worker before spilling to disk")

	rootCmd.AddCommand(buildCmd, resetCmd, backupCmd, treeCmd, listCmd)

	return rootCmd
}

// rootArg returns the optional positional root argument, defaulting to the
// current working directory.
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return "."
}

func main() {
	var exitCode int

	defer func() {
		os.Exit(exitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fs := afero.NewOsFs()

	settings, err := loadSettings(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exitCode = exitCodeFailure

		return
	}

	errChan := make(chan error, 1)
	go func() {
		rootCmd := newRootCmd(ctx, fs, os.Stdin, os.Stdout, os.Stderr, settings)
		errChan <- rootCmd.Execute()
	}()

	select {
	case err := <-errChan:
		switch {
		case err == nil:
			exitCode = exitCodeSuccess
		case errors.Is(err, ErrAborted):
			exitCode = exitCodeAborted
			fmt.Fprintln(os.Stderr, "aborted, nothing was changed")
		default:
			exitCode = exitCodeFailure
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case <-sigChan:
		fmt.Fprintln(os.Stderr, "interrupting...")
		cancel()

		select {
		case <-errChan:
			exitCode = exitCodeFailure
			fmt.Fprintln(os.Stderr, "interrupted (exited)")
		case <-time.After(exitTimeout):
			exitCode = exitCodeFailure
			fmt.Fprintln(os.Stderr, "interrupted (killed)")
		}
	}
}

// loadSettings reads the optional user settings file, falling back to the
// stock settings when none exists.
func loadSettings(fs afero.Fs) (*config.Settings, error) {
	path, err := config.Path()
	if err != nil {
		return nil, err
	}

	return config.Load(fs, path)
}
