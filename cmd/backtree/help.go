package main

const (
	rootHelpShort = "backtree plans and creates selective backups of directory trees."

	rootHelpLong = `backtree plans and creates selective backups of directory trees.

It scans a directory tree into a size-aggregated model, applies include and
exclude rules to decide which parts are worth backing up, and persists those
decisions in a hand-editable record file (.backtree.cfg) next to the tree. The
record is a plain delimited table, so the selection can be reviewed and adjusted
in any text editor between runs. A later backup run reconciles the stored
decisions onto a fresh scan, meaning files that appeared in the meantime inherit
the decision of their nearest recorded ancestor. It supports these commands:

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

For detailed help on a specific command, run:
  backtree help <command>`

	buildHelpShort = "Scan a directory tree and write its backup selection record"

	buildHelpLong = `Scan a directory tree and write its backup selection record.

The command recursively scans all files and directories under <root-folder>,
aggregating sizes and file counts upwards. Paths given with --include are always
selected for backup, paths given with --exclude (and anything matching an
--exclude-glob pattern) are deselected; for nested rules the closest one to a
file wins. Files larger than --filemax MB are deselected regardless. A directory
counts as selected as soon as anything below it is.

The resulting selection is written to <root-folder>/.backtree.cfg, one row per
recorded entry, with entries below --show MB or deeper than --depth folded into
their parent. Rows carry a human-readable rendering next to the machine-read
path and flag columns, so the file doubles as a reviewable overview. Edit the
flag column by hand to adjust the selection; a later 'backup' run picks the
changes up as-is.`

	buildExample = `
# Build the selection record for the current directory:
backtree build

# Keep the photo originals out, regardless of size:
backtree build /home/user -e /home/user/photos/raw

# Always include the vault, drop every cache directory:
backtree build /home/user -i /home/user/vault --exclude-glob '**/cache/'`

	resetHelpShort = "Delete a previously written backup selection record"

	resetHelpLong = `Delete a previously written backup selection record.

The command removes <root-folder>/.backtree.cfg, discarding every stored
decision, including any hand edits. The next 'build' run starts from a clean
slate. Nothing else under the root is touched; it is not an error when no
record exists there yet.`

	resetExample = `
# Discard the stored selection of the current directory:
backtree reset

# Discard the stored selection of a specific tree:
backtree reset /home/user`

	backupHelpShort = "Archive the currently selected paths into a fresh tarball"

	backupHelpLong = `Archive the currently selected paths into a fresh .tar.gz tarball.

The command re-scans <root-folder>, reconciles the stored selection record onto
the fresh scan and streams every selected file into a compressed archive. Files
that appeared since the record was written inherit the decision of their nearest
recorded ancestor, so routine runs do not need a rebuild first. A missing record
is an error; run 'backtree build' before the first backup.

The archive is named <root>_<date>_<time>.tar.gz and placed next to the root,
unless --out points somewhere else. The run is refused when the destination
partition lacks the space for the uncompressed selection. Every added (+) and
skipped (-) file is printed to standard output (stdout) and recorded in the
<root-folder>/.backtree.log run log, followed by a summary with the achieved
compression ratio.`

	backupExample = `
# Archive the current directory's selection next to it:
backtree backup

# Write the archive onto an external disk, compressing harder:
backtree backup /home/user --out /mnt/external --level 9

# Skip the confirmation prompt (for scripted runs with a TTY):
backtree backup /home/user --yes`

	treeHelpShort = "Render the size-annotated directory tree without writing anything"

	treeHelpLong = `Render the size-annotated directory tree of a scan to standard output.

The command scans <root-folder> exactly like 'build' would, then renders the
visible entries as an indented tree, each with its aggregated size and share of
the total. Entries below --show MB or deeper than --depth are folded into their
parent, and of the remainder only the --max-items largest are shown. Entries in
the top decile by size are highlighted (disable with --no-color), making the
big consumers easy to spot before committing to a selection.

The command never writes anything; use it to tune the include, exclude and
size flags before a 'build'.`

	treeExample = `
# Preview the current directory, highlighting the heavy entries:
backtree tree

# Preview a selection down to two levels, showing everything above 10 MB:
backtree tree /home/user --depth 2 --show 10

# Check what an exclusion would fold away:
backtree tree /home/user -e /home/user/videos`

	listHelpShort = "List the paths contained in a tarball (sorted by default)"

	listHelpLong = `List all contained paths in a tarball, either sorted or in original order.

By default, the paths are sorted alphabetically, which improves readability and
makes it easier to 'diff' or otherwise compare against a fresh 'build'. With
--sort=false the original archive order is preserved, if that would otherwise
be needed.

All listed paths are printed to standard output (stdout), while any operational
output and encountered errors will be written to standard error (stderr). The
command returns with an exit code 0 upon success; an exit code 2 for any
encountered errors.`

	listExample = `
# List as sorted the contents of a tarball:
backtree list user_2026-08-24_134500.tar.gz

# Preserve the original archive order in the listing:
backtree list user_2026-08-24_134500.tar.gz --sort=false

# Use a specific on-disk temporary directory for large archives:
backtree list user_2026-08-24_134500.tar.gz --tmpdir=/mnt/largedisk`
)
