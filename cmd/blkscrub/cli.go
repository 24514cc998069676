package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blkscrub/blkscrub/backend"
	backendfile "github.com/blkscrub/blkscrub/backend/file"
	"github.com/blkscrub/blkscrub/ext4"
	"github.com/blkscrub/blkscrub/fill"
	"github.com/blkscrub/blkscrub/logging"
	"github.com/blkscrub/blkscrub/report"
	"github.com/blkscrub/blkscrub/scan"
)

// fsType is the -t/--type flag's value, a pflag.Value so an unrecognized
// filesystem family is rejected at flag-parse time with cobra's own
// usage-error formatting rather than deep inside runScrub.
type fsType string

func (t *fsType) String() string { return string(*t) }
func (t *fsType) Type() string   { return "fsType" }
func (t *fsType) Set(s string) error {
	switch s {
	case "", "ext2", "ext3", "ext4":
		*t = fsType(s)
		return nil
	default:
		return fmt.Errorf("must be one of ext2, ext3, ext4")
	}
}

var (
	flagReportOnly     bool
	flagPretty         bool
	flagFsType         fsType
	flagIgnoreRecovery bool
	flagIgnoreReadonly bool
	flagVerbose        int
	flagLogFile        string
	flagFillMode       = fill.ModeZero
)

var rootCmd = &cobra.Command{
	Use:   "blkscrub DRIVE",
	Short: "Overwrite unallocated ext2/3/4 space on an offline drive image",
	Long: `blkscrub computes the byte ranges an ext2/3/4 filesystem considers unused
and either reports that map or overwrites it with deterministic zeros or a
cryptographic stream generator's output, to destroy residual plaintext on
recycled media.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runScrub,
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&flagReportOnly, "report-only", "r", false, "do not write, only report the usage map")
	f.BoolVarP(&flagPretty, "pretty", "p", false, "pretty-print the report")
	f.VarP(&flagFsType, "type", "t", "filesystem type {ext2|ext3|ext4}, skips detection")
	f.BoolVarP(&flagIgnoreRecovery, "ignore-recovery", "R", false, "permit a filesystem pending journal recovery")
	f.BoolVarP(&flagIgnoreReadonly, "ignore-readonly", "O", false, "permit a filesystem marked read-only")
	f.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (repeatable)")
	f.StringVarP(&flagLogFile, "log-file", "l", "", "append logs to this file")
	f.VarP(&flagFillMode, "fill-mode", "f", "fill strategy {zero|chacha20|hc128}")
}

var _ pflag.Value = (*fsType)(nil)
var _ pflag.Value = (*fill.Mode)(nil)

func runScrub(cmd *cobra.Command, args []string) error {
	drivePath := args[0]

	logger, err := logging.New(flagVerbose >= 1, flagVerbose >= 2, flagLogFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	storage, err := backendfile.OpenFromPath(drivePath, flagReportOnly)
	if err != nil {
		return err
	}
	defer storage.Close()

	if flagFsType == "" {
		if err := detectExtFamily(storage); err != nil {
			return err
		}
	}

	ctx := &scan.Context{
		Drive:          storage,
		Logger:         logger,
		IgnoreRecovery: flagIgnoreRecovery,
		IgnoreReadonly: flagIgnoreReadonly,
	}

	logger.Infof("scanning %s", drivePath)
	result, err := scan.Run(ctx)
	if err != nil {
		return err
	}

	if flagReportOnly {
		buf, err := report.Marshal(result.Map, flagPretty)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(buf))
		return nil
	}

	writable, err := storage.Writable()
	if err != nil {
		return fmt.Errorf("opening %s for writing: %w", drivePath, err)
	}

	gen, err := newGenerator(flagFillMode)
	if err != nil {
		return fmt.Errorf("seeding %s generator: %w", flagFillMode, err)
	}

	logger.Infof("filling free space with %s", flagFillMode)
	if err := fill.Run(gen, result.Map, writable); err != nil {
		return err
	}

	return nil
}

func newGenerator(mode fill.Mode) (fill.ByteGenerator, error) {
	switch mode {
	case fill.ModeZero:
		return fill.ZeroGenerator{}, nil
	case fill.ModeChaCha20:
		return fill.NewChaCha20Generator()
	case fill.ModeHC128:
		return fill.NewHC128Generator()
	default:
		return nil, fmt.Errorf("unknown fill mode %v", mode)
	}
}

// detectExtFamily is the minimal stand-in for this tool's external
// filesystem-detection collaborator (§1 scopes cross-family detection
// out of the core): it confirms the ext2/3/4 superblock magic is
// present at its fixed offset, matching the original scanner's own
// detect_fs. Distinguishing ext2 from ext3 from ext4 has no effect on
// how this tool scans, since all three share the same on-disk
// superblock/GDT/inode layout; only feature flags vary, and those are
// validated later by ext4.ValidateOptions regardless of what -t says.
func detectExtFamily(drive backend.File) error {
	buf := make([]byte, 2)
	if _, err := drive.ReadAt(buf, ext4.SuperblockOffset+0x38); err != nil {
		return fmt.Errorf("detecting filesystem type: %w", err)
	}
	if binary.LittleEndian.Uint16(buf) != 0xEF53 {
		return fmt.Errorf("detecting filesystem type: no ext2/3/4 superblock magic at offset %d", ext4.SuperblockOffset+0x38)
	}
	return nil
}
