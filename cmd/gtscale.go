package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/karasz/gtscale/tai64"
	"github.com/karasz/gtscale/timescale"
)

// scaleOptions holds global flags and the state they produce.
type scaleOptions struct {
	ConfigPath string
	LeapFiles  []string
	Verbose    bool

	log *zap.Logger
	reg *timescale.Registry
	now func() time.Time
}

// newScaleCommand creates the root command of the gtscale tool.
func newScaleCommand() *cobra.Command {
	opts := &scaleOptions{now: time.Now}

	cmd := &cobra.Command{
		Use:           "gtscale",
		Short:         "Convert between TAI, UTC and derived time scales",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "yaml configuration file")
	cmd.PersistentFlags().StringArrayVar(&opts.LeapFiles, "leapfile", nil, "leap second table (repeatable)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newConvertCommand(opts))
	cmd.AddCommand(newLeapsCommand(opts))
	cmd.AddCommand(newRegisterCommand(opts))
	return cmd
}

func (o *scaleOptions) setup() error {
	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.log, err = newLogger(cfg.LogLevel, o.Verbose); err != nil {
		return err
	}
	leapfiles := append(append([]string(nil), cfg.LeapFiles...), o.LeapFiles...)
	o.reg, err = buildRegistry(leapfiles, cfg.LeapSeconds, o.log)
	return err
}

func newConvertCommand(opts *scaleOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <now|@label|tai-text|utc-text>",
		Short: "Show an instant on every supported scale",
		Long: `Convert one instant and print it as UTC, TAI, a TAI64N label,
TAI-UTC, UTC-SLS, TT and GPS time.

The input is "now", a TAI64 or TAI64N label such as @4000000058684600,
TAI text such as 1861920036.500000000s(ATOMIC), or UTC text such as
2016-12-31T23:59:60Z.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd.OutOrStdout())
		},
	}
}

// readInstant parses any of the convert inputs into both UTC and TAI.
func readInstant(conv *timescale.Converter, in string, now time.Time) (u timescale.UTCInstant, t timescale.TAIInstant, err error) {
	switch {
	case in == "now":
		if u, err = conv.FromTime(now); err != nil {
			return u, t, err
		}
		t, err = conv.ToTAI(u)
		return u, t, err
	case strings.HasPrefix(in, "@"):
		var l tai64.Label
		if l, err = tai64.Parse(in); err != nil {
			return u, t, err
		}
		t, err = timescale.TAIFromLabel(l)
	case strings.HasSuffix(in, ")"):
		t, err = timescale.ParseTAI(in)
	default:
		if u, err = conv.Registry().ParseUTC(in); err != nil {
			return u, t, err
		}
		t, err = conv.ToTAI(u)
		return u, t, err
	}
	if err != nil {
		return u, t, err
	}
	u, err = conv.ToUTC(t)
	return u, t, err
}

func runConvert(opts *scaleOptions, in string, w io.Writer) error {
	conv := timescale.NewConverter(opts.reg)
	u, t, err := readInstant(conv, in, opts.now())
	if err != nil {
		return err
	}
	opts.log.Debug("converted", zap.Stringer("utc", u), zap.Stringer("tai", t))

	label, err := t.Label()
	if err != nil {
		return err
	}
	sls, err := conv.ToTime(u)
	if err != nil {
		return err
	}
	tt, err := timescale.TTFromTAI(t)
	if err != nil {
		return err
	}
	gps, err := timescale.GPSFromTAI(t)
	if err != nil {
		return err
	}
	week, sow := gps.Week()

	_, err = fmt.Fprintf(w, "utc:      %s\ntai:      %s\nlabel:    %s\ntai-utc:  %d\nutc-sls:  %s\ntt:       %s\ngps:      %s\ngps-week: %d %d\n",
		u, t, label, opts.reg.Offset(u.Day()), sls.Format(time.RFC3339Nano), tt, gps, week, sow)
	return err
}

func newLeapsCommand(opts *scaleOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "leaps",
		Short: "Print the leap second table in use",
		Long: `Print the leap second table as "YYYY-MM-DD offset" lines, one per
day ending in a leap second. The output can be read back with --leapfile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeLeaps(cmd.OutOrStdout(), opts.reg.Snapshot())
		},
	}
}

func writeLeaps(w io.Writer, s *timescale.Snapshot) error {
	for _, e := range s.Entries() {
		if _, err := fmt.Fprintf(w, "%s %d\n", formatDay(e.Day), e.Offset); err != nil {
			return err
		}
	}
	return nil
}

func newRegisterCommand(opts *scaleOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register <YYYY-MM-DD> <+1|-1>",
		Short: "Check a leap second announcement against the table",
		Long: `Register a leap second at the end of the given UTC day and print
the resulting table entry. The table files are not modified.
Pass "--" before a negative adjustment: gtscale register -- 2030-06-30 -1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0])
			if err != nil {
				return err
			}
			adj, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("adjustment %q: %w", args[1], err)
			}
			if err := opts.reg.Register(day, adj); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %+d: TAI-UTC is %d from %s\n",
				formatDay(day), adj, opts.reg.Offset(day+1), formatDay(day+1))
			return err
		},
	}
}

// GTScaleRun runs the gtscale tool.
func GTScaleRun(args []string) int {
	cmd := newScaleCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "gtscale:", err)
		return 111
	}
	return 0
}
