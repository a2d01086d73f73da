// Package cmd provides the CLI entry point.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zapssh/zap/internal/config"
	"github.com/zapssh/zap/internal/engine"
	"github.com/zapssh/zap/internal/format"
	"github.com/zapssh/zap/internal/location"
	"github.com/zapssh/zap/internal/progress"
	"github.com/zapssh/zap/internal/sshconn"
	"github.com/zapssh/zap/internal/verify"
)

// Version information - set at build time via ldflags.
//
//nolint:gochecknoglobals // build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

//nolint:gochecknoglobals // cobra CLI flags require package-level variables
var (
	cfgFile    string
	logLevel   string
	logPretty  bool
	quiet      bool
	streams    int
	retries    int
	port       int
	sshKeyPath string
	doVerify   bool

	showVersion bool
)

// rootCmd represents the base command.
//
//nolint:gochecknoglobals // cobra requires package-level command variable
var rootCmd = &cobra.Command{
	Use:   "zap SOURCE DESTINATION",
	Short: "Transfer a file in parallel streams over SSH",
	Long: `zap moves one large file between a local and a remote host over SSH,
splitting it into N byte ranges that travel over independent SFTP
sessions. Exactly one of SOURCE and DESTINATION must be remote, written
as [user@]host:path.`,
	Example: strings.TrimSpace(`
  Pull a file from remote to local:
      zap user@remote_host:/path/to/remote_file /local/destination/

  Push a file from local to remote:
      zap /local/path/to/file user@remote_host:/remote/destination/`),
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE:         run,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // cobra requires init for flag registration
func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.zap.yaml)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "print version information and exit")
	rootCmd.Flags().IntVarP(&streams, "streams", "s", config.DefaultStreams, "number of parallel streams")
	rootCmd.Flags().StringVarP(&sshKeyPath, "ssh-key-path", "i", "", "SSH private key path for authentication")
	rootCmd.Flags().IntVarP(&retries, "retries", "r", config.DefaultRetries, "number of retries to attempt per stream")
	rootCmd.Flags().IntVarP(&port, "port", "p", config.DefaultSSHPort, "SSH port")
	rootCmd.Flags().BoolVar(&doVerify, "verify", false, "compare SHA-256 digests after the transfer")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress banner and progress output")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&logPretty, "log-pretty", true, "enable pretty (human-readable) logging")
}

func run(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("zap %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("expected SOURCE and DESTINATION arguments, got %d", len(args))
	}

	setupLogging()

	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)

	if streams <= 0 {
		return fmt.Errorf("streams must be a positive integer, got %d", streams)
	}
	if retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", retries)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	plan, err := planTransfer(args[0], args[1])
	if err != nil {
		return err
	}

	return executeTransfer(cmd.Context(), plan)
}

// transferPlan is the resolved form of the two positional arguments.
type transferPlan struct {
	push       bool // local → remote when true
	localPath  string
	remotePath string
	remote     location.Location // the remote endpoint
}

// planTransfer parses and validates the endpoints and resolves the final
// file paths on both sides.
func planTransfer(sourceArg, destArg string) (transferPlan, error) {
	source, err := location.Parse(sourceArg)
	if err != nil {
		return transferPlan{}, err
	}
	dest, err := location.Parse(destArg)
	if err != nil {
		return transferPlan{}, err
	}

	if err := location.ValidatePair(source, dest); err != nil {
		return transferPlan{}, err
	}

	if source.Remote() {
		// Pull: the output file inside the destination directory takes
		// the basename of the remote path.
		return transferPlan{
			push:       false,
			localPath:  filepath.Join(dest.Path, filepath.Base(source.Path)),
			remotePath: source.Path,
			remote:     source,
		}, nil
	}

	// Push: the remote destination names a directory; the file keeps the
	// source's basename.
	return transferPlan{
		push:       true,
		localPath:  source.Path,
		remotePath: dest.Path + "/" + filepath.Base(source.Path),
		remote:     dest,
	}, nil
}

func executeTransfer(ctx context.Context, plan transferPlan) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sshCfg := sshconn.Config{
		Host:    plan.remote.Host,
		Port:    uint16(port),
		User:    plan.remote.User,
		KeyFile: sshKeyPath,
	}
	dialer := sshconn.NewDialer(sshCfg, sshconn.WithLogger(
		log.With().Str("component", "sshconn").Logger(),
	))

	opts := engine.Options{
		LocalPath:  plan.localPath,
		RemotePath: plan.remotePath,
		Streams:    streams,
		Retries:    retries,
		Dialer:     dialer,
	}

	engineOpts := []engine.Option{
		engine.WithLogger(log.With().Str("component", "engine").Logger()),
	}
	if !quiet {
		sink := progress.NewLogSink(log.With().Str("component", "progress").Logger())
		engineOpts = append(engineOpts, engine.WithProgress(sink.Handle))
	}

	eng, err := engine.New(opts, engineOpts...)
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("Preparing to transfer %s...\n", plan.localPath)
	}

	var report engine.Report
	if plan.push {
		report, err = eng.Push(ctx)
	} else {
		report, err = eng.Pull(ctx)
	}
	if err != nil {
		return err
	}

	if doVerify {
		if err := verifyTransfer(ctx, dialer, plan); err != nil {
			return err
		}
	}

	if !quiet {
		printReport(report)
	}
	return nil
}

// verifyTransfer hashes both sides over one fresh session and compares.
func verifyTransfer(ctx context.Context, dialer *sshconn.Dialer, plan transferPlan) error {
	localDigest, err := verify.LocalSHA256(plan.localPath)
	if err != nil {
		return err
	}

	conn, err := dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect for verification: %w", err)
	}
	defer conn.Close()

	remoteDigest, err := verify.RemoteSHA256(conn.Client(), plan.remotePath)
	if err != nil {
		return err
	}

	if err := verify.Compare(localDigest, remoteDigest); err != nil {
		return err
	}

	log.Info().Str("sha256", localDigest).Msg("transfer verified")
	return nil
}

func printReport(report engine.Report) {
	fmt.Println("\nTransfer Statistics")
	fmt.Printf("Total Size:    %s\n", format.Size(report.TotalBytes))
	fmt.Printf("Streams:       %d\n", report.Streams)
	fmt.Printf("Duration:      %.2f seconds\n", report.Duration.Seconds())
	fmt.Printf("Average Speed: %s\n", format.Speed(report.BytesPerSec()))
}

// applyFlagOverrides merges config-file defaults with flags: a flag the
// user did not set explicitly falls back to the config value.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("streams") {
		streams = cfg.Streams
	}
	if !cmd.Flags().Changed("retries") {
		retries = cfg.Retries
	}
	if !cmd.Flags().Changed("port") {
		port = cfg.Port
	}
	if sshKeyPath == "" {
		sshKeyPath = cfg.KeyFile
	}
	if !cmd.Flags().Changed("verify") {
		doVerify = cfg.Verify
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if logPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
}
