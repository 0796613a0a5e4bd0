// Package cli is the command-line front end of grouppolicy-gen.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/config"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/db"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/filesystem"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/logging"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/persistence"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/template"
	"github.com/zinrai/grouppolicy-gen/internal/usecase"
)

// Version is injected during build.
var Version = "dev"

// Exit codes, one per failure kind.
const (
	ExitOK                   = 0
	ExitFailure              = 1
	ExitInvalidInput         = 2
	ExitPoolExhausted        = 3
	ExitInvalidAddressFamily = 4
	ExitTemplateNotFound     = 5
	ExitTemplateRender       = 6
	ExitDestinationNotFound  = 7
)

type options struct {
	users          string
	siteCode       string
	subnet         prefixValue
	groupPolicy    string
	authServerName string
	gatewayBaseURL string
	lastUsed       addrValue

	configPath     string
	resumeFromIPAM bool
	logLevel       string
	logFormat      string
	version        bool
}

// openSourceFunc connects to the IPAM database. The returned closer releases
// the connection.
type openSourceFunc func(dsn string) (domain.AllocationSource, io.Closer, error)

func openIPAM(dsn string) (domain.AllocationSource, io.Closer, error) {
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewAllocationRepository(conn), conn, nil
}

// Execute runs the command with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	return execute(args, stdout, stderr, openIPAM)
}

func execute(args []string, stdout, stderr io.Writer, openSource openSourceFunc) int {
	cmd := newRootCmd(stdout, stderr, openSource)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, domain.ErrPoolExhausted):
		return ExitPoolExhausted
	case errors.Is(err, domain.ErrInvalidAddressFamily):
		return ExitInvalidAddressFamily
	case errors.Is(err, domain.ErrTemplateNotFound):
		return ExitTemplateNotFound
	case errors.Is(err, domain.ErrTemplateRender):
		return ExitTemplateRender
	case errors.Is(err, domain.ErrDestinationNotFound):
		return ExitDestinationNotFound
	default:
		return ExitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer, openSource openSourceFunc) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "grouppolicy-gen",
		Short: "Generate VPN group policy config",
		Long: `Generate the set and clear configs of a VPN group policy.

Each user name in the username file gets the next free address of the subnet,
starting after --last-used-address when given. Both templates are rendered
with the same variables and written as set-config-<site> and
clear-config-<site> into the destination path from the settings file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &domain.InvalidInputError{Field: "arguments", Err: fmt.Errorf("unexpected arguments %q", args)}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.version {
				fmt.Fprintf(stdout, "grouppolicy-gen %s\n", Version)
				return nil
			}
			return run(opts, stdout, stderr, openSource)
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&opts.users, "users", "u", "", "Username file")
	flags.StringVarP(&opts.siteCode, "site-code", "c", "", "Site code")
	flags.VarP(&opts.subnet, "subnet", "s", "Subnet in prefix-length CIDR notation, e.g. 10.0.0.0/29 (no netmask form, no bare address)")
	flags.StringVarP(&opts.groupPolicy, "group-policy", "g", "", "Group policy name")
	flags.StringVarP(&opts.authServerName, "auth-server-name", "a", "", "Authentication server name")
	flags.StringVarP(&opts.gatewayBaseURL, "gateway-base-url", "b", "", "Base gateway URL of the group-url")
	flags.VarP(&opts.lastUsed, "last-used-address", "l", "Last used IP address in existing config")
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "Settings file")
	flags.BoolVar(&opts.resumeFromIPAM, "resume-from-ipam", false, "Resume after the highest address allocated in the IPAM database")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides settings)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides settings)")
	flags.BoolVar(&opts.version, "version", false, "Print version and exit")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &domain.InvalidInputError{Field: "arguments", Err: err}
	})
	return cmd
}

func run(opts *options, stdout, stderr io.Writer, openSource openSourceFunc) error {
	if err := opts.validate(); err != nil {
		return err
	}

	settings, err := config.Load(opts.configPath)
	if err != nil {
		return &domain.InvalidInputError{Field: "settings", Value: opts.configPath, Err: err}
	}

	logger, err := newLogger(settings, opts, stderr)
	if err != nil {
		return err
	}

	names, err := filesystem.ReadNames(opts.users)
	if err != nil {
		return err
	}
	warnNames(logger, names)

	lastUsed := opts.lastUsed.addr
	if opts.resumeFromIPAM {
		lastUsed, err = resumePoint(settings, opts.subnet.prefix, openSource, logger)
		if err != nil {
			return err
		}
	}

	gen := usecase.NewGenerator(usecase.GeneratorConfig{
		TemplatesPath:   settings.Paths.TemplatesPath,
		DestinationPath: settings.Paths.DestinationPath,
		SetTemplate:     settings.Templates.Set,
		ClearTemplate:   settings.Templates.Clear,
	}, template.NewRenderer(), filesystem.NewWriter(), logger)

	result, err := gen.Generate(domain.GenerateRequest{
		Names:          names,
		Subnet:         opts.subnet.prefix,
		LastUsed:       lastUsed,
		SiteCode:       opts.siteCode,
		GroupPolicy:    opts.groupPolicy,
		AuthServerName: opts.authServerName,
		GatewayBaseURL: opts.gatewayBaseURL,
	})
	if err != nil {
		return err
	}

	printSummary(stdout, result)
	return nil
}

// validate checks every argument before any file is read or written.
func (o *options) validate() error {
	var missing []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"users", o.users != ""},
		{"site-code", o.siteCode != ""},
		{"subnet", o.subnet.set},
		{"group-policy", o.groupPolicy != ""},
		{"auth-server-name", o.authServerName != ""},
		{"gateway-base-url", o.gatewayBaseURL != ""},
	} {
		if !f.set {
			missing = append(missing, "--"+f.name)
		}
	}
	if len(missing) > 0 {
		return &domain.InvalidInputError{
			Field: "arguments",
			Err:   fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", ")),
		}
	}

	if o.lastUsed.addr.IsValid() && domain.FamilyOf(o.lastUsed.addr) != domain.FamilyOf(o.subnet.prefix.Addr()) {
		return &domain.AddressFamilyError{Subnet: o.subnet.prefix, Address: o.lastUsed.addr}
	}
	if o.lastUsed.addr.IsValid() && o.resumeFromIPAM {
		return &domain.InvalidInputError{
			Field: "arguments",
			Err:   errors.New("--last-used-address and --resume-from-ipam are mutually exclusive"),
		}
	}

	if strings.ContainsAny(o.siteCode, `/\`) || o.siteCode == "." || o.siteCode == ".." {
		return &domain.InvalidInputError{Field: "site code", Value: o.siteCode, Err: errors.New("must be usable as a file name suffix")}
	}

	info, err := os.Stat(o.users)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.InvalidInputError{Field: "users file", Value: o.users, Err: errors.New("file not found")}
		}
		return &domain.InvalidInputError{Field: "users file", Value: o.users, Err: err}
	}
	if info.IsDir() {
		return &domain.InvalidInputError{Field: "users file", Value: o.users, Err: errors.New("is a directory")}
	}
	return nil
}

func newLogger(settings *config.Settings, opts *options, stderr io.Writer) (*slog.Logger, error) {
	levelName := settings.Log.Level
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	formatName := settings.Log.Format
	if opts.logFormat != "" {
		formatName = opts.logFormat
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, &domain.InvalidInputError{Field: "log level", Err: err}
	}
	format, err := logging.ParseFormat(formatName)
	if err != nil {
		return nil, &domain.InvalidInputError{Field: "log format", Err: err}
	}
	return logging.New(logging.Config{Level: level, Format: format, Output: stderr}), nil
}

func warnNames(logger *slog.Logger, names []string) {
	if len(names) == 0 {
		logger.Warn("username file contains no names")
		return
	}
	seen := make(map[string]bool, len(names))
	var dups []string
	for _, n := range names {
		if seen[n] {
			dups = append(dups, n)
		}
		seen[n] = true
	}
	if len(dups) > 0 {
		logger.Warn("duplicate user names keep only their last address", "names", dups)
	}
}

func resumePoint(settings *config.Settings, subnet netip.Prefix, openSource openSourceFunc, logger *slog.Logger) (netip.Addr, error) {
	if settings.Database.DSN == "" {
		return netip.Addr{}, &domain.InvalidInputError{
			Field: "settings",
			Err:   errors.New("database.dsn is required with --resume-from-ipam"),
		}
	}

	source, closer, err := openSource(settings.Database.DSN)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to open IPAM database: %w", err)
	}
	defer closer.Close()

	addr, found, err := source.LastAllocatedAddress(subnet)
	if err != nil {
		return netip.Addr{}, err
	}
	if !found {
		logger.Info("no allocations in IPAM, starting at first host", "subnet", subnet.String())
		return netip.Addr{}, nil
	}
	logger.Info("resuming after IPAM allocation", "subnet", subnet.String(), "last_used", addr.String())
	return addr, nil
}

func printSummary(w io.Writer, result *domain.GenerateResult) {
	fmt.Fprintf(w, "wrote %s\n", result.SetPath)
	fmt.Fprintf(w, "wrote %s\n", result.ClearPath)
	fmt.Fprintf(w, "assigned %d addresses\n", result.Assignment.Len())

	// Duplicates can leave the highest address anywhere in the list.
	var highest netip.Addr
	for _, e := range result.Assignment.Entries() {
		if !highest.IsValid() || highest.Less(e.Address) {
			highest = e.Address
		}
	}
	if highest.IsValid() {
		fmt.Fprintf(w, "last used address: %s\n", highest)
	}
}

