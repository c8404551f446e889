package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atorrez/fleetwatch/internal/config"
	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/logger"
	"github.com/atorrez/fleetwatch/internal/maintenance"
	"github.com/atorrez/fleetwatch/internal/samsara"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagFormat  string
	flagVerbose bool

	flagQuery   string
	flagField   string
	flagLimit   int
	flagSort    string
	flagNoCache bool

	flagUnit     string
	flagDueDays  int
	flagDueMiles int64
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleetwatch",
		Short: "Query fleet telemetry from the terminal",
		Long: `A CLI for the fleet telemetry gateway.
Lists vehicles, looks up locations and odometer readings, and reads the
shop's maintenance sheet, through the same caching gateway the bot uses.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")

	cmd.AddCommand(
		newVehiclesCmd(),
		newVehicleCmd(),
		newLocationCmd(),
		newOdometerCmd(),
		newMaintenanceCmd(),
		newCheckCmd(),
	)

	return cmd
}

func newVehiclesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "List or search fleet vehicles",
		RunE:  runVehicles,
	}

	cmd.Flags().StringVar(&flagQuery, "query", "", "Substring to search for")
	cmd.Flags().StringVar(&flagField, "field", "all", "Search field: name, vin, plate or all")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum results (0 = unlimited listing)")
	cmd.Flags().StringVar(&flagSort, "sort", "name", "Sort order: name or id")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the vehicle cache")

	return cmd
}

func runVehicles(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	order, err := parseSort(flagSort)
	if err != nil {
		return err
	}

	client, _, release, err := newGateway()
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := cmdContext()
	defer stop()

	var vehicles []fleet.Vehicle
	if flagQuery != "" {
		field, err := fleet.ParseSearchField(flagField)
		if err != nil {
			return err
		}
		limit := flagLimit
		if limit <= 0 {
			limit = samsara.DefaultSearchLimit
		}
		if flagNoCache {
			client.ClearCache()
		}
		vehicles = client.SearchVehicles(ctx, flagQuery, field, limit)
	} else {
		vehicles = client.GetVehicles(ctx, !flagNoCache)
		if flagLimit > 0 && len(vehicles) > flagLimit {
			vehicles = vehicles[:flagLimit]
		}
	}

	sortVehicles(vehicles, order)

	return WriteOutput(os.Stdout, &OutputResult{
		CheckedAt: time.Now().UTC(),
		Vehicles:  vehicles,
		Count:     len(vehicles),
	}, format, flagVerbose)
}

func newVehicleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vehicle <id>",
		Short: "Show one vehicle, enriched with its latest odometer reading",
		Args:  cobra.ExactArgs(1),
		RunE:  runVehicle,
	}
}

func runVehicle(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	client, _, release, err := newGateway()
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := cmdContext()
	defer stop()

	v, ok := client.GetVehicleWithStats(ctx, args[0])
	if !ok {
		return fmt.Errorf("vehicle %q not found", args[0])
	}

	return WriteOutput(os.Stdout, &OutputResult{
		CheckedAt: time.Now().UTC(),
		Vehicle:   &v,
	}, format, flagVerbose)
}

func newLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "location <id>",
		Short: "Show a vehicle's last known position",
		Args:  cobra.ExactArgs(1),
		RunE:  runLocation,
	}
}

func runLocation(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	client, _, release, err := newGateway()
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := cmdContext()
	defer stop()

	v, ok := client.GetVehicleByID(ctx, args[0])
	if !ok {
		return fmt.Errorf("vehicle %q not found", args[0])
	}
	gps, ok := client.GetVehicleLocation(ctx, v.ID)
	if !ok {
		return fmt.Errorf("no recent GPS fix for %s", v.DisplayName())
	}

	return WriteOutput(os.Stdout, &OutputResult{
		CheckedAt: time.Now().UTC(),
		Vehicle:   &v,
		Location:  &gps,
	}, format, flagVerbose)
}

func newOdometerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "odometer <id> [id...]",
		Short: "Show odometer readings for one or more vehicles",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runOdometer,
	}
}

func runOdometer(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	client, _, release, err := newGateway()
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := cmdContext()
	defer stop()

	readings := client.GetOdometerStats(ctx, args)

	return WriteOutput(os.Stdout, &OutputResult{
		CheckedAt: time.Now().UTC(),
		Requested: args,
		Odometers: readings,
	}, format, flagVerbose)
}

func newMaintenanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Read the shop's maintenance sheet",
		RunE:  runMaintenance,
	}

	cmd.Flags().StringVar(&flagUnit, "unit", "", "Only records for one unit")
	cmd.Flags().IntVar(&flagDueDays, "due-days", 0, "Only items due within N days")
	cmd.Flags().Int64Var(&flagDueMiles, "due-miles", 0, "Only items due within N miles of the current odometer")

	return cmd
}

func runMaintenance(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	client, cfg, release, err := newGateway()
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := cmdContext()
	defer stop()

	tracker := maintenance.New(cfg.MaintenanceSheetURL, logger.Named("maintenance"))

	var records []maintenance.Record
	switch {
	case flagUnit != "":
		records, err = tracker.ForUnit(ctx, flagUnit)
	case flagDueDays > 0 || flagDueMiles > 0:
		records, err = tracker.DueSoon(ctx, flagDueDays, flagDueMiles, odometerByUnit(ctx, client))
	default:
		records, err = tracker.Records(ctx)
	}
	if err != nil {
		return err
	}
	if records == nil {
		records = []maintenance.Record{}
	}

	return WriteOutput(os.Stdout, &OutputResult{
		CheckedAt: time.Now().UTC(),
		Records:   records,
		Count:     len(records),
	}, format, flagVerbose)
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the telemetry API",
		Long:  `Exits 0 when the API answers a minimal authenticated call, 1 otherwise.`,
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	client, _, release, err := newGateway()
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := cmdContext()
	defer stop()

	ok := client.TestConnection(ctx)

	if err := WriteOutput(os.Stdout, &OutputResult{
		CheckedAt: time.Now().UTC(),
		Connected: &ok,
	}, format, flagVerbose); err != nil {
		return err
	}

	release()
	if !ok {
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
	return nil
}

// newGateway loads gateway configuration and builds the telemetry
// client with one session scope held; callers release it when done.
func newGateway() (*samsara.Client, *config.Config, func(), error) {
	cfg, err := config.LoadGateway()
	if err != nil {
		return nil, nil, nil, err
	}

	level := "error"
	if flagVerbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: "console"}); err != nil {
		return nil, nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	client := samsara.New(samsara.Config{
		Token:    cfg.SamsaraToken,
		BaseURL:  cfg.SamsaraBaseURL,
		CacheTTL: cfg.CacheTTL,
	})
	release := client.Acquire()

	return client, cfg, release, nil
}

// odometerByUnit builds the tracker's odometer lookup from one bulk
// stats call, keyed by the fleet's unit names.
func odometerByUnit(ctx context.Context, client *samsara.Client) maintenance.OdometerFunc {
	vehicles := client.GetVehicles(ctx, true)
	ids := make([]string, len(vehicles))
	for i, v := range vehicles {
		ids[i] = v.ID
	}
	readings := client.GetOdometerStats(ctx, ids)

	byUnit := make(map[string]int64, len(readings))
	for _, v := range vehicles {
		if r, ok := readings[v.ID]; ok {
			byUnit[strings.TrimSpace(v.Name)] = r.Miles
		}
	}

	return func(unit string) (int64, bool) {
		miles, ok := byUnit[strings.TrimSpace(unit)]
		return miles, ok
	}
}

func cmdContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
