package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"fuel_tracker/internal/cache"
	"fuel_tracker/internal/config"
	"fuel_tracker/internal/fuel"
	"fuel_tracker/internal/geo"
	"fuel_tracker/internal/ingest"
	"fuel_tracker/internal/logger"
	"fuel_tracker/internal/seed"
	"fuel_tracker/internal/store"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "fuelctl",
		Short: "Fuel tracker maintenance commands",
		Long: `Maintenance commands for the fuel tracker: migrate the schema, seed the
fleet registry, append raw telemetry events and run a single processing tick.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(tickCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Setup(cfg.Log)
	return cfg, nil
}

// openStore loads config and connects to the database. The returned func
// closes the connection.
func openStore() (*config.Config, *store.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := config.InitDB(cfg.DB, logger.GormLogger())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database error: %w", err)
	}
	return cfg, store.New(db), func() { closeDB(db) }, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// migrateCmd creates or updates the schema. InitDB already migrates, so this
// only connects and reports.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Printf("Schema up to date (%s)\n", cfg.DB.Driver)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var fleetPath, geofencesPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load drivers, vehicles, bowsers and geofences into the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(fleetPath)
			if err != nil {
				return fmt.Errorf("failed to open fleet file: %w", err)
			}
			defer f.Close()

			fleet, err := seed.LoadFleet(f)
			if err != nil {
				return err
			}

			if geofencesPath != "" {
				gf, err := os.Open(geofencesPath)
				if err != nil {
					return fmt.Errorf("failed to open geofence file: %w", err)
				}
				defer gf.Close()
				fences, err := geo.LoadGeofences(gf)
				if err != nil {
					return err
				}
				if err := fleet.AttachFences(fences); err != nil {
					return err
				}
			}

			cfg, st, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := seed.Apply(cmd.Context(), st, fleet, cfg.Engine.DefaultGeofenceRadius)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d drivers, %d vehicles, %d bowsers\n", sum.Drivers, sum.Vehicles, sum.Bowsers)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fleetPath, "fleet", "f", "fleet.yaml", "Fleet registry YAML file")
	cmd.Flags().StringVarP(&geofencesPath, "geofences", "g", "", "GeoJSON file of bowser geofences")
	return cmd
}

func ingestCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Append raw telemetry events from JSONL files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			in := ingest.New(st)
			in.Strict = strict
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open file: %w", err)
				}
				sum, err := in.ReadFrom(cmd.Context(), f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Printf("%s: %d readings, %d geofence events, %d scans (%d skipped)\n",
					path, sum.Readings, sum.GeofenceEvents, sum.Scans, sum.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on the first malformed line")
	return cmd
}

func tickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one processing pass and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			proc := fuel.NewProcessor(st, fuel.SettingsFrom(cfg.Engine), fuel.SystemClock{})
			if cfg.Redis.Addr != "" {
				lc, err := cache.NewLiveCache(cmd.Context(), cfg.Redis)
				if err != nil {
					logrus.WithError(err).Warn("Redis unavailable; live status not published")
				} else {
					defer lc.Close()
					proc.AddPublisher(lc)
				}
			}

			report, err := proc.ProcessTick(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
