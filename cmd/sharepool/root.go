package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bitfsorg/sharepool-go/config"
	"github.com/bitfsorg/sharepool-go/contract"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/logger"
	"github.com/bitfsorg/sharepool-go/store"
)

const ledgerFile = "ledger.db"

// overridable lists the config keys that flags and SHAREPOOL_* variables
// may override.
var overridable = []string{
	"listen", "loglevel", "logfile", "contract", "owner", "distributor",
	"rewarder", "scoretoken", "whitelist", "depositor", "badgepenalty",
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SHAREPOOL")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "sharepool",
		Short:        "Share-based reward pool ledger",
		Version:      fmt.Sprintf("%s (%s, %s)", version, commit, date),
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String("datadir", config.DefaultDataDir(), "data directory")
	pf.String("loglevel", "", "log level (debug, info, warn, error)")
	pf.String("logfile", "", "log file (default stderr)")
	for _, name := range []string{"datadir", "loglevel", "logfile"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		newInitCmd(v),
		newShowCmd(v),
		newSimulateCmd(v),
		newReplayCmd(v),
		newMigrateCmd(v),
		newExportCmd(v),
		newImportCmd(v),
		newServeCmd(v),
	)
	return root
}

// loadConfig reads the config file of the data directory and applies
// flag and environment overrides. A missing file yields the defaults.
func loadConfig(v *viper.Viper) (config.Config, error) {
	dataDir := v.GetString("datadir")
	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	cfg.DataDir = dataDir

	for _, key := range overridable {
		if !v.IsSet(key) {
			continue
		}
		val := v.GetString(key)
		if val == "" {
			continue
		}
		switch key {
		case "listen":
			cfg.ListenAddr = val
		case "loglevel":
			cfg.LogLevel = val
		case "logfile":
			cfg.LogFile = val
		case "contract":
			cfg.ContractID = val
		case "owner":
			cfg.Owner = val
		case "distributor":
			cfg.Distributor = val
		case "rewarder":
			cfg.Rewarder = val
		case "scoretoken":
			cfg.ScoreToken = val
		case "whitelist":
			cfg.Whitelist = config.SplitList(val)
		case "depositor":
			cfg.Depositor = val
		case "badgepenalty":
			cfg.BadgePenalty = v.GetBool(key)
		}
	}
	return cfg, config.ValidateConfig(cfg)
}

// app is an opened data directory.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    *store.BoltStore
	ledger   *ledger.Ledger
	contract *contract.Contract
	logFile  io.Closer
}

func openApp(v *viper.Viper, migrations ...ledger.Migration) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, a.logFile = f, f
	}
	a.log = logger.New(cfg.LogLevel, w)

	a.store, err = store.OpenBoltStore(filepath.Join(cfg.DataDir, ledgerFile))
	if err != nil {
		a.Close()
		return nil, err
	}
	state, err := a.store.Load()
	if errors.Is(err, store.ErrNotFound) {
		state = nil
	} else if err != nil {
		a.Close()
		return nil, err
	}

	lcfg, err := cfg.Ledger()
	if err != nil {
		a.Close()
		return nil, err
	}
	lcfg.Logger = a.log
	lcfg.Migrations = migrations
	a.ledger, err = ledger.New(lcfg, state)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.contract = contract.New(a.ledger, a.store, a.log)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.log != nil {
			a.log.Error("failed to close store", "error", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// withApp opens the data directory for the duration of fn.
func withApp(v *viper.Viper, fn func(a *app) error) error {
	a, err := openApp(v)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = v.BindPFlag(strings.ToLower(name), cmd.Flags().Lookup(name))
	}
}
