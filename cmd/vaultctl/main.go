package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lidofinance/anchor-collateral-steth/config"
	"github.com/lidofinance/anchor-collateral-steth/native/vault"
	"github.com/lidofinance/anchor-collateral-steth/storage"
)

const (
	initCommand    = "init-config"
	inspectCommand = "inspect"
	checkCommand   = "check"
	defaultConfig  = "./vault.toml"
)

// errCheckFailed signals that check found mismatches; details were already
// printed.
var errCheckFailed = errors.New("deployed vault does not match configuration")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case initCommand:
		err = runInit(os.Args[2:], os.Stdout)
	case inspectCommand:
		err = runInspect(os.Args[2:], os.Stdout)
	case checkCommand:
		err = runCheck(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: vaultctl <command> [flags]

Commands:
  %s  write a vault configuration with the supplied roles
  %s      print the persisted vault record
  %s        verify the persisted vault record against the configuration
`, initCommand, inspectCommand, checkCommand)
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(initCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path of the vault config file to write")
	admin := fs.String("admin", "", "Vault admin address")
	emergency := fs.String("emergency-admin", "", "Emergency admin address")
	liquidations := fs.String("liquidations-admin", "", "Liquidations admin address")
	distributor := fs.String("distributor", "", "Remote rewards distributor (hex)")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, err := os.Stat(*configPath); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", *configPath)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	cfg := config.Default()
	cfg.Roles = config.Roles{
		Admin:             strings.TrimSpace(*admin),
		EmergencyAdmin:    strings.TrimSpace(*emergency),
		LiquidationsAdmin: strings.TrimSpace(*liquidations),
	}
	cfg.Collection.RemoteDistributor = strings.TrimSpace(*distributor)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(*configPath, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s\n", *configPath)
	return nil
}

func loadState(configPath string) (*config.Config, *vault.State, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()
	state, err := vault.NewStore(db).Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, state, nil
}

type stateView struct {
	Admin                         string `json:"admin"`
	EmergencyAdmin                string `json:"emergencyAdmin"`
	LiquidationsAdmin             string `json:"liquidationsAdmin"`
	ReceiptToken                  string `json:"receiptToken"`
	BaseAsset                     string `json:"baseAsset"`
	BridgeConnector               string `json:"bridgeConnector"`
	RewardsLiquidator             string `json:"rewardsLiquidator"`
	InsuranceConnector            string `json:"insuranceConnector"`
	RemoteDistributor             string `json:"remoteDistributor"`
	NoLiquidationInterval         string `json:"noLiquidationInterval"`
	RestrictedLiquidationInterval string `json:"restrictedLiquidationInterval"`
	LastLiquidationTime           string `json:"lastLiquidationTime"`
	LastLiquidationSharePrice     string `json:"lastLiquidationSharePrice"`
	LastLiquidationSharesBurnt    string `json:"lastLiquidationSharesBurnt"`
	OperationsAllowed             bool   `json:"operationsAllowed"`
	Version                       uint64 `json:"version"`
	TotalReceiptRefunded          string `json:"totalReceiptRefunded"`
}

func viewOf(s *vault.State) stateView {
	return stateView{
		Admin:                         s.Admin.Hex(),
		EmergencyAdmin:                s.EmergencyAdmin.Hex(),
		LiquidationsAdmin:             s.LiquidationsAdmin.Hex(),
		ReceiptToken:                  s.ReceiptToken.Hex(),
		BaseAsset:                     s.BaseAsset.Hex(),
		BridgeConnector:               s.BridgeConnector.Hex(),
		RewardsLiquidator:             s.RewardsLiquidator.Hex(),
		InsuranceConnector:            s.InsuranceConnector.Hex(),
		RemoteDistributor:             s.RemoteDistributor.Hex(),
		NoLiquidationInterval:         s.NoLiquidationInterval.String(),
		RestrictedLiquidationInterval: s.RestrictedLiquidationInterval.String(),
		LastLiquidationTime:           s.LastLiquidationTime.UTC().Format(time.RFC3339),
		LastLiquidationSharePrice:     s.LastLiquidationSharePrice.String(),
		LastLiquidationSharesBurnt:    s.LastLiquidationSharesBurnt.String(),
		OperationsAllowed:             s.OperationsAllowed,
		Version:                       s.Version,
		TotalReceiptRefunded:          s.TotalReceiptRefunded.String(),
	}
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(inspectCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the vault config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, state, err := loadState(*configPath)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(viewOf(state))
}

func runCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(checkCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the vault config file")
	requireRunning := fs.Bool("require-running", true, "Fail when operations are stopped")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, state, err := loadState(*configPath)
	if err != nil {
		return err
	}
	expected, err := cfg.Resolve()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	problems := compare(expected, state, *requireRunning)
	if len(problems) == 0 {
		fmt.Fprintln(out, "OK: deployed vault matches configuration")
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(out, "MISMATCH: %s\n", p)
	}
	return errCheckFailed
}

func compare(expected config.Resolved, state *vault.State, requireRunning bool) []string {
	var problems []string
	address := func(name string, want, got common.Address) {
		if want != got {
			problems = append(problems, fmt.Sprintf("%s: expected %s, deployed %s", name, want.Hex(), got.Hex()))
		}
	}
	if !state.Initialized() {
		return []string{"vault is not initialized"}
	}
	address("admin", expected.Admin, state.Admin)
	address("emergency admin", expected.EmergencyAdmin, state.EmergencyAdmin)
	address("liquidations admin", expected.LiquidationsAdmin, state.LiquidationsAdmin)
	if expected.RemoteDistributor != state.RemoteDistributor {
		problems = append(problems, fmt.Sprintf("remote distributor: expected %s, deployed %s", expected.RemoteDistributor.Hex(), state.RemoteDistributor.Hex()))
	}
	if expected.NoLiquidationInterval != state.NoLiquidationInterval {
		problems = append(problems, fmt.Sprintf("no-liquidation interval: expected %s, deployed %s", expected.NoLiquidationInterval, state.NoLiquidationInterval))
	}
	if expected.RestrictedLiquidationInterval != state.RestrictedLiquidationInterval {
		problems = append(problems, fmt.Sprintf("restricted interval: expected %s, deployed %s", expected.RestrictedLiquidationInterval, state.RestrictedLiquidationInterval))
	}
	if state.Version != vault.LatestVersion {
		problems = append(problems, fmt.Sprintf("version: expected %d, deployed %d", vault.LatestVersion, state.Version))
	}
	if state.BridgeConnector == (common.Address{}) {
		problems = append(problems, "bridge connector is not set")
	}
	if state.RewardsLiquidator == (common.Address{}) {
		problems = append(problems, "rewards liquidator is not set")
	}
	if requireRunning && !state.OperationsAllowed {
		problems = append(problems, "operations are stopped")
	}
	return problems
}
