package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/config"
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	grpcservice "github.com/amalgam-labs/amalgamd/internal/interface/grpc"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/btcsuite/btcd/btcec/v2"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func main() {
	app := cli.NewApp()
	app.Name = "amalgamd"
	app.Usage = "multi-asset basket daemon"
	app.Version = Version
	app.Flags = config.Flags
	app.Action = mainAction
	app.Commands = append(app.Commands,
		instantiateCmd,
		executeCmd,
		queryCmd,
		fundCmd,
		genkeyCmd,
	)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func mainAction(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := grpcservice.Config{
		Datadir:           cfg.Datadir,
		Port:              cfg.Port,
		NoTLS:             cfg.NoTLS,
		HeartbeatInterval: time.Duration(cfg.HeartbeatInterval) * time.Second,
		SignatureMaxAge:   time.Duration(cfg.SignatureMaxAge) * time.Second,
		TLSExtraIPs:       cfg.TLSExtraIPs,
		TLSExtraDomains:   cfg.TLSExtraDomains,
	}

	svc, err := grpcservice.NewService(svcConfig, cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %s", err)
	}

	log.Infof("amalgamd config: %s", cfg)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start service: %s", err)
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}

var (
	instantiateCmd = &cli.Command{
		Name:   "instantiate",
		Usage:  "Instantiate the basket and create its token",
		Flags:  []cli.Flag{urlFlag, keyFlag, prefixFlag, senderFlag, adminFlag, metadataFlag},
		Action: instantiateAction,
	}
	executeCmd = &cli.Command{
		Name:   "execute",
		Usage:  "Execute a message against the basket",
		Flags:  []cli.Flag{urlFlag, keyFlag, prefixFlag, senderFlag, fundsFlag, msgFlag},
		Action: executeAction,
	}
	queryCmd = &cli.Command{
		Name:      "query",
		Usage:     "Query the basket: components, taxes, info or reserves",
		ArgsUsage: "<query>",
		Flags:     []cli.Flag{urlFlag},
		Action:    queryAction,
	}
	fundCmd = &cli.Command{
		Name:   "fund",
		Usage:  "Fund an account on the host ledger, requires the faucet to be enabled",
		Flags:  []cli.Flag{urlFlag, assetFlag, addressFlag, amountFlag},
		Action: fundAction,
	}
	genkeyCmd = &cli.Command{
		Name:   "genkey",
		Usage:  "Generate a new signing key and print its account address",
		Flags:  []cli.Flag{prefixFlag},
		Action: genkeyAction,
	}
)

func instantiateAction(ctx *cli.Context) error {
	tlsConfig, err := getCredentials(ctx)
	if err != nil {
		return err
	}

	var metadata json.RawMessage
	if err := json.Unmarshal([]byte(ctx.String(metadataFlagName)), &metadata); err != nil {
		return fmt.Errorf("invalid metadata: %s", err)
	}

	signer, err := getSigner(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"sender": signer.sender,
		"msg": map[string]any{
			"admin":    ctx.String(adminFlagName),
			"metadata": metadata,
		},
	}
	doc, headers, err := signer.sign("Instantiate", body)
	if err != nil {
		return err
	}
	resp, err := post(
		fmt.Sprintf("%s/v1/instantiate", getServerUrl(ctx)), doc, headers, tlsConfig,
	)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func executeAction(ctx *cli.Context) error {
	tlsConfig, err := getCredentials(ctx)
	if err != nil {
		return err
	}

	funds, err := parseCoins(ctx.String(fundsFlagName))
	if err != nil {
		return fmt.Errorf("invalid funds: %s", err)
	}
	var msg json.RawMessage
	if err := json.Unmarshal([]byte(ctx.String(msgFlagName)), &msg); err != nil {
		return fmt.Errorf("invalid msg: %s", err)
	}

	signer, err := getSigner(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"sender": signer.sender,
		"funds":  funds,
		"msg":    msg,
	}
	doc, headers, err := signer.sign("Execute", body)
	if err != nil {
		return err
	}
	resp, err := post(
		fmt.Sprintf("%s/v1/execute", getServerUrl(ctx)), doc, headers, tlsConfig,
	)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func queryAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one query, got %d", ctx.NArg())
	}
	tlsConfig, err := getCredentials(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/query/%s", getServerUrl(ctx), ctx.Args().First())
	resp, err := get(url, tlsConfig)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func fundAction(ctx *cli.Context) error {
	tlsConfig, err := getCredentials(ctx)
	if err != nil {
		return err
	}

	asset, err := domain.ParseAssetKey(ctx.String(assetFlagName))
	if err != nil {
		return err
	}
	amount, err := fixedpoint.ParseAmount(ctx.String(amountFlagName))
	if err != nil {
		return err
	}

	body := map[string]any{
		"asset":   asset,
		"address": ctx.String(addressFlagName),
		"amount":  amount,
	}
	resp, err := post(fmt.Sprintf("%s/v1/fund", getServerUrl(ctx)), body, nil, tlsConfig)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func genkeyAction(ctx *cli.Context) error {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return err
	}
	address, err := auth.Address(ctx.String(prefixFlagName), key.PubKey())
	if err != nil {
		return err
	}

	buf, err := json.Marshal(map[string]string{
		"key":     hex.EncodeToString(key.Serialize()),
		"address": address,
	})
	if err != nil {
		return err
	}
	return printJSON(buf)
}
