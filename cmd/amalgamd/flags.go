package main

import (
	"github.com/urfave/cli/v2"
)

const defaultPrefix = "osmo"

const (
	urlFlagName      = "url"
	senderFlagName   = "sender"
	fundsFlagName    = "funds"
	msgFlagName      = "msg"
	adminFlagName    = "admin"
	metadataFlagName = "metadata"
	assetFlagName    = "asset"
	addressFlagName  = "address"
	amountFlagName   = "amount"
	keyFlagName      = "key"
	prefixFlagName   = "prefix"
)

var (
	urlFlag = &cli.StringFlag{
		Name:  urlFlagName,
		Usage: "the url where to reach the amalgam daemon, defaults to the local one",
	}
	senderFlag = &cli.StringFlag{
		Name:  senderFlagName,
		Usage: "address of the account sending the message, defaults to the one of the signing key",
	}
	keyFlag = &cli.StringFlag{
		Name:  keyFlagName,
		Usage: "hex encoded secp256k1 private key signing the message, defaults to AMALGAMD_KEY",
	}
	prefixFlag = &cli.StringFlag{
		Name:  prefixFlagName,
		Usage: "bech32 prefix of the account addresses on the host ledger",
		Value: defaultPrefix,
	}
	fundsFlag = &cli.StringFlag{
		Name:  fundsFlagName,
		Usage: "comma separated list of native coins attached to the message, ie. 10uatom,5uosmo",
	}
	msgFlag = &cli.StringFlag{
		Name:     msgFlagName,
		Usage:    "the execute message in JSON format, ie. {\"deposit\":{}}",
		Required: true,
	}
	adminFlag = &cli.StringFlag{
		Name:  adminFlagName,
		Usage: "admin of the basket, defaults to the sender",
	}
	metadataFlag = &cli.StringFlag{
		Name:  metadataFlagName,
		Usage: "the basket token metadata in JSON format",
		Value: "{}",
	}
	assetFlag = &cli.StringFlag{
		Name:     assetFlagName,
		Usage:    "the asset to fund, either native:<denom> or cw20:<contract>",
		Required: true,
	}
	addressFlag = &cli.StringFlag{
		Name:     addressFlagName,
		Usage:    "the account to fund",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     amountFlagName,
		Usage:    "the amount to fund, in base units",
		Required: true,
	}
)
