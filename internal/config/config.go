package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/application"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/alertsmanager"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/db"
	watermillevents "github.com/amalgam-labs/amalgamd/internal/infrastructure/events/watermill"
	osmosisissuer "github.com/amalgam-labs/amalgamd/internal/infrastructure/issuer/osmosis"
	inmemoryledger "github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger/inmemory"
	redisledger "github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger/redis"
	timescheduler "github.com/amalgam-labs/amalgamd/internal/infrastructure/scheduler/gocron"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedDbs = supportedType{
		"inmemory": {},
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedLedgers = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedIssuers = supportedType{
		"osmosis": {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	NoTLS    bool
	LogLevel int
	// HeartbeatInterval is expressed in seconds.
	HeartbeatInterval int64
	// SignatureMaxAge is expressed in seconds.
	SignatureMaxAge int64
	TLSExtraIPs     []string
	TLSExtraDomains []string

	DbType            string
	DbDir               string
	DbUrl               string
	LedgerType          string
	RedisUrl            string
	RedisTxNumOfRetries int
	IssuerType          string
	ContractAddress     string
	Subdenom            string
	EventBufferSize     int64
	// AuditInterval is expressed in seconds, 0 disables the reserve audit.
	AuditInterval int64
	EnableFaucet  bool
	// AlertManagerUrl is the Alertmanager endpoint receiving the audit alerts.
	AlertManagerUrl string

	repo      ports.RepoManager
	ledger    ports.Ledger
	issuer    ports.TokenIssuer
	publisher ports.EventPublisher
	scheduler ports.SchedulerService
	alerts    ports.Alerts
	svc       application.Service
}

func (c *Config) String() string {
	clone := *c
	if clone.DbUrl != "" {
		clone.DbUrl = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = appDataDir()
	DefaultPort                = 9090
	defaultDbType              = "badger"
	defaultLedgerType          = "inmemory"
	defaultIssuerType          = "osmosis"
	defaultRedisTxNumOfRetries = 10
	defaultLogLevel            = 4
	defaultNoTLS               = true
	defaultHeartbeatInterval   = 10
	defaultSignatureMaxAge     = 300
	defaultEventBufferSize     = 100
	defaultAuditInterval       = 0
	defaultEnableFaucet        = false
)

// env returns a list of strings prefixed with `AMALGAMD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("AMALGAMD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	NoTLS = &cli.BoolFlag{
		Usage: "Disable TLS",
		Name:  "no-tls", EnvVars: env("NO_TLS"),
		Value: defaultNoTLS,
	}

	HeartbeatInterval = &cli.Int64Flag{
		Usage: "Interval (in seconds) between heartbeats sent on idle event streams",
		Name:  "heartbeat-interval", EnvVars: env("HEARTBEAT_INTERVAL"),
		Value: int64(defaultHeartbeatInterval),
	}

	SignatureMaxAge = &cli.Int64Flag{
		Usage: "Maximum age (in seconds) of a signed request, bounds the clock skew of clients",
		Name:  "signature-max-age", EnvVars: env("SIGNATURE_MAX_AGE"),
		Value: int64(defaultSignatureMaxAge),
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (inmemory, badger, sqlite, postgres)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if AMALGAMD_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	LedgerType = &cli.StringFlag{
		Usage: "Host ledger type (inmemory, redis)",
		Name:  "ledger-type", EnvVars: env("LEDGER_TYPE"),
		Value: defaultLedgerType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db url if AMALGAMD_LEDGER_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	IssuerType = &cli.StringFlag{
		Usage: "Basket token issuer type (osmosis)",
		Name:  "issuer-type", EnvVars: env("ISSUER_TYPE"),
		Value: defaultIssuerType,
	}

	ContractAddress = &cli.StringFlag{
		Usage: "Address of the basket on the host ledger, owner of the basket denom",
		Name:  "contract-address", EnvVars: env("CONTRACT_ADDRESS"),
	}

	Subdenom = &cli.StringFlag{
		Usage: "Subdenom of the basket token",
		Name:  "subdenom", EnvVars: env("SUBDENOM"),
		Value: osmosisissuer.DefaultSubdenom,
	}

	EventBufferSize = &cli.Int64Flag{
		Usage: "Number of events buffered per subscriber",
		Name:  "event-buffer-size", EnvVars: env("EVENT_BUFFER_SIZE"),
		Value: int64(defaultEventBufferSize),
	}

	AuditInterval = &cli.Int64Flag{
		Usage: "Interval (in seconds) between reserve audits, 0 to disable",
		Name:  "audit-interval", EnvVars: env("AUDIT_INTERVAL"),
		Value: int64(defaultAuditInterval),
	}

	EnableFaucet = &cli.BoolFlag{
		Usage: "Allow funding accounts on the host ledger, for testing only",
		Name:  "faucet", EnvVars: env("FAUCET"),
		Value: defaultEnableFaucet,
	}

	TLSExtraIP = &cli.StringSliceFlag{
		Usage: "Extra IP addresses to add to the self-signed TLS certificate",
		Name:  "tls-extra-ip", EnvVars: env("TLS_EXTRA_IP"),
	}
	TLSExtraDomain = &cli.StringSliceFlag{
		Usage: "Extra domains to add to the self-signed TLS certificate",
		Name:  "tls-extra-domain", EnvVars: env("TLS_EXTRA_DOMAIN"),
	}

	AlertManagerUrl = &cli.StringFlag{
		Usage: "Alertmanager url where to publish the reserve audit alerts, ie. http://localhost:9093/api/v2/alerts",
		Name:  "alert-manager-url", EnvVars: env("ALERT_MANAGER_URL"),
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	LogLevel,
	NoTLS,
	TLSExtraIP,
	TLSExtraDomain,
	HeartbeatInterval,
	SignatureMaxAge,
	DbType,
	DbUrl,
	LedgerType,
	RedisUrl,
	RedisTxNumOfRetries,
	IssuerType,
	ContractAddress,
	Subdenom,
	EventBufferSize,
	AuditInterval,
	EnableFaucet,
	AlertManagerUrl,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(LedgerType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("ledger type set to 'redis' but redis url is missing")
		}
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		Port:                uint32(c.Uint(Port.Name)),
		NoTLS:               c.Bool(NoTLS.Name),
		LogLevel:            c.Int(LogLevel.Name),
		HeartbeatInterval:   c.Int64(HeartbeatInterval.Name),
		SignatureMaxAge:     c.Int64(SignatureMaxAge.Name),
		TLSExtraIPs:         c.StringSlice(TLSExtraIP.Name),
		TLSExtraDomains:     c.StringSlice(TLSExtraDomain.Name),
		DbType:              c.String(DbType.Name),
		DbDir:               dbPath,
		DbUrl:               dbUrl,
		LedgerType:          c.String(LedgerType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		IssuerType:          c.String(IssuerType.Name),
		ContractAddress:     c.String(ContractAddress.Name),
		Subdenom:            c.String(Subdenom.Name),
		EventBufferSize:     c.Int64(EventBufferSize.Name),
		AuditInterval:       c.Int64(AuditInterval.Name),
		EnableFaucet:        c.Bool(EnableFaucet.Name),
		AlertManagerUrl:     c.String(AlertManagerUrl.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".amalgamd"
	}
	return filepath.Join(home, ".amalgamd")
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLedgers.supports(c.LedgerType) {
		return fmt.Errorf(
			"ledger type not supported, please select one of: %s", supportedLedgers,
		)
	}
	if !supportedIssuers.supports(c.IssuerType) {
		return fmt.Errorf(
			"issuer type not supported, please select one of: %s", supportedIssuers,
		)
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("missing contract address")
	}
	if _, err := auth.AddressPrefix(c.ContractAddress); err != nil {
		return fmt.Errorf("invalid contract address: %s", err)
	}
	if c.AuditInterval < 0 {
		return fmt.Errorf("invalid audit interval, must be greater than or equal to 0")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid heartbeat interval, must be greater than 0")
	}
	if c.SignatureMaxAge <= 0 {
		return fmt.Errorf("invalid signature max age, must be greater than 0")
	}
	if c.EventBufferSize < 0 {
		return fmt.Errorf("invalid event buffer size, must be greater than or equal to 0")
	}
	if c.RedisTxNumOfRetries < 1 {
		return fmt.Errorf("invalid redis number of retries, must be at least 1")
	}
	if c.EnableFaucet {
		log.Warn("faucet is enabled, anyone can fund accounts on the ledger")
	}

	if err := c.issuerService(); err != nil {
		return err
	}
	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	c.publisher = watermillevents.NewEventPublisher(c.EventBufferSize)
	if c.AlertManagerUrl != "" {
		c.alerts = alertsmanager.NewService(c.AlertManagerUrl)
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	dbType := c.DbType
	switch dbType {
	case "inmemory":
		// badger without a directory keeps everything in memory.
		dbType = "badger"
		dataStoreConfig = []interface{}{"", logger}
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
			return fmt.Errorf("failed to create db dir: %s", err)
		}
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, true}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   dbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) ledgerService() error {
	var svc ports.Ledger
	switch c.LedgerType {
	case "inmemory":
		svc = inmemoryledger.NewLedger()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		svc = redisledger.NewLedger(rdb, c.RedisTxNumOfRetries)
	default:
		return fmt.Errorf("unknown ledger type")
	}

	c.ledger = svc
	return nil
}

func (c *Config) issuerService() error {
	var svc ports.TokenIssuer
	var err error
	switch c.IssuerType {
	case "osmosis":
		svc, err = osmosisissuer.NewTokenIssuer(c.ContractAddress, c.Subdenom)
	default:
		err = fmt.Errorf("unknown issuer type")
	}
	if err != nil {
		return err
	}

	c.issuer = svc
	return nil
}

func (c *Config) schedulerService() error {
	if c.AuditInterval <= 0 {
		return nil
	}
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	if c.repo == nil || c.ledger == nil || c.issuer == nil || c.publisher == nil {
		return fmt.Errorf("config not validated")
	}

	svc, err := application.NewService(
		c.ContractAddress, c.repo, c.ledger, c.issuer, c.publisher, c.scheduler,
		c.alerts, time.Duration(c.AuditInterval)*time.Second, c.EnableFaucet,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
