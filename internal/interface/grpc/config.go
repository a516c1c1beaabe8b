package grpcservice

import (
	"crypto/tls"
	"fmt"
	"net"
	"path/filepath"
	"time"
)

type Config struct {
	Datadir           string
	Port              uint32
	NoTLS             bool
	HeartbeatInterval time.Duration
	// SignatureMaxAge bounds the clock skew of signed requests.
	SignatureMaxAge   time.Duration
	TLSExtraIPs       []string
	TLSExtraDomains   []string
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	lis.Close()

	if !c.insecure() {
		if c.Datadir == "" {
			return fmt.Errorf("missing datadir for tls key pair")
		}
		for _, ip := range c.TLSExtraIPs {
			if net.ParseIP(ip) == nil {
				return fmt.Errorf("invalid tls extra ip %s", ip)
			}
		}
	}
	return nil
}

func (c Config) insecure() bool {
	return c.NoTLS
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) gatewayAddress() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

func (c Config) tlsDatadir() string {
	return filepath.Join(c.Datadir, tlsFolder)
}

func (c Config) tlsConfig() (*tls.Config, error) {
	if c.insecure() {
		return nil, nil
	}
	certificate, err := tls.LoadX509KeyPair(
		filepath.Join(c.tlsDatadir(), tlsCertFile),
		filepath.Join(c.tlsDatadir(), tlsKeyFile),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tls key pair: %s", err)
	}
	return &tls.Config{
		NextProtos:   []string{"http/1.1", "h2"},
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
