package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/config"
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	timeout     = 15 * time.Second
	tlsDir      = "tls"
	tlsCertFile = "cert.pem"
)

// getServerUrl returns the --url flag, then AMALGAMD_URL, and finally the
// address of the local daemon derived from --port and --no-tls.
func getServerUrl(ctx *cli.Context) string {
	if url := ctx.String(urlFlagName); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	if url := viper.GetString(urlFlagName); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	scheme := "https"
	if ctx.Bool(config.NoTLS.Name) {
		scheme = "http"
	}
	return fmt.Sprintf("%s://127.0.0.1:%d", scheme, ctx.Uint(config.Port.Name))
}

func getCredentials(ctx *cli.Context) (*tls.Config, error) {
	if strings.HasPrefix(getServerUrl(ctx), "http://") {
		return nil, nil
	}
	tlsCertPath := filepath.Join(ctx.String(config.Datadir.Name), tlsDir, tlsCertFile)
	if _, err := os.Stat(tlsCertPath); err != nil {
		return nil, nil
	}
	tlsConfig, err := getTLSConfig(tlsCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get tls config: %s", err)
	}
	return tlsConfig, nil
}

func getTLSConfig(path string) (*tls.Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(buf); !ok {
		return nil, fmt.Errorf("failed to parse tls cert")
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    caCertPool,
	}, nil
}

type signer struct {
	key    *btcec.PrivateKey
	sender string
	now    func() time.Time
}

// getSigner loads the signing key from --key or AMALGAMD_KEY. The sender
// defaults to the account of the key.
func getSigner(ctx *cli.Context) (*signer, error) {
	hexKey := ctx.String(keyFlagName)
	if hexKey == "" {
		hexKey = viper.GetString(keyFlagName)
	}
	if hexKey == "" {
		return nil, fmt.Errorf("missing signing key, set either --%s or AMALGAMD_KEY", keyFlagName)
	}
	key, err := auth.ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}

	address, err := auth.Address(ctx.String(prefixFlagName), key.PubKey())
	if err != nil {
		return nil, err
	}
	sender := ctx.String(senderFlagName)
	if sender == "" {
		sender = address
	}
	if sender != address {
		return nil, fmt.Errorf("sender %s does not match signing key account %s", sender, address)
	}
	return &signer{key, sender, time.Now}, nil
}

// sign returns the request document along with its signature headers.
func (s *signer) sign(method string, body any) (map[string]any, map[string]string, error) {
	doc, err := auth.Normalize(body)
	if err != nil {
		return nil, nil, err
	}
	creds, err := auth.Sign(s.key, method, doc, s.now())
	if err != nil {
		return nil, nil, err
	}
	return doc, creds.Headers(), nil
}

// parseCoins parses a comma separated list of <amount><denom> coins.
func parseCoins(str string) ([]domain.Coin, error) {
	coins := make([]domain.Coin, 0)
	if strings.TrimSpace(str) == "" {
		return coins, nil
	}
	for _, s := range strings.Split(str, ",") {
		s = strings.TrimSpace(s)
		i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
		if i <= 0 {
			return nil, fmt.Errorf("invalid coin %q", s)
		}
		amount, err := fixedpoint.ParseAmount(s[:i])
		if err != nil {
			return nil, err
		}
		coins = append(coins, domain.Coin{Denom: s[i:], Amount: amount})
	}
	return coins, nil
}

func post(
	url string, body any, headers map[string]string, tlsConfig *tls.Config,
) (json.RawMessage, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(req, tlsConfig)
}

func get(url string, tlsConfig *tls.Config) (json.RawMessage, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	return do(req, tlsConfig)
}

func do(req *http.Request, tlsConfig *tls.Config) (json.RawMessage, error) {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed (%d): %s", resp.StatusCode, string(buf))
	}
	return buf, nil
}

func printJSON(buf json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, buf, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}
