// Package auth signs and verifies basket requests. A request is signed with
// the secp256k1 key of its sender, whose account address is the bech32
// encoding of hash160(compressed pubkey) under the ledger prefix.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	PubkeyHeader    = "x-amalgam-pubkey"
	SignatureHeader = "x-amalgam-signature"
	TimestampHeader = "x-amalgam-timestamp"

	DefaultMaxAge = 5 * time.Minute
)

var (
	ErrMissingCredentials = errors.New("missing request signature")
	ErrInvalidSignature   = errors.New("invalid request signature")
	ErrExpiredSignature   = errors.New("request signature expired")
	ErrReplayedRequest    = errors.New("request already processed")
)

// Credentials travel along with a request, as gRPC metadata or HTTP headers.
type Credentials struct {
	Pubkey    string
	Signature string
	// Timestamp is expressed in unix milliseconds.
	Timestamp int64
}

func (c Credentials) Headers() map[string]string {
	return map[string]string{
		PubkeyHeader:    c.Pubkey,
		SignatureHeader: c.Signature,
		TimestampHeader: strconv.FormatInt(c.Timestamp, 10),
	}
}

// ParseCredentials builds the credentials out of the raw header values.
func ParseCredentials(pubkey, signature, timestamp string) (*Credentials, error) {
	if pubkey == "" && signature == "" && timestamp == "" {
		return nil, ErrMissingCredentials
	}
	if pubkey == "" || signature == "" || timestamp == "" {
		return nil, fmt.Errorf("%w: expected %s, %s and %s headers",
			ErrInvalidSignature, PubkeyHeader, SignatureHeader, TimestampHeader)
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp %s", ErrInvalidSignature, timestamp)
	}
	return &Credentials{Pubkey: pubkey, Signature: signature, Timestamp: ts}, nil
}

// AddressPrefix returns the human readable part of a bech32 address.
func AddressPrefix(address string) (string, error) {
	i := strings.LastIndexByte(address, '1')
	if i < 1 {
		return "", fmt.Errorf("invalid address %s: missing bech32 separator", address)
	}
	return address[:i], nil
}

// Address returns the account address of the given key.
func Address(prefix string, pubkey *btcec.PublicKey) (string, error) {
	grp, err := bech32.ConvertBits(btcutil.Hash160(pubkey.SerializeCompressed()), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(prefix, grp)
}

// Normalize turns v into the generic document form the server sees once the
// request is decoded, ie. numbers as float64 and structs as maps.
func Normalize(v any) (map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Digest is the hash signed by the sender: the rpc method, the timestamp and
// the request document encoded with sorted keys.
func Digest(method string, timestamp int64, body map[string]any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %s", err)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%d\n", method, timestamp)
	h.Write(buf)
	return h.Sum(nil), nil
}

// Sign signs the request body for the given rpc method.
func Sign(
	key *btcec.PrivateKey, method string, body map[string]any, now time.Time,
) (*Credentials, error) {
	timestamp := now.UnixMilli()
	digest, err := Digest(method, timestamp, body)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(key, digest)
	return &Credentials{
		Pubkey:    hex.EncodeToString(key.PubKey().SerializeCompressed()),
		Signature: hex.EncodeToString(sig.Serialize()),
		Timestamp: timestamp,
	}, nil
}

// ParsePrivateKey parses a hex encoded secp256k1 private key.
func ParsePrivateKey(key string) (*btcec.PrivateKey, error) {
	buf, err := hex.DecodeString(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("invalid private key format, expected hex")
	}
	if len(buf) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid private key length, expected %d bytes", btcec.PrivKeyBytesLen)
	}
	privkey, _ := btcec.PrivKeyFromBytes(buf)
	return privkey, nil
}

// Verifier checks request signatures and rejects the ones seen already
// within their validity window.
type Verifier struct {
	prefix string
	maxAge time.Duration
	now    func() time.Time

	lock sync.Mutex
	seen map[[sha256.Size]byte]time.Time
}

func NewVerifier(prefix string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Verifier{
		prefix: prefix,
		maxAge: maxAge,
		now:    time.Now,
		seen:   make(map[[sha256.Size]byte]time.Time),
	}
}

// Verify returns the address of the key that signed the request.
func (v *Verifier) Verify(
	method string, creds Credentials, body map[string]any,
) (string, error) {
	pubkeyBytes, err := hex.DecodeString(creds.Pubkey)
	if err != nil || len(pubkeyBytes) != btcec.PubKeyBytesLenCompressed {
		return "", fmt.Errorf("%w: invalid pubkey, expected 33 bytes hex", ErrInvalidSignature)
	}
	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	sigBytes, err := hex.DecodeString(creds.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: invalid signature format, expected hex", ErrInvalidSignature)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	now := v.now()
	signedAt := time.UnixMilli(creds.Timestamp)
	if now.Sub(signedAt).Abs() > v.maxAge {
		return "", ErrExpiredSignature
	}

	digest, err := Digest(method, creds.Timestamp, body)
	if err != nil {
		return "", err
	}
	if !sig.Verify(digest, pubkey) {
		return "", ErrInvalidSignature
	}

	if err := v.markSeen(digest, pubkeyBytes, signedAt.Add(v.maxAge), now); err != nil {
		return "", err
	}

	return Address(v.prefix, pubkey)
}

func (v *Verifier) markSeen(digest, pubkey []byte, expiry, now time.Time) error {
	key := sha256.Sum256(append(append([]byte{}, digest...), pubkey...))

	v.lock.Lock()
	defer v.lock.Unlock()

	for k, exp := range v.seen {
		if now.After(exp) {
			delete(v.seen, k)
		}
	}
	if _, ok := v.seen[key]; ok {
		return ErrReplayedRequest
	}
	v.seen[key] = expiry
	return nil
}

type signerKey struct{}

// WithSigner returns a copy of ctx carrying the verified signer address.
func WithSigner(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, signerKey{}, address)
}

// SignerFromContext returns the verified signer address, if any.
func SignerFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(signerKey{}).(string)
	return address, ok && address != ""
}
