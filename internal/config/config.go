// Package config loads the configuration surface (program subscriptions,
// signal weights, fingerprints, thresholds, launchpad constants) from a
// YAML file plus environment overrides for secrets and endpoints, returning
// a typed ConfigInvalid error instead of calling log.Fatal.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/model"
)

// ProgramSubscription is the YAML-facing shape of a ProgramDescriptor.
type ProgramSubscription struct {
	Alias   string `yaml:"alias"`
	Address string `yaml:"address"`
}

// FingerprintSpec is the YAML-facing shape of a Fingerprint (§4.5).
type FingerprintSpec struct {
	Tag                  string   `yaml:"tag"`
	RequiredInstructions []string `yaml:"required_instructions"`
	RequiredPrograms     []string `yaml:"required_programs"`
	Logic                string   `yaml:"logic"` // AND | OR | FUZZY
	MinScore             float64  `yaml:"min_score"`
	Confidence           float64  `yaml:"confidence"`
}

// fileConfig is the raw YAML document shape.
type fileConfig struct {
	ProgramSubscriptions []ProgramSubscription `yaml:"program_subscriptions"`
	SignalWeights        map[string]float64    `yaml:"signal_weights"`
	Fingerprints         []FingerprintSpec     `yaml:"fingerprints"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	ScoreThreshold      float64 `yaml:"score_threshold"`
	StaleSlotThreshold  uint64  `yaml:"stale_slot_threshold"`

	RPCRateLimit    float64 `yaml:"rpc_rate_limit"`
	RPCMaxRetries   int     `yaml:"rpc_max_retries"`
	RPCRetryDelayMS int     `yaml:"rpc_retry_delay_ms"`

	SocketMessageRateLimit float64 `yaml:"socket_message_rate_limit"`

	LaunchpadProgramID  string `yaml:"launchpad_program_id"`
	GlobalFeeVault      string `yaml:"global_fee_vault"`
	ConfigAuthority     string `yaml:"config_authority"`
	BuyDiscriminatorHex string `yaml:"buy_discriminator_hex"`

	AmountInNative uint64   `yaml:"amount_in_native"`
	DEXPriority    []string `yaml:"dex_priority"`
}

// Config is the fully resolved, immutable configuration handed by
// reference to every subsystem at construction time (§9 "Global mutable
// state" — this struct itself is never mutated after Load returns).
type Config struct {
	SocketURL string
	RPCURL    string

	ProgramSubscriptions []model.ProgramDescriptor
	SignalWeights        map[string]float64
	Fingerprints         []FingerprintSpec

	ConfidenceThreshold float64
	ScoreThreshold      float64
	StaleSlotThreshold  uint64

	RPCRateLimit    float64
	RPCMaxRetries   int
	RPCRetryDelayMS int

	SocketMessageRateLimit float64

	LaunchpadProgramID solana.PublicKey
	GlobalFeeVault     solana.PublicKey
	ConfigAuthority    solana.PublicKey
	BuyDiscriminator   [8]byte

	AmountInNative uint64
	DEXPriority    []string

	PayerSecret solana.PrivateKey
}

// Load reads path as YAML, then overlays environment variables (loaded from
// envFile via godotenv, falling back to the process environment) for secrets
// and endpoints. Any missing required field is a ConfigInvalid error, not a
// fatal log call, so the caller controls the process exit path.
func Load(path, envFile string) (*Config, error) {
	_ = godotenv.Load(envFile)
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "read config file", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "parse config yaml", err)
	}

	cfg := &Config{
		SignalWeights:          fc.SignalWeights,
		Fingerprints:           fc.Fingerprints,
		ConfidenceThreshold:    fc.ConfidenceThreshold,
		ScoreThreshold:         fc.ScoreThreshold,
		StaleSlotThreshold:     fc.StaleSlotThreshold,
		RPCRateLimit:           fc.RPCRateLimit,
		RPCMaxRetries:          fc.RPCMaxRetries,
		RPCRetryDelayMS:        fc.RPCRetryDelayMS,
		SocketMessageRateLimit: fc.SocketMessageRateLimit,
		AmountInNative:         fc.AmountInNative,
		DEXPriority:            fc.DEXPriority,
	}

	cfg.SocketURL = os.Getenv("SOCKET_URL")
	cfg.RPCURL = os.Getenv("RPC_URL")
	if cfg.SocketURL == "" {
		return nil, errkind.New(errkind.ConfigInvalid, "SOCKET_URL not set")
	}
	if cfg.RPCURL == "" {
		return nil, errkind.New(errkind.ConfigInvalid, "RPC_URL not set")
	}

	payerHex := os.Getenv("PAYER_SECRET_KEY")
	if payerHex == "" {
		return nil, errkind.New(errkind.ConfigInvalid, "PAYER_SECRET_KEY not set")
	}
	payer, err := solana.PrivateKeyFromBase58(payerHex)
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "PAYER_SECRET_KEY invalid", err)
	}
	cfg.PayerSecret = payer

	for _, ps := range fc.ProgramSubscriptions {
		addr, err := solana.PublicKeyFromBase58(ps.Address)
		if err != nil {
			return nil, errkind.Wrap(errkind.ConfigInvalid, fmt.Sprintf("program_subscriptions[%s]", ps.Alias), err)
		}
		cfg.ProgramSubscriptions = append(cfg.ProgramSubscriptions, model.ProgramDescriptor{
			Label:   model.ProgramAlias(ps.Alias),
			Address: addr,
		})
	}
	if len(cfg.ProgramSubscriptions) == 0 {
		return nil, errkind.New(errkind.ConfigInvalid, "program_subscriptions is empty")
	}

	if cfg.LaunchpadProgramID, err = solana.PublicKeyFromBase58(fc.LaunchpadProgramID); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "launchpad_program_id", err)
	}
	if cfg.GlobalFeeVault, err = solana.PublicKeyFromBase58(fc.GlobalFeeVault); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "global_fee_vault", err)
	}
	if cfg.ConfigAuthority, err = solana.PublicKeyFromBase58(fc.ConfigAuthority); err != nil {
		return nil, errkind.Wrap(errkind.ConfigInvalid, "config_authority", err)
	}

	discBytes, err := hex.DecodeString(fc.BuyDiscriminatorHex)
	if err != nil || len(discBytes) != 8 {
		return nil, errkind.New(errkind.ConfigInvalid, "buy_discriminator_hex must be 8 bytes of hex")
	}
	copy(cfg.BuyDiscriminator[:], discBytes)

	if cfg.AmountInNative == 0 {
		return nil, errkind.New(errkind.ConfigInvalid, "amount_in_native must be > 0")
	}

	return cfg, nil
}
