// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package config loads the forge service configuration from an optional
// YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FORGED_CHAIN_RPC.
const EnvPrefix = "FORGED"

// Public endpoints used when nothing else is configured.
const (
	FujiRPC     = "https://api.avax-test.network/ext/bc/C/rpc"
	FujiChainID = 43113
)

var (
	ErrMissingContract = errors.New("config: contract address is not configured")
	ErrInvalidContract = errors.New("config: contract address is not a hex address")
)

// Config holds all service configuration.
type Config struct {
	// Env is "development" or "production".  Outside production failed
	// uploads are answered with mock references.
	Env string `mapstructure:"env"`

	Chain ChainConfig `mapstructure:"chain"`
	IPFS  IPFSConfig  `mapstructure:"ipfs"`
	Forge ForgeConfig `mapstructure:"forge"`
	Relay RelayConfig `mapstructure:"relay"`
	Store StoreConfig `mapstructure:"store"`
}

// ChainConfig selects the chain and the contract.
type ChainConfig struct {
	RPC                    string `mapstructure:"rpc"`
	AlchemyKey             string `mapstructure:"alchemy_key"`
	ChainID                int64  `mapstructure:"chain_id"`
	ChainName              string `mapstructure:"chain_name"`
	Contract               string `mapstructure:"contract"`
	KeyFile                string `mapstructure:"keyfile"`
	Password               string `mapstructure:"password"` // keystore passphrase
	WalletConnectProjectID string `mapstructure:"wallet_connect_project_id"`
}

// IPFSConfig configures retrieval and pinning.
type IPFSConfig struct {
	// Gateway, when set, replaces the first default gateway.
	Gateway       string        `mapstructure:"gateway"`
	Gateways      []string      `mapstructure:"gateways"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureWindow time.Duration `mapstructure:"failure_window"`

	// Provider is "pinata" or "filebase".
	Provider  string         `mapstructure:"provider"`
	PinataJWT string         `mapstructure:"pinata_jwt"`
	PinataURL string         `mapstructure:"pinata_url"`
	Filebase  FilebaseConfig `mapstructure:"filebase"`
}

// FilebaseConfig holds the S3 credentials of a Filebase bucket.
type FilebaseConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ForgeConfig tunes the forge flow and collection loading.
type ForgeConfig struct {
	Cooldown       time.Duration `mapstructure:"cooldown"`
	RefetchDelay   time.Duration `mapstructure:"refetch_delay"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	MintingFee     string        `mapstructure:"minting_fee"`
	ExternalURL    string        `mapstructure:"external_url"`
	ImageSize      int           `mapstructure:"image_size"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	PlayerTTL      time.Duration `mapstructure:"player_ttl"`
}

// RelayConfig configures the HTTP relay.
type RelayConfig struct {
	Listen        string   `mapstructure:"listen"`
	URL           string   `mapstructure:"url"`
	MaxUploadSize int64    `mapstructure:"max_upload_size"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
}

// StoreConfig locates the local databases.
type StoreConfig struct {
	DataDir string `mapstructure:"datadir"`
}

// envAliases binds the environment names used by existing deployments.
var envAliases = map[string][]string{
	"env":                             {"NODE_ENV"},
	"chain.contract":                  {"NEXT_PUBLIC_CONTRACT_ADDRESS"},
	"chain.alchemy_key":               {"NEXT_PUBLIC_ALCHEMY_API_KEY"},
	"chain.wallet_connect_project_id": {"NEXT_PUBLIC_WALLET_CONNECT_PROJECT_ID"},
	"ipfs.gateway":                    {"NEXT_PUBLIC_IPFS_GATEWAY"},
	"ipfs.pinata_jwt":                 {"PINATA_JWT"},
}

// Load reads the configuration.  A .env file in the working directory is
// loaded first; path names an optional YAML file, by default forged.yaml in
// the working directory.  FORGED_* variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to load .env: %w", err)
	}
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("forged")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	// Keys without a value still need registering for AutomaticEnv to
	// reach them on Unmarshal.
	for _, key := range []string{
		"chain.rpc", "chain.keyfile", "chain.password", "relay.url",
		"ipfs.filebase.bucket", "ipfs.filebase.access_key", "ipfs.filebase.secret_key",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("ipfs.gateways", []string{})

	v.SetDefault("chain.chain_id", FujiChainID)
	v.SetDefault("chain.chain_name", forge.DefaultChainName)

	v.SetDefault("ipfs.timeout", ipfs.DefaultAttemptTimeout)
	v.SetDefault("ipfs.failure_window", ipfs.DefaultFailureWindow)
	v.SetDefault("ipfs.provider", "pinata")
	v.SetDefault("ipfs.pinata_url", ipfs.DefaultPinataURL)
	v.SetDefault("ipfs.filebase.endpoint", ipfs.DefaultFilebaseEndpoint)
	v.SetDefault("ipfs.filebase.region", "us-east-1")

	v.SetDefault("forge.cooldown", forge.DefaultCooldown)
	v.SetDefault("forge.refetch_delay", forge.DefaultRefetchDelay)
	v.SetDefault("forge.confirm_timeout", forge.DefaultConfirmTimeout)
	v.SetDefault("forge.minting_fee", "0.001")
	v.SetDefault("forge.external_url", forge.DefaultExternalURL)
	v.SetDefault("forge.image_size", forge.DefaultImageSize)
	v.SetDefault("forge.batch_size", 3)
	v.SetDefault("forge.batch_delay", 200*time.Millisecond)
	v.SetDefault("forge.cache_ttl", 5*time.Minute)
	v.SetDefault("forge.player_ttl", forge.DefaultPlayerTTL)

	v.SetDefault("relay.listen", ":3000")
	v.SetDefault("relay.max_upload_size", 10<<20)
	v.SetDefault("relay.cors_origins", []string{"*"})

	v.SetDefault("store.datadir", "forged-data")
}

// Validate checks that the settings every command needs are present.
func (c *Config) Validate() error {
	if c.Chain.Contract == "" {
		return ErrMissingContract
	}
	if !common.IsHexAddress(c.Chain.Contract) {
		return fmt.Errorf("%w: %q", ErrInvalidContract, c.Chain.Contract)
	}
	if _, err := c.MintingFeeWei(); err != nil {
		return fmt.Errorf("config: forge.minting_fee: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// ContractAddress returns the configured contract address.
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Chain.Contract)
}

// RPCURL returns the JSON-RPC endpoint: the configured URL, an Alchemy
// endpoint when only an API key is set, or the public Fuji endpoint.
func (c *Config) RPCURL() string {
	switch {
	case c.Chain.RPC != "":
		return c.Chain.RPC
	case c.Chain.AlchemyKey != "":
		return "https://avax-fuji.g.alchemy.com/v2/" + c.Chain.AlchemyKey
	default:
		return FujiRPC
	}
}

// GatewayList returns the retrieval gateways in priority order.
func (c *Config) GatewayList() []string {
	gws := c.IPFS.Gateways
	if len(gws) == 0 {
		gws = ipfs.DefaultGateways
	}
	out := append([]string(nil), gws...)
	if c.IPFS.Gateway != "" {
		out[0] = c.IPFS.Gateway
	}
	return out
}

// MintingFeeWei returns the fallback minting fee in wei.
func (c *Config) MintingFeeWei() (*big.Int, error) {
	if c.Forge.MintingFee == "" {
		return new(big.Int).Set(forge.DefaultMintingFee), nil
	}
	return forge.ParseEther(c.Forge.MintingFee)
}

// DataPath returns the path of a file inside the data directory.
func (c *Config) DataPath(name string) string {
	return filepath.Join(c.Store.DataDir, name)
}
