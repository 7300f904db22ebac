// Copyright 2018 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// forged runs the Blacksmith weapon forge service.
//
// It connects to the chain, binds the BlacksmithNFT contract and serves the
// upload relay, weapon and collection reads, server-side forging and a
// JSON-RPC API.  The remaining commands operate on the same configuration
// from the command line.
//
// Usage:
//   forged [--config forged.yaml] [--verbosity 3] [run]
//   forged info [--address <player>]
//   forged forge --type sword --tier 1 [--relay <url>]
//   forged render --type bow --tier 3 --rarity epic --out bow.png
//   forged collection --address <owner> [--type axe] [--sort rarity]
package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blacksmith-forge/blacksmith/config"
	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/blacksmith-forge/blacksmith/internal/batch"
	"github.com/blacksmith-forge/blacksmith/internal/janitor"
	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/blacksmith-forge/blacksmith/relay"
	"github.com/blacksmith-forge/blacksmith/store"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	app = cli.NewApp()

	// Global flags
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file (default: ./forged.yaml if present)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	relayFlag = cli.StringFlag{
		Name:  "relay",
		Usage: "Upload through a remote relay instead of a pinning service",
	}

	// Command flags
	addressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "Player address",
	}
	typeFlag = cli.StringFlag{
		Name:  "type",
		Usage: "Weapon type: sword, bow or axe",
	}
	tierFlag = cli.IntFlag{
		Name:  "tier",
		Usage: "Weapon tier (1-10)",
		Value: 1,
	}
	rarityFlag = cli.StringFlag{
		Name:  "rarity",
		Usage: "Weapon rarity: common, uncommon, rare, epic or legendary",
		Value: "common",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Random seed of the rendered artwork",
		Value: 1,
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Output PNG file",
		Value: "weapon.png",
	}
	sortFlag = cli.StringFlag{
		Name:  "sort",
		Usage: "Sort order: newest, oldest, rarity or stats",
		Value: "newest",
	}
)

func init() {
	app.Name = "forged"
	app.Usage = "Blacksmith weapon forge service"
	app.Version = "0.1.0"
	app.Action = run
	app.Flags = []cli.Flag{
		configFlag,
		verbosityFlag,
		relayFlag,
	}
	app.Before = func(ctx *cli.Context) error {
		setupLogging(ctx.GlobalInt(verbosityFlag.Name))
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Serve the relay, the forge API and JSON-RPC (default)",
			Action: run,
		},
		{
			Name:   "info",
			Usage:  "Print contract, fee and optionally player information",
			Action: infoCmd,
			Flags:  []cli.Flag{addressFlag},
		},
		{
			Name:   "forge",
			Usage:  "Forge a weapon with the configured key",
			Action: forgeCmd,
			Flags:  []cli.Flag{typeFlag, tierFlag},
		},
		{
			Name:   "render",
			Usage:  "Render weapon artwork to a PNG file",
			Action: renderCmd,
			Flags:  []cli.Flag{typeFlag, tierFlag, rarityFlag, seedFlag, outFlag},
		},
		{
			Name:   "collection",
			Usage:  "List the weapons of a player",
			Action: collectionCmd,
			Flags:  []cli.Flag{addressFlag, typeFlag, rarityFlag, sortFlag},
		},
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(verbosity int) {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(verbosity), true)))
}

// node holds the wired components of the service.
type node struct {
	cfg      *config.Config
	client   *ethclient.Client
	chain    *forge.EthereumBackend
	failures *ipfs.FailureCache
	fetcher  *ipfs.Fetcher
	cache    *store.MetadataCache
	journal  *store.Journal
	service  *forge.Service
	uploader forge.Uploader
	forger   *forge.Forger
}

// makeNode loads the configuration and wires every component.  The forger
// is only created when signing is true and a key is configured.
func makeNode(ctx *cli.Context, signing bool) (*node, error) {
	cfg, err := config.Load(ctx.GlobalString(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &node{cfg: cfg}

	var key *ecdsa.PrivateKey
	if signing && cfg.Chain.KeyFile != "" {
		if key, err = loadKey(cfg.Chain.KeyFile, cfg.Chain.Password); err != nil {
			return nil, err
		}
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n.chain, n.client, err = forge.DialEthereum(dialCtx, cfg.RPCURL(), cfg.ContractAddress(), key)
	if err != nil {
		return nil, err
	}

	n.failures = ipfs.NewFailureCache(cfg.IPFS.FailureWindow, nil)
	n.fetcher = ipfs.NewFetcher(ipfs.NewResolver(cfg.GatewayList(), n.failures), ipfs.FetcherOptions{
		Timeout: cfg.IPFS.Timeout,
	})

	if err := os.MkdirAll(cfg.Store.DataDir, 0700); err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if n.cache, err = store.OpenMetadataCache(cfg.DataPath("metadata.db")); err != nil {
		n.Close()
		return nil, err
	}
	if n.journal, err = store.OpenJournal(cfg.DataPath("journal.db")); err != nil {
		n.Close()
		return nil, err
	}

	n.service = forge.NewService(n.chain, n.fetcher, forge.ServiceOptions{
		Cache:     n.cache,
		PlayerTTL: cfg.Forge.PlayerTTL,
		WeaponTTL: cfg.Forge.CacheTTL,
		Batch:     batch.Options{Size: cfg.Forge.BatchSize, Delay: cfg.Forge.BatchDelay},
	})

	relayURL := ctx.GlobalString(relayFlag.Name)
	if relayURL == "" {
		relayURL = cfg.Relay.URL
	}
	if n.uploader, err = makeUploader(cfg, relayURL); err != nil {
		n.Close()
		return nil, err
	}

	if key != nil {
		fee, err := cfg.MintingFeeWei()
		if err != nil {
			n.Close()
			return nil, err
		}
		n.forger = forge.NewForger(n.chain, n.uploader, forge.ForgerOptions{
			Cooldown:       cfg.Forge.Cooldown,
			RefetchDelay:   cfg.Forge.RefetchDelay,
			ConfirmTimeout: cfg.Forge.ConfirmTimeout,
			FallbackFee:    fee,
			ImageSize:      cfg.Forge.ImageSize,
			ImageGateway:   cfg.GatewayList()[0],
			ExternalURL:    cfg.Forge.ExternalURL,
			ChainName:      cfg.Chain.ChainName,
			Refetch: func(ctx context.Context, addr common.Address) {
				if _, err := n.service.RefreshPlayer(ctx, addr); err != nil {
					log.Warn("Failed to refresh player", "addr", addr, "err", err)
				}
			},
			Observers: []forge.Observer{n.journal},
			Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		})
		log.Info("Forging enabled", "account", n.forger.Account())
	}
	return n, nil
}

// Close releases the databases and the RPC connection.
func (n *node) Close() {
	if n.journal != nil {
		n.journal.Close()
	}
	if n.cache != nil {
		n.cache.Close()
	}
	if n.client != nil {
		n.client.Close()
	}
}

// makeUploader selects the storage path: a remote relay, Pinata or Filebase.
// Outside production failed pins degrade to mock references.
func makeUploader(cfg *config.Config, relayURL string) (forge.Uploader, error) {
	if relayURL != "" {
		log.Info("Uploading through relay", "url", relayURL)
		return relay.NewClient(relayURL, nil), nil
	}
	var (
		pinner ipfs.Pinner
		err    error
	)
	switch provider := strings.ToLower(cfg.IPFS.Provider); provider {
	case "", "pinata":
		if cfg.IPFS.PinataJWT == "" {
			log.Warn("No Pinata JWT configured, uploads will fail")
		}
		pinner = ipfs.NewPinataClient(cfg.IPFS.PinataURL, cfg.IPFS.PinataJWT, nil)
	case "filebase":
		fb := cfg.IPFS.Filebase
		pinner, err = ipfs.NewFilebasePinner(context.Background(), ipfs.FilebaseConfig{
			Endpoint:  fb.Endpoint,
			Region:    fb.Region,
			Bucket:    fb.Bucket,
			AccessKey: fb.AccessKey,
			SecretKey: fb.SecretKey,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown IPFS provider %q", provider)
	}
	return forge.NewPinningUploader(pinner, forge.UploaderOptions{MockOnFailure: !cfg.IsProduction()}), nil
}

// loadKey reads an encrypted JSON keystore file or a hex-encoded raw key.
func loadKey(path, password string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		key, err := keystore.DecryptKey(data, password)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt key file: %w", err)
		}
		return key.PrivateKey, nil
	}
	return crypto.LoadECDSA(path)
}

func run(ctx *cli.Context) error {
	n, err := makeNode(ctx, true)
	if err != nil {
		return err
	}
	defer n.Close()
	cfg := n.cfg

	api := forge.NewAPI(n.service, n.forger)
	rpcSrv := rpc.NewServer()
	defer rpcSrv.Stop()
	for _, desc := range api.APIs() {
		if err := rpcSrv.RegisterName(desc.Namespace, desc.Service); err != nil {
			return err
		}
	}

	fee, err := cfg.MintingFeeWei()
	if err != nil {
		return err
	}
	srv := relay.NewServer(relay.Config{
		Service:  n.service,
		Uploader: n.uploader,
		Forger:   n.forger,
		Journal:  n.journal,
		RPC:      rpcSrv,
		Public: relay.PublicConfig{
			ContractAddress:        cfg.ContractAddress().Hex(),
			ChainID:                cfg.Chain.ChainID,
			ChainName:              cfg.Chain.ChainName,
			WalletConnectProjectID: cfg.Chain.WalletConnectProjectID,
			Gateway:                cfg.GatewayList()[0],
			MintingFee:             forge.FormatEther(fee),
		},
		MaxUploadSize: cfg.Relay.MaxUploadSize,
		CORSOrigins:   cfg.Relay.CORSOrigins,
		AccessLog:     os.Stderr,
	})

	jan, err := janitor.New(nil, nil)
	if err != nil {
		return err
	}
	if err := jan.Every("gateway-failures", n.failures.Window(), n.failures.Prune); err != nil {
		return err
	}
	jan.Start()
	defer jan.Stop()

	log.Info("Forge service starting",
		"rpc", cfg.RPCURL(),
		"contract", cfg.ContractAddress(),
		"listen", cfg.Relay.Listen,
		"env", cfg.Env,
		"datadir", cfg.Store.DataDir,
	)

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigctx)
	g.Go(func() error { return srv.Listen(cfg.Relay.Listen) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func infoCmd(ctx *cli.Context) error {
	n, err := makeNode(ctx, false)
	if err != nil {
		return err
	}
	defer n.Close()
	c := context.Background()

	out := map[string]any{
		"contract":  n.cfg.ContractAddress(),
		"rpc":       n.cfg.RPCURL(),
		"chainName": n.cfg.Chain.ChainName,
		"gateways":  n.cfg.GatewayList(),
	}
	if chainID, err := n.client.ChainID(c); err == nil {
		out["chainId"] = chainID
	}
	if fee, err := n.chain.MintingFee(c); err == nil {
		out["mintingFee"] = forge.FormatEther(fee)
	} else {
		log.Warn("Failed to read minting fee", "err", err)
	}
	if raw := ctx.String(addressFlag.Name); raw != "" {
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("invalid address %q", raw)
		}
		p, err := n.service.Player(c, common.HexToAddress(raw))
		if err != nil {
			return err
		}
		out["player"] = p
		out["unlockedTiers"] = forge.NewAPI(n.service, nil).UnlockedTiers(int(p.Level))
	}
	return printJSON(out)
}

func forgeCmd(ctx *cli.Context) error {
	req, err := forgeRequest(ctx)
	if err != nil {
		return err
	}
	n, err := makeNode(ctx, true)
	if err != nil {
		return err
	}
	defer n.Close()
	if n.forger == nil {
		return errors.New("no signing key configured (chain.keyfile)")
	}
	res, err := n.forger.Forge(context.Background(), req)
	if err != nil {
		ge := forge.Classify(err, nil)
		p := forge.Describe(ge)
		return fmt.Errorf("%s: %s (%s)", p.Title, p.Message, p.Action)
	}
	for _, w := range res.Warnings {
		log.Warn("Forged with warning", "type", w.Type, "msg", w.Message)
	}
	return printJSON(res)
}

func renderCmd(ctx *cli.Context) error {
	req, err := forgeRequest(ctx)
	if err != nil {
		return err
	}
	rarity, err := forge.ParseRarity(ctx.String(rarityFlag.Name))
	if err != nil {
		return err
	}
	def, err := forge.Lookup(req.WeaponType, req.Tier)
	if err != nil {
		return err
	}
	cfg := forge.ImageConfig{
		Width:      forge.DefaultImageSize,
		Height:     forge.DefaultImageSize,
		WeaponType: req.WeaponType,
		Tier:       req.Tier,
		Rarity:     rarity,
		Stats:      def.BaseStats,
	}
	png, err := forge.EncodePNG(forge.RenderWeapon(cfg, rand.New(rand.NewSource(ctx.Int64(seedFlag.Name)))))
	if err != nil {
		return err
	}
	out := ctx.String(outFlag.Name)
	if err := os.WriteFile(out, png, 0644); err != nil {
		return err
	}
	log.Info("Rendered weapon", "name", def.Name, "rarity", rarity, "file", out, "size", len(png))
	return nil
}

func collectionCmd(ctx *cli.Context) error {
	raw := ctx.String(addressFlag.Name)
	if !common.IsHexAddress(raw) {
		return fmt.Errorf("--%s must be a hex address", addressFlag.Name)
	}
	filter := new(forge.Filter)
	if v := ctx.String(typeFlag.Name); v != "" {
		t, err := forge.ParseWeaponType(v)
		if err != nil {
			return err
		}
		filter.WeaponType = &t
	}
	if ctx.IsSet(rarityFlag.Name) {
		r, err := forge.ParseRarity(ctx.String(rarityFlag.Name))
		if err != nil {
			return err
		}
		filter.Rarity = &r
	}
	order, err := forge.ParseSortOrder(ctx.String(sortFlag.Name))
	if err != nil {
		return err
	}
	filter.SortBy = order

	n, err := makeNode(ctx, false)
	if err != nil {
		return err
	}
	defer n.Close()
	res, err := n.service.Collection(context.Background(), common.HexToAddress(raw), filter)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		log.Warn(res.Warning)
	}
	return printJSON(res)
}

func forgeRequest(ctx *cli.Context) (forge.ForgeRequest, error) {
	t, err := forge.ParseWeaponType(ctx.String(typeFlag.Name))
	if err != nil {
		return forge.ForgeRequest{}, err
	}
	tier := ctx.Int(tierFlag.Name)
	if tier < forge.MinTier || tier > forge.MaxTier {
		return forge.ForgeRequest{}, fmt.Errorf("%w: %d", forge.ErrInvalidTier, tier)
	}
	return forge.ForgeRequest{WeaponType: t, Tier: uint8(tier)}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
