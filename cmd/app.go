package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crosswap/config"
	"crosswap/pkg/amm"
	"crosswap/pkg/assets"
	"crosswap/pkg/boost"
	"crosswap/pkg/bridge"
	"crosswap/pkg/chain"
	"crosswap/pkg/engine"
	"crosswap/pkg/intent"
	"crosswap/pkg/lock"
	"crosswap/pkg/poll"
	"crosswap/pkg/store"
	"crosswap/pkg/swap"
)

// app wires the whole engine together from configuration: asset registry,
// chain clients, state store, providers, scheduler.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	network  swap.Network
	assets   *assets.Registry
	registry *swap.Registry
	store    *store.Store
	engine   *engine.Engine
}

// prettyUnits renders a smallest-unit amount in currency units.
func prettyUnits(a *app, asset string, units decimal.Decimal) string {
	currency, err := a.assets.UnitToCurrency(asset, units)
	if err != nil {
		return units.String()
	}
	return currency.String()
}

func newApp() (*app, error) {
	cfg := config.Get()

	log, err := buildLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	reg, err := assets.NewRegistry(assets.DefaultAssets())
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.StoragePath, reg, log)
	if err != nil {
		return nil, err
	}

	network := swap.Network(cfg.Network)
	a := &app{
		cfg:      cfg,
		log:      log,
		network:  network,
		assets:   reg,
		registry: swap.NewRegistry(log),
		store:    st,
	}

	a.connectChains()
	if err := a.registerProviders(reg); err != nil {
		return nil, err
	}

	a.engine = engine.New(a.registry, st, time.Duration(cfg.TickIntervalSeconds)*time.Second, log)
	return a, nil
}

func buildLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// connectChains dials every configured chain. A chain that fails to connect
// is skipped with a warning; swaps not touching it still work.
func (a *app) connectChains() {
	for name, evmCfg := range a.cfg.EVM {
		if evmCfg.RPCURL == "" {
			continue
		}
		client, err := chain.NewEVMClient(chain.EVMConfig{
			RPCURL:     evmCfg.RPCURL,
			ChainID:    evmCfg.ChainID,
			PrivateKey: evmCfg.PrivateKey,
		})
		if err != nil {
			a.log.Warn("skipping chain", zap.String("chain", name), zap.Error(err))
			continue
		}
		a.store.RegisterClient(name, client)
	}
	if a.cfg.Solana.RPCURL != "" {
		client, err := chain.NewSolanaClient(chain.SolanaConfig{
			RPCURL:     a.cfg.Solana.RPCURL,
			PrivateKey: a.cfg.Solana.PrivateKey,
			Commitment: a.cfg.Solana.Commitment,
		})
		if err != nil {
			a.log.Warn("skipping chain", zap.String("chain", "solana"), zap.Error(err))
		} else {
			a.store.RegisterClient("solana", client)
		}
	}
}

func (a *app) registerProviders(reg *assets.Registry) error {
	locks := lock.NewKeyed()
	pollCfg := poll.Config{
		Interval: time.Duration(a.cfg.PollIntervalSeconds) * time.Second,
		Timeout:  time.Duration(a.cfg.PollTimeoutSeconds) * time.Second,
	}

	bridgeChains := bridge.DefaultChains()
	subgraphURLs := make(map[string]string)
	for name, evmCfg := range a.cfg.EVM {
		chainCfg, ok := bridgeChains[name]
		if !ok {
			continue
		}
		chainCfg.BridgeContract = evmCfg.BridgeContract
		bridgeChains[name] = chainCfg
		if evmCfg.SubgraphURL != "" {
			subgraphURLs[name] = evmCfg.SubgraphURL
		}
	}

	bridgeProv, err := bridge.NewProvider(bridge.Config{
		Chains: bridgeChains,
		FeeBps: a.cfg.BridgeFeeBps,
		Poll:   pollCfg,
	}, reg, bridge.NewSubgraphClient(subgraphURLs), locks, a.log)
	if err != nil {
		return err
	}
	if err := a.registry.Register(a.network, bridgeProv); err != nil {
		return err
	}

	ammChains := make(map[string]amm.ChainConfig)
	for name, evmCfg := range a.cfg.EVM {
		if evmCfg.AMMRouter == "" {
			continue
		}
		ammChains[name] = amm.ChainConfig{
			Router:          evmCfg.AMMRouter,
			SwapGasLimit:    200000,
			ApproveGasLimit: 100000,
		}
	}
	if len(ammChains) > 0 {
		pairs, err := a.configuredPairs()
		if err != nil {
			return err
		}
		ammProv, err := amm.NewProvider(amm.Config{
			Chains: ammChains,
			Pairs:  pairs,
			FeeBps: a.cfg.AMMFeeBps,
			Poll:   pollCfg,
		}, reg, locks, a.log)
		if err != nil {
			return err
		}
		if err := a.registry.Register(a.network, ammProv); err != nil {
			return err
		}

		boostProv, err := boost.NewProvider(bridgeProv, ammProv, reg, a.log)
		if err != nil {
			return err
		}
		if err := a.registry.Register(a.network, boostProv); err != nil {
			return err
		}
	}

	if a.cfg.OneClickJWT != "" {
		intentCfg := intent.DefaultConfig()
		intentCfg.Poll = pollCfg
		intentProv, err := intent.NewProvider(
			intentCfg,
			intent.NewClient(a.cfg.OneClickJWT),
			reg, locks,
			a.recipientResolver(),
			a.log,
		)
		if err != nil {
			return err
		}
		if err := a.registry.Register(a.network, intentProv); err != nil {
			return err
		}
	}

	return nil
}

// recipientResolver answers intent-provider recipient lookups with the
// local signing address on the destination chain.
func (a *app) recipientResolver() intent.RecipientResolver {
	return func(network swap.Network, walletID, chainName string) (string, error) {
		client, err := a.store.ClientForChain(chainName)
		if err != nil {
			return "", err
		}
		addrs := client.Addresses()
		if len(addrs) == 0 {
			return "", fmt.Errorf("no addresses on chain %q", chainName)
		}
		return addrs[0], nil
	}
}

func (a *app) configuredPairs() ([]swap.PairEntry, error) {
	pairs := make([]swap.PairEntry, 0, len(a.cfg.Pairs))
	for _, p := range a.cfg.Pairs {
		rate, err := decimal.NewFromString(p.Rate)
		if err != nil {
			return nil, fmt.Errorf("pair %s-%s: invalid rate %q: %w", p.From, p.To, p.Rate, err)
		}
		pairs = append(pairs, swap.PairEntry{From: p.From, To: p.To, Rate: rate})
	}
	return pairs, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
