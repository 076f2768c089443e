// Command ledgerline runs a proof-of-work blockchain node: `open` starts
// a fresh chain and mines its own genesis block; `join` bootstraps from
// an existing peer.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ledgerline/node/block"
	"github.com/ledgerline/node/config"
	"github.com/ledgerline/node/ingress"
	"github.com/ledgerline/node/ledger"
	"github.com/ledgerline/node/log"
	"github.com/ledgerline/node/node"
	"github.com/ledgerline/node/wallet"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn("main: failed to set GOMAXPROCS", "error", err)
	}

	app := &cli.App{
		Name:  "ledgerline",
		Usage: "a minimal proof-of-work blockchain node",
		Commands: []*cli.Command{
			openCommand(),
			joinCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("main: fatal error", "error", err)
	}
}

var (
	configFlag      = &cli.StringFlag{Name: "config", Usage: "TOML config file; flags override its values"}
	bindAddressFlag = &cli.StringFlag{Name: "bind-address", Usage: "address this node listens on, host:port"}
	ledgerPathFlag  = &cli.StringFlag{Name: "ledger-path", Usage: "goleveldb directory for the ledger"}
	metricsFlag     = &cli.StringFlag{Name: "metrics-address", Usage: "if set, serve /metrics on this address"}
	walletKeyFlag   = &cli.StringFlag{Name: "wallet-key", EnvVars: []string{"LEDGERLINE_WALLET_KEY"}, Usage: "hex secp256k1 private key; generated fresh if omitted"}
	rewardFlag      = &cli.Uint64Flag{Name: "reward-amount", Value: 50, Usage: "mining reward credited per block"}
)

// loadConfig merges the TOML file (if any) with flag overrides. A flag
// set on the command line always wins over a value from the file.
func loadConfig(c *cli.Context) config.Config {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Crit("main: failed to load config file", "path", path, "error", err)
		}
		cfg = loaded
	}
	if addr := c.String("bind-address"); addr != "" {
		cfg.BindAddress = addr
	}
	if path := c.String("ledger-path"); path != "" {
		cfg.LedgerPath = path
	}
	if addr := c.String("metrics-address"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if addr := c.String("peer-address"); addr != "" {
		cfg.PeerAddress = addr
	}
	return cfg
}

func openCommand() *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "start a fresh chain and mine genesis",
		Flags: []cli.Flag{configFlag, bindAddressFlag, ledgerPathFlag, metricsFlag, walletKeyFlag, rewardFlag},
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			n, cleanup, err := buildNode(c, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n.Start(ctx)
			n.Open()
			log.Info("main: node opened", "address", cfg.BindAddress)

			<-ctx.Done()
			return nil
		},
	}
}

func joinCommand() *cli.Command {
	return &cli.Command{
		Name:  "join",
		Usage: "bootstrap from an existing peer",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "peer-address", Usage: "bootstrap peer, host:port"},
		}, configFlag, bindAddressFlag, ledgerPathFlag, metricsFlag, walletKeyFlag, rewardFlag),
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			if cfg.PeerAddress == "" {
				return fmt.Errorf("join requires a bootstrap peer (--peer-address or peer_address in the config file)")
			}
			n, cleanup, err := buildNode(c, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n.Start(ctx)
			n.Join(cfg.PeerAddress)
			log.Info("main: node joined", "address", cfg.BindAddress, "peer", cfg.PeerAddress)

			<-ctx.Done()
			return nil
		},
	}
}

// buildNode wires together the wallet, ledger, listener and optional
// metrics server shared by both subcommands.
func buildNode(c *cli.Context, cfg config.Config) (*node.Node, func(), error) {
	w, err := loadOrCreateWallet(c.String("wallet-key"))
	if err != nil {
		return nil, nil, err
	}

	led, err := ledger.OpenLevelDB(cfg.LedgerPath)
	if err != nil {
		log.Crit("main: failed to open ledger", "path", cfg.LedgerPath, "error", err)
	}

	n := node.New(node.Options{
		SelfAddress:  cfg.BindAddress,
		Wallet:       w,
		Ledger:       led,
		Difficulty:   block.ProductionDifficulty,
		RewardAmount: uint256.NewInt(c.Uint64("reward-amount")),
	})
	if err := n.Listen(); err != nil {
		return nil, nil, err
	}

	var metricsServer *http.Server
	if addr := cfg.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("main: metrics server stopped", "error", err)
			}
		}()
	}

	ingressMux := http.NewServeMux()
	ingressMux.Handle("/transactions", ingress.Handler(n.Mempool(), led))
	ingressServer := &http.Server{Addr: ingressAddress(n.SelfAddress), Handler: ingressMux}
	go func() {
		if err := ingressServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("main: ingress server stopped", "error", err)
		}
	}()

	cleanup := func() {
		_ = ingressServer.Close()
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		_ = n.Close()
	}
	return n, cleanup, nil
}

func loadOrCreateWallet(hexKey string) (*wallet.Wallet, error) {
	if hexKey != "" {
		return wallet.Load(hexKey)
	}
	return wallet.New()
}

// ingressAddress offsets the transaction-ingress HTTP port by one from
// the p2p bind address so the two listeners never collide on a single
// host during local multi-node tests.
func ingressAddress(bindAddress string) string {
	host, portStr, err := net.SplitHostPort(bindAddress)
	if err != nil {
		log.Crit("main: malformed bind address", "address", bindAddress, "error", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Crit("main: malformed bind address port", "address", bindAddress, "error", err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}
