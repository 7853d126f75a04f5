package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ironledger/api"
	"ironledger/core"
	"ironledger/pkg/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	rootCmd := &cobra.Command{Use: "noded"}
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(walletCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start a node: chain engine, gossip transport, and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = viper.BindPFlag("api_port", cmd.Flags().Lookup("api-port"))
			_ = viper.BindPFlag("p2p_port", cmd.Flags().Lookup("p2p-port"))
			_ = viper.BindPFlag("difficulty", cmd.Flags().Lookup("difficulty"))
			_ = viper.BindPFlag("mining_reward", cmd.Flags().Lookup("mining-reward"))
			_ = viper.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
				log.SetLevel(lvl)
			}

			listenAddr, _ := cmd.Flags().GetString("listen")
			if !cmd.Flags().Changed("listen") {
				listenAddr = fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.P2PPort)
			}
			peers, _ := cmd.Flags().GetStringSlice("peer")
			if peersFile, _ := cmd.Flags().GetString("peers-file"); peersFile != "" {
				filePeers, err := config.LoadPeersFile(peersFile)
				if err != nil {
					return fmt.Errorf("load peers file: %w", err)
				}
				peers = append(peers, filePeers...)
			}
			minerAddr, _ := cmd.Flags().GetString("miner")
			if minerAddr == "" {
				w, err := core.NewWallet()
				if err != nil {
					return err
				}
				minerAddr = string(w.Addr)
				log.WithField("address", minerAddr).Info("noded: generated miner wallet")
			}

			orch, err := core.NewOrchestrator(core.OrchestratorConfig{
				Difficulty:   cfg.Difficulty,
				MiningReward: cfg.MiningReward,
				MinerAddress: core.Address(minerAddr),
				MempoolMax:   core.DefaultMempoolMax,
				Net: core.NetConfig{
					ListenAddr:     listenAddr,
					BootstrapPeers: peers,
					DiscoveryTag:   "ironledger-mdns",
				},
			})
			if err != nil {
				return fmt.Errorf("start node: %w", err)
			}
			defer orch.Close()

			health := core.NewHealthLogger(orch)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go health.RunMetricsCollector(ctx, 10*time.Second)
			metricsSrv := health.StartMetricsServer(fmt.Sprintf(":%d", cfg.APIPort+1))
			defer metricsSrv.Close()

			apiSrv := api.NewServer(orch, health)
			go func() {
				addr := fmt.Sprintf(":%d", cfg.APIPort)
				log.WithField("addr", addr).Info("noded: REST API listening")
				if err := apiSrv.ListenAndServe(addr); err != nil {
					log.WithError(err).Error("noded: API server stopped")
				}
			}()

			log.Info("noded: node running, press Ctrl+C to stop")
			return orch.Run(ctx)
		},
	}
	cmd.Flags().Int("api-port", core.DefaultAPIPort, "REST API port")
	cmd.Flags().Int("p2p-port", core.DefaultP2PPort, "libp2p listen port (0 = random)")
	cmd.Flags().Int("difficulty", core.DefaultDifficulty, "proof-of-work leading-zero difficulty")
	cmd.Flags().Uint64("mining-reward", core.DefaultMiningReward, "coinbase reward per mined block")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("listen", "/ip4/0.0.0.0/tcp/0", "libp2p listen multiaddr (overrides --p2p-port)")
	cmd.Flags().StringSlice("peer", nil, "bootstrap peer multiaddr (repeatable)")
	cmd.Flags().String("peers-file", "", "YAML file listing bootstrap peer multiaddrs under a top-level 'peers:' key")
	cmd.Flags().String("miner", "", "address credited with mining rewards (generates a wallet if empty)")
	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wallet"}
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "generate a new wallet and print its address and mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			mnemonic, err := core.NewMnemonic()
			if err != nil {
				return err
			}
			w, err := core.NewWalletFromMnemonic(mnemonic, "")
			if err != nil {
				return err
			}
			fmt.Printf("address:  %s\n", w.Addr)
			fmt.Printf("mnemonic: %s\n", mnemonic)
			return nil
		},
	}
	cmd.AddCommand(newCmd)
	return cmd
}
