/*
Cinners is a presence and chat server speaking a text protocol over an
alternating-bit reliable transport on UDP, together with a console
client and a reliable file echo service.

Usage:

	cinners serve [--listen host:port] [--admin host:port]
	cinners chat [--server host:port] [--user name]
	cinners echo [--listen host:port]
	cinners send-file [--server host:port] [--out dir] path

Configuration is read from the YAML file named by --config or
$CINNERS_CONFIG.
*/
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anon55555/cinners/internal/config"
	"github.com/anon55555/cinners/rdt"
)

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "cinners",
		Short: "Presence and chat over reliable UDP",
		Long: `Cinners runs a multi-user presence and chat server, its console
client, and a file echo service, all over an alternating-bit reliable
transport on UDP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $"+config.EnvPath+")")

	rootCmd.AddCommand(
		serveCmd(&cfgPath),
		chatCmd(&cfgPath),
		echoCmd(&cfgPath),
		sendFileCmd(&cfgPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cinners:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs its logger as the default.
func setup(cfgPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)
	return cfg, log, nil
}

// listenPacket opens a UDP socket at addr, dropping datagrams at the
// configured loss rate.
func listenPacket(cfg *config.Config, addr string) (net.PacketConn, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	if cfg.LossRate > 0 {
		return rdt.NewLossyConn(pc, cfg.LossRate, uint64(time.Now().UnixNano())), nil
	}
	return pc, nil
}
