package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anon55555/cinners/rdt"
	"github.com/anon55555/cinners/transfer"
)

func echoCmd(cfgPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run the file echo server",
		Long: `Run the file echo server.

Every file received is sent back to its sender under a new name:
five random letters, an underscore and the original name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pc, err := listenPacket(cfg, listen)
			if err != nil {
				return err
			}
			l := rdt.Listen(pc, cfg.RDT(log))
			log.Info("echo server listening", "addr", l.Addr().String())

			err = transfer.Serve(ctx, l, log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "UDP address to listen on (default from config)")

	return cmd
}

func sendFileCmd(cfgPath *string) *cobra.Command {
	var srvAddr, outDir string

	cmd := &cobra.Command{
		Use:   "send-file path",
		Short: "Send a file to an echo server and save what comes back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			if srvAddr == "" {
				srvAddr = cfg.Listen
			}

			raddr, err := net.ResolveUDPAddr("udp", srvAddr)
			if err != nil {
				return err
			}
			pc, err := listenPacket(cfg, ":0")
			if err != nil {
				return err
			}
			p := rdt.Connect(pc, raddr, cfg.RDT(log))
			defer p.Close()

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := transfer.Send(p, filepath.Base(path), f)
			if err != nil {
				return err
			}
			log.Info("file sent", "name", filepath.Base(path), "bytes", n)

			saved, err := receiveFile(p, outDir)
			if err != nil {
				return err
			}
			fmt.Println(saved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&srvAddr, "server", "s", "", "echo server address (default: listen address from config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to save the returned file in")

	return cmd
}

// receiveFile receives a file into dir and returns its path.
func receiveFile(p *rdt.Peer, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, ".cinners-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	name, _, err := transfer.Receive(p, tmp)
	if err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
