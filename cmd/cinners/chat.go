package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anon55555/cinners"
	"github.com/anon55555/cinners/client"
)

func chatCmd(cfgPath *string) *cobra.Command {
	var srvAddr, user string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Log in and chat from the console",
		Long: `Log in and chat from the console.

Every line read is sent as a command; everything the server sends is
printed as it arrives. "logout" or end of input ends the session.`,
		Args: cobra.NoArgs,
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
			c := client.New(pc, raddr, cfg.RDT(log))
			defer c.Close()

			in := bufio.NewScanner(os.Stdin)
			if user == "" {
				fmt.Print("login ")
				if !in.Scan() {
					return in.Err()
				}
				user = strings.TrimSpace(in.Text())
			}

			ctx := cmd.Context()
			if err := c.Login(ctx, user); err != nil {
				var rejected *client.RejectedError
				if errors.As(err, &rejected) {
					fmt.Println(rejected.Msg)
					return nil
				}
				return err
			}
			fmt.Println(cinners.MsgOnline)

			go func() {
				for msg := range c.Messages() {
					fmt.Printf("\n%s\n> ", msg)
				}
			}()

			return chat(ctx, c, in)
		},
	}

	cmd.Flags().StringVarP(&srvAddr, "server", "s", "", "server address (default: listen address from config)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "username (prompted if empty)")

	return cmd
}

func chat(ctx context.Context, c *client.Client, in *bufio.Scanner) error {
	defer fmt.Println("Desconectado.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

	for {
		fmt.Print("> ")

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				return c.Logout(ctx)
			}
			line = strings.TrimSpace(l)
		case <-c.Done():
			return nil
		}

		if line == "" {
			continue
		}
		if strings.EqualFold(line, "logout") {
			return c.Logout(ctx)
		}

		if err := c.SendLine(line); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			fmt.Println(cinners.ErrorMsg(err))
		}
	}
}
