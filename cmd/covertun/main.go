// Command covertun runs one end of a point-to-point tunnel that carries IP
// traffic inside DNS-shaped UDP datagrams.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"covertun/internal/config"
	"covertun/internal/crypto"
	"covertun/internal/engine"
	"covertun/internal/exec"
	"covertun/internal/keymaterial"
	"covertun/internal/settings"
	"covertun/internal/transport"
	"covertun/internal/transport/dns"
	"covertun/internal/tun"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var cfg config.Config
	switch os.Args[1] {
	case "serve":
		cfg = parseServeFlags(os.Args[2:])
	case "connect":
		cfg = parseConnectFlags(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("covertun exited")
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  covertun serve   [flags] <bind-address>
  covertun connect [flags] <remote-address>
`)
}

func parseServeFlags(args []string) config.Config {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	key := fs.String("key", "", "shared passphrase, or @path to read it from a file")
	upScript := fs.String("up-script", "", "script to run with the tun interface name after bring-up")
	tunName := fs.String("tun", "covertun0", "tun interface name")
	logLevel := fs.String("log-level", "info", "trace|debug|info|warn|error")
	_ = fs.Parse(args)

	keyBytes, err := keymaterial.Resolve(*key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return config.Config{
		Role:     config.RoleServer,
		Key:      keyBytes,
		Bind:     fs.Arg(0),
		TunName:  *tunName,
		UpScript: *upScript,
		LogLevel: *logLevel,
	}
}

func parseConnectFlags(args []string) config.Config {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	key := fs.String("key", "", "shared passphrase, or @path to read it from a file")
	upScript := fs.String("up-script", "", "script to run with the tun interface name after bring-up")
	tunName := fs.String("tun", "covertun0", "tun interface name")
	numSockets := fs.Int("num-sockets", 10, "client socket pool size")
	logLevel := fs.String("log-level", "info", "trace|debug|info|warn|error")
	_ = fs.Parse(args)

	keyBytes, err := keymaterial.Resolve(*key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return config.Config{
		Role:       config.RoleClient,
		Key:        keyBytes,
		Remote:     fs.Arg(0),
		TunName:    *tunName,
		UpScript:   *upScript,
		NumSockets: *numSockets,
		LogLevel:   *logLevel,
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(lvl)
}

func run(cfg config.Config, log zerolog.Logger) error {
	if len(cfg.Key) == 0 {
		return fmt.Errorf("main: --key is required")
	}

	device, err := tun.Open(cfg.TunName)
	if err != nil {
		return fmt.Errorf("main: opening tun device: %w", err)
	}
	defer device.Close()

	commander := exec.NewOSCommander()
	if err := exec.SetMTUAndUp(commander, device.Name(), settings.VPNMTU); err != nil {
		return fmt.Errorf("main: bringing up %s: %w", device.Name(), err)
	}
	if cfg.UpScript != "" {
		if err := exec.RunUpScript(commander, cfg.UpScript, device.Name()); err != nil {
			return fmt.Errorf("main: running up-script: %w", err)
		}
	}

	cipher, err := crypto.New(cfg.Key)
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}

	trans, err := newTransport(cfg)
	if err != nil {
		return err
	}
	defer trans.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigCh
		log.Info().Msg("signal received, shutting down")
		cancel()
	}()

	log.Info().Str("role", roleName(cfg.Role)).Str("tun", device.Name()).Msg("covertun starting")
	return engine.New(device, trans, cipher, log).Run(ctx)
}

func newTransport(cfg config.Config) (transport.Transport, error) {
	switch cfg.Role {
	case config.RoleServer:
		addr, err := net.ResolveUDPAddr("udp", cfg.Bind)
		if err != nil {
			return nil, fmt.Errorf("main: resolving bind address %q: %w", cfg.Bind, err)
		}
		return dns.NewServer(addr)
	case config.RoleClient:
		addr, err := net.ResolveUDPAddr("udp", cfg.Remote)
		if err != nil {
			return nil, fmt.Errorf("main: resolving remote address %q: %w", cfg.Remote, err)
		}
		return dns.NewClient(addr, cfg.NumSockets)
	default:
		return nil, fmt.Errorf("main: unknown role")
	}
}

func roleName(r config.Role) string {
	if r == config.RoleServer {
		return "server"
	}
	return "client"
}
