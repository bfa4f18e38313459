// Command jdwpdump prints the packets in a captured JDWP stream.
//
// The capture is the raw byte stream of one direction of a connection,
// optionally starting with the JDWP handshake.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gordian-engine/jdwp"
	"github.com/gordian-engine/jdwp/jconn"
	"github.com/gordian-engine/jdwp/jpayload"
	"github.com/gordian-engine/jdwp/jsource"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type dumpOptions struct {
	ConfigFile  string
	MaxInMemory int64
	Offline     bool
	Handshake   bool
	Verbose     bool
}

func newRootCmd(out, logOut io.Writer) *cobra.Command {
	var opts dumpOptions

	cmd := &cobra.Command{
		Use:   "jdwpdump [flags] CAPTURE",
		Short: "Print the packets in a captured JDWP stream",
		Long: `jdwpdump decodes a raw JDWP byte stream and prints one line per packet.

Large payloads are skipped on the stream without being buffered,
unless --offline is given, in which case every payload is copied
off the stream (into memory or a spool file) before it is reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := jconn.DefaultConfig()
			if opts.ConfigFile != "" {
				var err error
				cfg, err = loadConfig(opts.ConfigFile)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}
			if cmd.Flags().Changed("max-in-memory") {
				cfg.MaxInMemoryPayloadLength = opts.MaxInMemory
			}

			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return dump(cmd.Context(), log, out, f, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.ConfigFile, "config", "", "session config file (.toml, .yaml)")
	flags.Int64Var(&opts.MaxInMemory, "max-in-memory", 0, "largest payload read eagerly into memory, in bytes")
	flags.BoolVar(&opts.Offline, "offline", false, "copy every payload off the stream")
	flags.BoolVar(&opts.Handshake, "handshake", false, "expect the JDWP handshake at the start of the capture")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log every packet read")

	return cmd
}

func dump(
	ctx context.Context,
	log *slog.Logger,
	out io.Writer,
	src io.Reader,
	cfg jconn.Config,
	opts dumpOptions,
) (finalErr error) {
	if opts.Handshake {
		if err := jconn.ReadHandshake(src); err != nil {
			return err
		}
	}

	r := jconn.NewReader(log, jsource.NoDeadlines(src), cfg)
	defer func() {
		finalErr = errors.Join(finalErr, r.Close(ctx))
	}()

	pending := jconn.NewPendingCommands(1 << 16)
	var nPackets int
	for {
		pkt, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d packets: %w", nPackets, err)
		}
		nPackets++

		if opts.Offline {
			off, err := pkt.ToOffline(ctx, nil)
			if err != nil {
				return fmt.Errorf("failed to take %s offline: %w", pkt, err)
			}
			pkt = off
		}

		describePacket(out, log, pkt, pending)

		if opts.Offline {
			// Spool files are not needed past this point.
			if err := pkt.Close(); err != nil {
				log.Info("Failed to close offline packet", "packet", pkt, "err", err)
			}
		}
	}

	_, err := fmt.Fprintf(
		out, "%d packets, %d commands without reply\n", nPackets, pending.Len(),
	)
	return err
}

func describePacket(out io.Writer, log *slog.Logger, pkt *jdwp.Packet, pending *jconn.PendingCommands) {
	var match string
	if pkt.IsCommand() {
		if err := pending.Track(pkt.ID()); err != nil {
			log.Warn("Cannot track command", "packet", pkt, "err", err)
		}
	} else if pending.Resolve(pkt.ID()) {
		match = " matched"
	} else {
		match = " unmatched"
	}

	fmt.Fprintf(
		out, "%s payload=%d provider=%s%s\n",
		pkt, pkt.PayloadLength(), providerName(pkt.Provider()), match,
	)
}

func providerName(p jpayload.Provider) string {
	switch p := p.(type) {
	case jpayload.Empty:
		return "empty"
	case *jpayload.InMemory:
		return "memory"
	case *jpayload.Sliced:
		return "sliced"
	case *jpayload.StreamBacked:
		if p.Owned() {
			return "spool"
		}
		return "stream"
	default:
		return fmt.Sprintf("%T", p)
	}
}
