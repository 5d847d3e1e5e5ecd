package main

import (
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/runtimelink/internal/errors"
	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/protocol"
)

func parseCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "parse <hex>...",
		Short: "Decode captured bytes with the frame codec",
		Long: `Parse hex-encoded bytes as a stream of Runtime frames and print each
frame, its decoded payload and any incomplete leftover.

Whitespace, colons and a leading 0x are ignored, so output copied from
a packet capture can be pasted as is.

Examples:
  runtimelink parse 00020008 02
  runtimelink parse "02 05 00 0a 03 61 62 63"
  runtimelink parse --raw 0300`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHex(strings.Join(args, ""))
			if err != nil {
				return errors.New("E020").Wrap(err).
					WithExample("runtimelink parse 0002000802")
			}
			return printFrames(cmd.OutOrStdout(), data, !raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Do not decode payloads")

	return cmd
}

func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", "\t", "", "\n", "", ":", "").Replace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func printFrames(w io.Writer, data []byte, decode bool) error {
	frames, rest := protocol.ParseFrames(nil, data)
	codec := payload.ProtoCodec{}

	for i, f := range frames {
		fmt.Fprintf(w, "frame %d: kind=%s length=%d payload=%x\n", i, f.Kind, f.Length, f.Payload)
		if !decode {
			continue
		}

		msg, err := codec.Decode(f.Kind, f.Payload)
		switch {
		case stderrors.Is(err, payload.ErrUnsupportedKind):
			fmt.Fprintf(w, "  (no payload schema)\n")
		case err != nil:
			fmt.Fprintf(w, "  decode error: %v\n", err)
		default:
			out, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s\n", out)
		}
	}

	if len(rest) > 0 {
		fmt.Fprintf(w, "leftover: %x (%d bytes)\n", rest, len(rest))
	}
	if len(frames) == 0 && len(rest) == 0 {
		fmt.Fprintln(w, "no frames")
	}
	return nil
}
