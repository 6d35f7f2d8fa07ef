// Command uartcc sends individual commands to a uartfs server, acting like
// the HC800 would. It's useful for checking a serial link or an emulator
// setup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rfratto/uartfs/internal/cmdutil"
	"github.com/rfratto/uartfs/internal/keys"
	"github.com/rfratto/uartfs/internal/transport"
	"github.com/rfratto/uartfs/internal/uart"
	"github.com/rfratto/uartfs/internal/uart/client"
)

const usage = `usage: %s [flags] COMMAND [ARGS]

Commands:
  identify [NONCE]  check that the server is alive
  stat PATH         print the type and length of a file
  ls PATH           list a directory
  cat PATH          write a file to standard output
  key               poll for a key press on the server
  print TEXT        print text on the server's console

Flags:
`

func main() {
	var (
		ll   cmdutil.LogLevel
		addr string
		baud int
	)

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usage, os.Args[0])
		fs.PrintDefaults()
	}
	fs.Var(&ll, "log.level", "Level to display logs at")
	fs.StringVar(&addr, "port", os.Getenv("UARTFS_PORT"), "Serial device or tcp:// or unix:// address of the server")
	fs.IntVar(&baud, "baud", transport.DefaultOptions.BaudRate, "Baud rate of the serial device")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %s\n", err.Error())
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	l := cmdutil.NewLogger(os.Stderr, ll, "uartcc")

	if err := run(l, addr, baud, fs.Args(), os.Stdout); err != nil {
		level.Error(l).Log("msg", "command failed", "err", err)
		os.Exit(1)
	}
}

func run(l log.Logger, addr string, baud int, args []string, out io.Writer) error {
	if addr == "" {
		return fmt.Errorf("port not specified. Either use -port or set UARTFS_PORT")
	}

	t, err := transport.Open(addr, transport.Options{BaudRate: baud})
	if err != nil {
		return err
	}
	cli := client.New(l, t)
	defer cli.Close()

	return runCommand(context.Background(), cli, args, out)
}

func runCommand(ctx context.Context, cli *client.Client, args []string, out io.Writer) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "identify":
		nonce := uint16(time.Now().UnixNano())
		if len(args) > 0 {
			v, err := strconv.ParseUint(args[0], 0, 16)
			if err != nil {
				return fmt.Errorf("invalid nonce: %w", err)
			}
			nonce = uint16(v)
		}
		v, err := cli.Identify(ctx, nonce)
		if err != nil {
			return err
		}
		if v != ^nonce {
			return fmt.Errorf("unexpected identify response %#04x for nonce %#04x", v, nonce)
		}
		fmt.Fprintf(out, "ok nonce=%#04x response=%#04x\n", nonce, v)

	case "stat":
		if len(args) != 1 {
			return fmt.Errorf("usage: stat PATH")
		}
		st, err := cli.StatFile(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d\n", entryType(st.IsDir), st.Length)

	case "ls":
		if len(args) != 1 {
			return fmt.Errorf("usage: ls PATH")
		}
		ents, err := cli.ListDirectory(ctx, args[0])
		if err != nil {
			return err
		}
		for _, ent := range ents {
			fmt.Fprintf(out, "%s %10d %s\n", entryType(ent.IsDir), ent.Length, ent.Name)
		}

	case "cat":
		if len(args) != 1 {
			return fmt.Errorf("usage: cat PATH")
		}
		data, err := cli.ReadFile(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err

	case "key":
		code, err := cli.RequestChar(ctx)
		if errors.Is(err, uart.ErrNotAvailable) {
			fmt.Fprintln(out, "no key pending")
			return nil
		} else if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d %s\n", code, keyName(code))

	case "print":
		if len(args) != 1 {
			return fmt.Errorf("usage: print TEXT")
		}
		raw, err := uart.EncodeText(args[0])
		if err != nil {
			return err
		}
		for _, c := range raw {
			if err := cli.PrintChar(ctx, c); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func entryType(isDir bool) string {
	if isDir {
		return "d"
	}
	return "-"
}

var codeNames = map[byte]string{
	keys.CodeHome:      "Home",
	keys.CodeLeft:      "Left",
	keys.CodeDelete:    "Delete",
	keys.CodeEnd:       "End",
	keys.CodeRight:     "Right",
	keys.CodeBackSpace: "BackSpace",
	keys.CodeTab:       "Tab",
	keys.CodeReturn:    "Return",
	keys.CodeDown:      "Down",
	keys.CodeUp:        "Up",
	keys.CodeF1:        "F1",
	keys.CodeF2:        "F2",
	keys.CodeF3:        "F3",
	keys.CodeF4:        "F4",
	keys.CodeF5:        "F5",
	keys.CodeF6:        "F6",
	keys.CodeF7:        "F7",
	keys.CodeF8:        "F8",
	keys.CodeEscape:    "Escape",
	keys.CodeF9:        "F9",
	keys.CodeF10:       "F10",
	keys.CodeF11:       "F11",
	keys.CodeF12:       "F12",
}

func keyName(code byte) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return strconv.QuoteRune(uart.DecodeChar(code))
}
