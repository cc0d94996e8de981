// Command pmd-bridge is a native messaging host that relays browser
// extension requests to the pmd daemon socket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rexliu/pdfmarks/pkg/config"
	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/logging"
)

// nativeMaxOut is the largest message a native host may send to the browser.
const nativeMaxOut = 1 << 20

func main() {
	profile := flag.String("profile", "./_dev_profile", "Profile directory")
	socket := flag.String("socket", "", "Override socket path")
	flag.CommandLine.Parse(hostArgs(os.Args[1:]))

	logger := logging.New("pmd-bridge")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	socketPath := *socket
	if socketPath == "" {
		cfg, err := config.LoadProfile(*profile)
		if err != nil {
			logger.Errorf("load config: %v", err)
			os.Exit(1)
		}
		socketPath = config.ResolvePath(*profile, cfg.IPC.SocketPath)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		logger.Errorf("connect daemon: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := relay(ctx, os.Stdin, os.Stdout, conn, logger); err != nil {
		logger.Errorf("bridge exiting: %v", err)
		os.Exit(1)
	}
}

// hostArgs drops the extension origin and parent window arguments a browser
// appends when it launches a native host.
func hostArgs(args []string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, "chrome-extension://") || strings.HasPrefix(a, "--parent-window=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// relay copies browser frames to the daemon and daemon frames back until
// either side closes. Both sides use 4-byte little-endian length prefixes,
// so request frames pass through unchanged.
func relay(ctx context.Context, in io.Reader, out io.Writer, daemon io.ReadWriter, logger *logging.Logger) error {
	var outMu sync.Mutex
	send := func(frame []byte) error {
		outMu.Lock()
		defer outMu.Unlock()
		return ipc.WriteFrame(out, frame)
	}
	errc := make(chan error, 2)
	go func() {
		for {
			frame, err := ipc.ReadFrame(in)
			if err != nil {
				errc <- err
				return
			}
			if !json.Valid(frame) {
				logger.Warnf("dropping invalid message (%d bytes)", len(frame))
				if err := send(errorFrame("", "message is not JSON")); err != nil {
					errc <- err
					return
				}
				continue
			}
			if err := ipc.WriteFrame(daemon, frame); err != nil {
				errc <- fmt.Errorf("write daemon: %w", err)
				return
			}
		}
	}()
	go func() {
		for {
			frame, err := ipc.ReadFrame(daemon)
			if err != nil {
				errc <- fmt.Errorf("read daemon: %w", err)
				return
			}
			if len(frame) > nativeMaxOut {
				var resp ipc.Response
				json.Unmarshal(frame, &resp)
				logger.Warnf("response %s too large for native messaging (%d bytes)", resp.ID, len(frame))
				frame = errorFrame(resp.ID, fmt.Sprintf("response of %d bytes exceeds the native messaging limit", len(frame)))
			}
			if err := send(frame); err != nil {
				errc <- err
				return
			}
		}
	}()

	select {
	case err := <-errc:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

func errorFrame(id, message string) []byte {
	frame, _ := json.Marshal(ipc.Response{ID: id, Error: ipc.Errorf(ipc.CodeInvalidRequest, message, nil)})
	return frame
}
