package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/logging"
)

// fakeDaemon answers every request with its type as the result. A request
// of type "big" gets a reply larger than the native messaging limit.
func fakeDaemon(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		for {
			frame, err := ipc.ReadFrame(conn)
			if err != nil {
				return
			}
			var req ipc.Request
			json.Unmarshal(frame, &req)
			result, _ := json.Marshal(req.Type)
			if req.Type == "big" {
				result, _ = json.Marshal(strings.Repeat("x", nativeMaxOut))
			}
			resp, _ := json.Marshal(ipc.Response{ID: req.ID, OK: true, Result: result})
			if err := ipc.WriteFrame(conn, resp); err != nil {
				return
			}
		}
	}()
}

func readResponse(t *testing.T, r io.Reader) ipc.Response {
	t.Helper()
	frame, err := ipc.ReadFrame(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp ipc.Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		t.Fatalf("decode %q: %v", frame, err)
	}
	return resp
}

func TestRelay(t *testing.T) {
	bridgeSide, daemonSide := net.Pipe()
	defer bridgeSide.Close()
	fakeDaemon(t, daemonSide)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay(ctx, inR, outW, bridgeSide, logging.Discard()) }()

	send := func(payload []byte) {
		go ipc.WriteFrame(inW, payload)
	}

	send([]byte(`{"id":"1","type":"ping"}`))
	if resp := readResponse(t, outR); resp.ID != "1" || string(resp.Result) != `"ping"` {
		t.Fatalf("ping relayed as %+v", resp)
	}

	send([]byte(`not json`))
	if resp := readResponse(t, outR); resp.Error == nil || resp.Error.Code != ipc.CodeInvalidRequest {
		t.Fatalf("invalid message answered with %+v", resp)
	}

	send([]byte(`{"id":"2","type":"big"}`))
	resp := readResponse(t, outR)
	if resp.ID != "2" || resp.Error == nil || !strings.Contains(resp.Error.Message, "native messaging limit") {
		t.Fatalf("oversized reply relayed as %+v", resp)
	}

	inW.Close()
	if err := <-done; err != nil {
		t.Fatalf("relay: %v", err)
	}
}

func TestHostArgs(t *testing.T) {
	got := hostArgs([]string{"chrome-extension://abcdef/", "--parent-window=0", "-profile", "/tmp/p"})
	if strings.Join(got, " ") != "-profile /tmp/p" {
		t.Fatalf("hostArgs = %v", got)
	}
}
