package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rfratto/uartfs/internal/keys"
	"github.com/rfratto/uartfs/internal/transport"
	"github.com/rfratto/uartfs/internal/uart"
	"github.com/rfratto/uartfs/internal/uart/client"
	"github.com/stretchr/testify/require"
)

// runServer serves h over one end of a pipe and returns the other end. The
// server is stopped when the test finishes.
func runServer(t *testing.T, o Options) net.Conn {
	t.Helper()

	local, remote := net.Pipe()
	o.Transport = transport.NewStream(local)

	srv, err := New(log.NewNopLogger(), o)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			require.FailNow(t, "server did not exit")
		}
		_ = remote.Close()
	})
	return remote
}

func TestServer_IdentifyScenario(t *testing.T) {
	conn := runServer(t, Options{Handler: Passthrough(nil, PassthroughOptions{Root: t.TempDir()})})

	go func() { _, _ = conn.Write([]byte{'?', 0x00, 0x2A, 0x00}) }()

	resp := make([]byte, 4)
	_, err := io.ReadFull(conn, resp)
	require.NoError(t, err)
	require.Equal(t, []byte{'!', 0x00, 0xD5, 0xFF}, resp)
}

func TestServer_ResyncAfterNoise(t *testing.T) {
	conn := runServer(t, Options{Handler: Passthrough(nil, PassthroughOptions{Root: t.TempDir()})})

	go func() {
		_, _ = conn.Write([]byte{0xFF, 'x', '?', 0x7F, '?', 0x00, 0x00, 0x00})
	}()

	resp := make([]byte, 4)
	_, err := io.ReadFull(conn, resp)
	require.NoError(t, err)
	require.Equal(t, []byte{'!', 0x00, 0xFF, 0xFF}, resp)
}

func TestServer_NotAvailableHasNoPayload(t *testing.T) {
	conn := runServer(t, Options{Handler: Passthrough(nil, PassthroughOptions{Root: t.TempDir()})})

	go func() {
		// StatFile "/nope", then Identify 0.
		_, _ = conn.Write([]byte{'?', 0x04, 0x05, 0x00, '/', 'n', 'o', 'p', 'e'})
		_, _ = conn.Write([]byte{'?', 0x00, 0x00, 0x00})
	}()

	resp := make([]byte, 6)
	_, err := io.ReadFull(conn, resp)
	require.NoError(t, err)
	require.Equal(t, []byte{'!', 0x01, '!', 0x00, 0xFF, 0xFF}, resp)
}

func TestServer_Client(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("HC800 disk"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "games"), 0755))

	var console bytes.Buffer
	conn := runServer(t, Options{
		Handler: Passthrough(nil, PassthroughOptions{
			Root:    root,
			Console: &console,
			Keys:    &fakeKeys{events: []keys.Event{keys.Named(keys.KeyF12)}},
		}),
		Middleware: []Middleware{NewLoggingMiddleware(log.NewNopLogger())},
	})
	cli := client.New(nil, transport.NewStream(conn))
	ctx := context.Background()

	v, err := cli.Identify(ctx, 0x1234)
	require.NoError(t, err)
	require.Equal(t, uint16(0xEDCB), v)

	data, err := cli.ReadFile(ctx, "/readme.txt")
	require.NoError(t, err)
	require.Equal(t, "HC800 disk", string(data))

	data, err = cli.SendFile(ctx, `\readme.txt`, 6, 4)
	require.NoError(t, err)
	require.Equal(t, "disk", string(data))

	stat, err := cli.StatFile(ctx, "/games")
	require.NoError(t, err)
	require.True(t, stat.IsDir)

	_, err = cli.StatFile(ctx, "/missing")
	require.Equal(t, uart.ErrNotAvailable, err)

	ents, err := cli.ListDirectory(ctx, "/")
	require.NoError(t, err)
	require.Len(t, ents, 2)

	ents, err = cli.ListDirectory(ctx, "/games")
	require.NoError(t, err)
	require.Empty(t, ents)

	code, err := cli.RequestChar(ctx)
	require.NoError(t, err)
	require.Equal(t, keys.CodeF12, code)

	_, err = cli.RequestChar(ctx)
	require.Equal(t, uart.ErrNotAvailable, err)

	require.NoError(t, cli.PrintChar(ctx, 'O'))
	require.NoError(t, cli.PrintChar(ctx, 'K'))

	// Identify again so that the prints have been handled.
	_, err = cli.Identify(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "OK", console.String())
}

type badNameHandler struct{ UnimplementedHandler }

func (badNameHandler) ReadDirectory(context.Context, *uart.ReadDirectoryCommand) (*uart.ReadDirectoryResponse, error) {
	return &uart.ReadDirectoryResponse{Entry: uart.DirectoryEntry{Name: "日本"}}, nil
}

func TestServer_UnencodableResponse(t *testing.T) {
	conn := runServer(t, Options{Handler: badNameHandler{}})
	cli := client.New(nil, transport.NewStream(conn))

	_, err := cli.ReadDirectory(context.Background(), "/", 0)
	require.Equal(t, uart.ErrNotAvailable, err)

	// The session survives.
	_, err = cli.ReadDirectory(context.Background(), "/", 0)
	require.Equal(t, uart.ErrNotAvailable, err)
}

func TestServer_TransportFailure(t *testing.T) {
	local, remote := net.Pipe()
	srv, err := New(nil, Options{
		Transport: transport.NewStream(local),
		Handler:   UnimplementedHandler{},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	// Close in the middle of a frame.
	_, err = remote.Write([]byte{'?', 0x00, 0x01})
	require.NoError(t, err)
	require.NoError(t, remote.Close())

	select {
	case err := <-done:
		require.True(t, errors.Is(err, io.ErrUnexpectedEOF), "unexpected error %v", err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server did not exit")
	}
}

func TestServer_PeerDisconnect(t *testing.T) {
	local, remote := net.Pipe()
	srv, err := New(nil, Options{
		Transport: transport.NewStream(local),
		Handler:   UnimplementedHandler{},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()
	require.NoError(t, remote.Close())

	select {
	case err := <-done:
		require.True(t, errors.Is(err, io.EOF), "unexpected error %v", err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server did not exit")
	}
}

// blockingHandler holds Identify until release is closed.
type blockingHandler struct {
	UnimplementedHandler
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHandler) Identify(_ context.Context, cmd *uart.IdentifyCommand) (*uart.IdentifyResponse, error) {
	close(h.entered)
	<-h.release
	return &uart.IdentifyResponse{Value: ^cmd.Nonce}, nil
}

func TestServer_CancelDuringResponse(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	h := &blockingHandler{entered: make(chan struct{}), release: make(chan struct{})}
	srv, err := New(nil, Options{
		Transport: transport.NewStream(local),
		Handler:   h,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	_, err = remote.Write([]byte{'?', 0x00, 0x2A, 0x00})
	require.NoError(t, err)
	<-h.entered

	// The transport is closed while the handler is still running. The
	// response is then written to a closed transport nobody reads from.
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(h.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server did not exit")
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{Handler: UnimplementedHandler{}})
	require.EqualError(t, err, "Transport must be set")

	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	_, err = New(nil, Options{Transport: transport.NewStream(local)})
	require.EqualError(t, err, "Handler must be set")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	conn := runServer(t, Options{
		Handler:    Passthrough(nil, PassthroughOptions{Root: t.TempDir()}),
		Registerer: reg,
	})

	go func() {
		_, _ = conn.Write([]byte{'x', 'y', '?', 0x00, 0x00, 0x00})
		_, _ = conn.Write([]byte{'?', 0x04, 0x01, 0x00, 'z'})
	}()
	resp := make([]byte, 6)
	_, err := io.ReadFull(conn, resp)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 1.0, counterValue(families, "uartfs_requests_total", map[string]string{"command": "Identify", "status": "ok"}))
	require.Equal(t, 1.0, counterValue(families, "uartfs_requests_total", map[string]string{"command": "StatFile", "status": "not_available"}))
	require.Equal(t, 2.0, counterValue(families, "uartfs_skipped_bytes_total", nil))
}

func TestServer_MetricsRegisteredTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	o := Options{Transport: transport.NewStream(local), Handler: UnimplementedHandler{}, Registerer: reg}
	_, err := New(nil, o)
	require.NoError(t, err)
	_, err = New(nil, o)
	require.Error(t, err)
}

func counterValue(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	Metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue Metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
