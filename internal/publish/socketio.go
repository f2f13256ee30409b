package publish

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/datajob/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// RegisterEvent is emitted with the document payload. The server
	// acknowledges it through the emit's ack callback, echoing the hash.
	RegisterEvent = "workflow:register"

	connectTimeout = 15 * time.Second
	defaultAckWait = 10 * time.Second
)

// SocketIOOptions configures a Socket.IO publisher.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	AckTimeout         time.Duration
}

// SocketIO emits each document and waits for the server to acknowledge it.
type SocketIO struct {
	emit       func(event string, data any, ack func([]any, error))
	disconnect func()
	ackTimeout time.Duration
}

// NewSocketIO connects to the server and returns a publisher bound to it.
func NewSocketIO(ctx context.Context, o SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("publisher", "socketio", "url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	return &SocketIO{
		emit: func(event string, data any, ack func([]any, error)) {
			io.Emit(event, data, ack)
		},
		disconnect: func() { io.Disconnect() },
		ackTimeout: o.AckTimeout,
	}, nil
}

// Name implements Publisher.
func (s *SocketIO) Name() string { return "socketio" }

// Publish implements Publisher. The acknowledgement must echo the document
// hash. Each emit carries its own ack callback, so a late ack for an
// earlier document cannot complete a later publish.
func (s *SocketIO) Publish(ctx context.Context, doc *Document) error {
	wait := s.ackTimeout
	if wait <= 0 {
		wait = defaultAckWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	type ack struct {
		args []any
		err  error
	}
	acked := make(chan ack, 1)

	s.emit(RegisterEvent, map[string]any{
		"name":       doc.Name,
		"workflow":   doc.Workflow,
		"stack":      doc.Stack,
		"definition": doc.Definition,
		"input_keys": doc.InputKeys,
		"hash":       doc.Hash,
	}, func(args []any, err error) {
		select {
		case acked <- ack{args: args, err: err}:
		default:
		}
	})

	select {
	case res := <-acked:
		if res.err != nil {
			return fmt.Errorf("%s not acknowledged: %w", RegisterEvent, res.err)
		}
		if len(res.args) > 0 {
			if h, ok := res.args[0].(string); ok && h != doc.Hash {
				return fmt.Errorf("server acknowledged hash %s, sent %s", h, doc.Hash)
			}
		}
		ctxlog.FromContext(ctx).Debug("Registration acknowledged.", "workflow", doc.Workflow)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s ack: %w", RegisterEvent, ctx.Err())
	}
}

// Close implements Publisher.
func (s *SocketIO) Close() error {
	s.disconnect()
	return nil
}
