package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vk/datajob/internal/ctxlog"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "datajob.workflows"

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATS publishes each document to <prefix>.<name>.
type NATS struct {
	conn   natsConn
	prefix string
}

// NewNATS connects to the server at url.
func NewNATS(url, prefix string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("datajob"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATS(conn, prefix), nil
}

func newNATS(conn natsConn, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, prefix: prefix}
}

// Name implements Publisher.
func (n *NATS) Name() string { return "nats" }

// Subject returns the subject a document is published to.
func (n *NATS) Subject(doc *Document) string {
	return n.prefix + "." + doc.Name
}

// Publish implements Publisher. It flushes so that a returned nil means the
// server has the message.
func (n *NATS) Publish(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := doc.Payload()
	if err != nil {
		return err
	}
	subject := n.Subject(doc)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	ctxlog.FromContext(ctx).Debug("Published to NATS.", "subject", subject, "bytes", len(data))
	return nil
}

// Close implements Publisher.
func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
