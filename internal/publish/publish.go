// Package publish registers compiled workflow definitions with downstream
// systems: a local directory, a NATS subject, a Socket.IO endpoint or a
// Redis key space.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/ctxlog"
)

// Document is what every publisher sends for one workflow.
type Document struct {
	Name       string    `json:"name"`
	Workflow   string    `json:"workflow"`
	Stack      string    `json:"stack"`
	Definition string    `json:"definition"`
	InputKeys  []string  `json:"input_keys,omitempty"`
	Hash       string    `json:"hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDocument renders def and fingerprints it. name is the stack-scoped
// state machine name.
func NewDocument(stack, workflow, name string, def *asl.Definition, inputKeys []string) (*Document, error) {
	body, err := def.JSON()
	if err != nil {
		return nil, fmt.Errorf("encoding definition of %s: %w", name, err)
	}
	sum := sha256.Sum256(body)
	return &Document{
		Name:       name,
		Workflow:   workflow,
		Stack:      stack,
		Definition: string(body),
		InputKeys:  append([]string(nil), inputKeys...),
		Hash:       hex.EncodeToString(sum[:]),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Payload encodes the document as JSON.
func (d *Document) Payload() ([]byte, error) {
	return sonic.ConfigStd.Marshal(d)
}

// Publisher sends documents somewhere.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, doc *Document) error
	Close() error
}

// Multi publishes every document to all of its publishers.
type Multi []Publisher

// Name implements Publisher.
func (m Multi) Name() string { return "multi" }

// Publish sends doc to each publisher and joins their errors.
func (m Multi) Publish(ctx context.Context, doc *Document) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, doc); err != nil {
			logger.Error("Publishing failed.", "publisher", p.Name(), "workflow", doc.Workflow, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		logger.Info("Published workflow.", "publisher", p.Name(), "workflow", doc.Workflow, "hash", doc.Hash)
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
