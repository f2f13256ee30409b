package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/publish"
)

// openPublishers connects to every configured target.
func (a *App) openPublishers(ctx context.Context) (publish.Multi, error) {
	var m publish.Multi
	fail := func(err error) (publish.Multi, error) {
		_ = m.Close()
		return nil, err
	}

	if a.config.OutDir != "" {
		f, err := publish.NewFile(a.config.OutDir)
		if err != nil {
			return fail(err)
		}
		m = append(m, f)
	}
	if a.config.NATSURL != "" {
		n, err := publish.NewNATS(a.config.NATSURL, a.config.NATSSubject)
		if err != nil {
			return fail(err)
		}
		m = append(m, n)
	}
	if a.config.RedisURL != "" {
		r, err := publish.NewRedis(ctx, a.config.RedisURL, a.config.RedisPrefix)
		if err != nil {
			return fail(err)
		}
		m = append(m, r)
	}
	if a.config.SocketIOURL != "" {
		s, err := publish.NewSocketIO(ctx, publish.SocketIOOptions{URL: a.config.SocketIOURL})
		if err != nil {
			return fail(err)
		}
		m = append(m, s)
	}
	if len(m) == 0 {
		return nil, errors.New("no publish targets configured")
	}
	return m, nil
}

// Publish compiles the stack and sends every definition to the configured
// targets.
func (a *App) Publish(ctx context.Context) (err error) {
	ctx = a.withLogger(ctx)
	p, err := a.Compile(ctx)
	if err != nil {
		return err
	}

	pubs, err := a.openPublishers(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, pubs.Close())
	}()

	var errs []error
	for _, cw := range p.Workflows {
		if cw.Definition == nil {
			continue
		}
		doc, err := publish.NewDocument(p.Stack.UniqueName(""), cw.Name, cw.UniqueName, cw.Definition, p.Inputs.Keys())
		if err != nil {
			return err
		}
		if err := pubs.Publish(ctx, doc); err != nil {
			a.metrics.published.WithLabelValues("failure").Inc()
			errs = append(errs, fmt.Errorf("workflow %q: %w", cw.Name, err))
			continue
		}
		a.metrics.published.WithLabelValues("success").Inc()
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Publishing finished.", "workflows", len(p.Workflows), "targets", len(pubs))
	return nil
}
