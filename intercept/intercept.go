// Package intercept runs outbound packets through the classifier and the
// rewrite engine.
package intercept

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Craftserve/msgproxy/classify"
	"github.com/Craftserve/msgproxy/metrics"
	"github.com/Craftserve/msgproxy/packets"
	"github.com/Craftserve/msgproxy/rewrite"
	"github.com/Craftserve/msgproxy/rules"
)

type Interceptor struct {
	store    *rules.Store
	engine   *rewrite.Engine
	metrics  *metrics.Metrics
	analyzer *Analyzer
	log      logrus.FieldLogger
	// throttles per packet debug lines
	noisy *rate.Limiter
}

type Option func(*Interceptor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Interceptor) { i.metrics = m }
}

func WithAnalyzer(a *Analyzer) Option {
	return func(i *Interceptor) { i.analyzer = a }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(i *Interceptor) { i.log = log }
}

func New(store *rules.Store, engine *rewrite.Engine, opts ...Option) *Interceptor {
	i := &Interceptor{
		store:  store,
		engine: engine,
		log:    logrus.StandardLogger(),
		noisy:  rate.NewLimiter(rate.Every(time.Second), 10),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Interceptor) Store() *rules.Store { return i.store }

// Intercept rewrites the text fields of pkt in place and reports whether
// the packet changed. It never fails: packets it cannot handle are left
// byte for byte as they were.
func (i *Interceptor) Intercept(pkt *packets.GenericPacket, state packets.ConnState, profile *packets.Profile, viewer rewrite.ViewerContext) bool {
	set := i.store.Snapshot()
	if set.Len() == 0 && i.analyzer == nil {
		return false
	}

	cp, err := classify.Classify(pkt, state, profile)
	if err != nil {
		i.metrics.Packet(pkt.Name.String(), metrics.OutcomeMismatch)
		if i.noisy.Allow() {
			i.log.WithError(err).WithFields(logrus.Fields{
				"packetID": pkt.ID,
				"protocol": profile.Protocol,
				"size":     len(pkt.Data),
			}).Debug("intercept: packet passed through unparsed")
		}
		return false
	}
	if cp == nil {
		return false
	}

	original := pkt.Data
	for _, f := range cp.Fields {
		res := i.engine.Rewrite(f.Get(), f.Kind, viewer, set)
		i.report(f.Kind, res, viewer)
		i.analyzer.Record(f.Kind, res)
		if !res.Changed() {
			continue
		}
		if err := f.Set(res.Final); err != nil {
			i.metrics.FieldError(f.Kind.String())
			i.log.WithError(err).WithFields(logrus.Fields{
				"kind":   f.Kind,
				"rule":   res.MatchedRuleID,
				"player": viewer.PlayerName,
			}).Warn("intercept: rewritten text rejected, field left unchanged")
			continue
		}
		for _, id := range res.Applied {
			i.metrics.Rewrite(f.Kind.String(), id)
		}
	}

	changed, err := cp.Commit()
	if err != nil {
		pkt.Data = original
		i.metrics.FieldError(cp.Name.String())
		i.log.WithError(err).WithField("packet", cp.Name).Warn("intercept: commit failed, packet restored")
		changed = false
	}
	outcome := metrics.OutcomePassed
	if changed {
		outcome = metrics.OutcomeRewritten
	}
	i.metrics.Packet(cp.Name.String(), outcome)
	return changed
}

func (i *Interceptor) report(kind rules.TextKind, res rewrite.Result, viewer rewrite.ViewerContext) {
	for _, fb := range res.Fallbacks {
		i.metrics.Fallback(fallbackReason(fb.Err))
		if i.noisy.Allow() {
			i.log.WithError(fb.Err).WithFields(logrus.Fields{
				"marker": fb.Marker,
				"kind":   kind,
				"player": viewer.PlayerName,
			}).Debug("intercept: placeholder kept literal")
		}
	}
	for _, err := range res.MatchErrors {
		if i.noisy.Allow() {
			i.log.WithError(err).WithField("kind", kind).Debug("intercept: rule skipped")
		}
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, rewrite.ErrResolverTimeout):
		return "timeout"
	case errors.Is(err, rewrite.ErrResolverPanic):
		return "panic"
	case errors.Is(err, rewrite.ErrResolverUnavailable):
		return "unavailable"
	}
	return "error"
}

// Test runs sample through the active rule set without touching any packet.
func (i *Interceptor) Test(kind rules.TextKind, sample string, viewer rewrite.ViewerContext) rewrite.Result {
	return i.engine.Rewrite(sample, kind, viewer, i.store.Snapshot())
}
