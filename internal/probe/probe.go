package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-pulse/internal/domain"
	"github.com/samvad-hq/samvad-pulse/internal/logger"
	"github.com/samvad-hq/samvad-pulse/internal/storage"
	"github.com/samvad-hq/samvad-pulse/pkg/checks"
	"github.com/samvad-hq/samvad-pulse/pkg/requester"
	"github.com/samvad-hq/samvad-pulse/pkg/sinks"
	"github.com/samvad-hq/samvad-pulse/pkg/targets"
)

// KindCheckFailed marks samples where the response arrived but the
// configured content check rejected it.
const KindCheckFailed = "check_failed"

// Service coordinates probing across all configured targets.
type Service struct {
	checks   checks.Registry
	notifier AlertNotifier
	store    storage.Store
	log      logger.Logger
}

// NewService wires a probe service with the check registry, alert fanout,
// and history store.
func NewService(reg checks.Registry, notifier AlertNotifier, log logger.Logger, store storage.Store) *Service {
	if reg == nil {
		reg = checks.DefaultRegistry()
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		checks:   reg,
		notifier: notifier,
		store:    store,
		log:      log,
	}
}

// Run executes a probe pass for all configured targets.
func (s *Service) Run(ctx context.Context, tgts []targets.Target) error {
	if s == nil || s.checks == nil {
		return fmt.Errorf("probe service is not initialized")
	}
	if len(tgts) == 0 {
		return fmt.Errorf("no targets configured for probing")
	}

	errs := make([]error, 0, len(tgts))
	for _, tgt := range tgts {
		if err := s.runTarget(ctx, tgt); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("target probe failed", "target_error", map[string]any{
				"target_id": tgt.ID,
				"error":     err.Error(),
			})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// runTarget probes one target, records the sample, and raises alerts on
// health transitions.
func (s *Service) runTarget(ctx context.Context, tgt targets.Target) error {
	check, err := s.checks.CheckFor(tgt)
	if err != nil {
		return fmt.Errorf("resolve check for target %s: %w", tgt.ID, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, tgt.Timeout())
	defer cancel()

	var sample domain.Sample
	if tgt.Kind == targets.KindPage {
		sample = s.probePage(probeCtx, tgt, check)
	} else {
		sample = s.probeJSON(probeCtx, tgt, check)
	}
	sample.TargetID = tgt.ID
	sample.CheckedAt = time.Now().UTC()

	s.log.InfoObj("target probe completed", "target_result", map[string]any{
		"target_id":  tgt.ID,
		"healthy":    sample.Healthy,
		"kind":       sample.Kind,
		"status":     sample.Status,
		"latency_ms": sample.LatencyMs,
	})

	return s.recordAndAlert(ctx, tgt, sample)
}

// probeJSON drives a target through the signal executor. A signal that
// never resolves (undecodable 200 body) hits the probe deadline and is
// reported as a malformed response.
func (s *Service) probeJSON(ctx context.Context, tgt targets.Target, check checks.Check) domain.Sample {
	method := requester.MethodGet
	if tgt.Method == http.MethodPost {
		method = requester.MethodPost
	}

	start := time.Now()
	sig := requester.Execute(ctx, tgt.URL, method, tgt.Params, tgt.Retries, requester.JSONConstructor[map[string]any]())
	out, err := sig.Wait(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return domain.Sample{
			Healthy:   false,
			Kind:      requester.KindMalformedResponse.String(),
			Detail:    "no outcome before deadline: " + err.Error(),
			LatencyMs: latency,
		}
	}

	if out.State == requester.StateFailed {
		return domain.Sample{
			Healthy:   false,
			Kind:      out.Err.Kind.String(),
			Status:    out.Err.Status,
			Detail:    out.Err.Error(),
			LatencyMs: latency,
		}
	}

	var payload any
	if out.Result.Collection {
		payload = out.Result.Items
	} else if out.Result.Item != nil {
		payload = *out.Result.Item
	}

	if err := check.Evaluate(tgt, payload); err != nil {
		return domain.Sample{
			Healthy:   false,
			Kind:      KindCheckFailed,
			Status:    http.StatusOK,
			Detail:    err.Error(),
			LatencyMs: latency,
		}
	}

	return domain.Sample{Healthy: true, Status: http.StatusOK, LatencyMs: latency}
}

// probePage fetches a page target directly on the shared session and runs
// the configured HTML check over the raw body.
func (s *Service) probePage(ctx context.Context, tgt targets.Target, check checks.Check) domain.Sample {
	req := requester.SessionClient().R().SetContext(ctx)
	if headers := targets.Headers(tgt); len(headers) > 0 {
		req.SetHeaders(headers)
	}

	start := time.Now()
	resp, err := req.Get(tgt.URL)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return domain.Sample{
			Healthy:   false,
			Kind:      requester.KindTransport.String(),
			Detail:    err.Error(),
			LatencyMs: latency,
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return domain.Sample{
			Healthy:   false,
			Kind:      requester.KindForStatus(resp.StatusCode()).String(),
			Status:    resp.StatusCode(),
			Detail:    bodySnippet(resp.Body()),
			LatencyMs: latency,
		}
	}

	if err := check.Evaluate(tgt, resp.Body()); err != nil {
		return domain.Sample{
			Healthy:   false,
			Kind:      KindCheckFailed,
			Status:    http.StatusOK,
			Detail:    err.Error(),
			LatencyMs: latency,
		}
	}

	return domain.Sample{Healthy: true, Status: http.StatusOK, LatencyMs: latency}
}

// recordAndAlert persists the sample and notifies sinks when the target
// changes health state. The first observation of an unhealthy target also
// alerts.
func (s *Service) recordAndAlert(ctx context.Context, tgt targets.Target, sample domain.Sample) error {
	var (
		prev  domain.Sample
		found bool
	)
	if s.store != nil {
		var err error
		prev, found, err = s.store.LastSample(tgt.ID)
		if err != nil {
			return fmt.Errorf("load last sample for target %s: %w", tgt.ID, err)
		}
		if err := s.store.RecordSample(sample); err != nil {
			return fmt.Errorf("record sample for target %s: %w", tgt.ID, err)
		}
	}

	state := ""
	switch {
	case !sample.Healthy && (!found || prev.Healthy):
		state = sinks.StateDown
	case sample.Healthy && found && !prev.Healthy:
		state = sinks.StateRecovered
	}
	if state == "" || s.notifier == nil {
		return nil
	}

	alert := sinks.NewAlert(tgt.Name, state, sample)
	delivered, err := s.notifier.Notify(ctx, alert)
	if err != nil {
		return fmt.Errorf("notify sinks for target %s: %w", tgt.ID, err)
	}
	s.log.InfoObj("alert dispatched", "alert_meta", map[string]any{
		"target_id": tgt.ID,
		"state":     state,
		"delivered": delivered,
	})
	return nil
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
