// Package poller is the client half of the session sync protocol: it fetches
// a workshop snapshot on a fixed delay and reports only real changes.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/models"
)

const (
	DefaultInterval   = 2 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	WorkshopID string
	// Interval is the delay between polls. Zero means DefaultInterval, or the
	// interval the server advertises.
	Interval   time.Duration
	MaxBackoff time.Duration
	HTTPClient HTTPClient
	Log        logrus.FieldLogger

	// OnChange fires when participants, responses or analysis differ from
	// the previously seen snapshot.
	OnChange func(*models.Session)
	// OnStatus fires when the session moves to another stage.
	OnStatus func(from, to models.Status)
	OnError  func(error)
	// StopWhen ends Run once it returns true for a snapshot.
	StopWhen func(*models.Session) bool
}

// StatusError is a non-2xx, non-304 answer from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("poll: server returned %d: %s", e.Code, e.Body)
}

// Result is the outcome of a single poll.
type Result struct {
	Session     *models.Session
	Changed     bool
	NotModified bool
}

type Poller struct {
	cfg      Config
	url      string
	client   HTTPClient
	log      logrus.FieldLogger
	interval time.Duration
	fixed    bool
	bo       *backoff.ExponentialBackOff

	etag   string
	digest []byte

	// mu guards last, which Last reads from other goroutines while Run writes it.
	mu   sync.Mutex
	last *models.Session
}

func New(cfg Config) (*Poller, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("poll: base URL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("poll: base URL: %w", err)
	}
	id := strings.TrimSpace(cfg.WorkshopID)
	if id == "" {
		return nil, errors.New("poll: workshop id required")
	}
	p := &Poller{
		cfg:      cfg,
		url:      base + "/workshop/" + url.PathEscape(id),
		client:   cfg.HTTPClient,
		log:      cfg.Log,
		interval: cfg.Interval,
		fixed:    cfg.Interval > 0,
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 10 * time.Second}
	}
	if p.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.log = l
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	p.bo = backoff.NewExponentialBackOff()
	p.bo.InitialInterval = p.interval
	p.bo.MaxInterval = cfg.MaxBackoff
	if p.bo.MaxInterval <= 0 {
		p.bo.MaxInterval = defaultMaxBackoff
	}
	if p.bo.MaxInterval < p.bo.InitialInterval {
		p.bo.MaxInterval = p.bo.InitialInterval
	}
	return p, nil
}

// Last returns the most recent snapshot, or nil before the first success.
// It is safe to call while Run is active.
func (p *Poller) Last() *models.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Poller) setLast(s *models.Session) {
	p.mu.Lock()
	p.last = s
	p.mu.Unlock()
}

// Run polls until ctx is done or StopWhen matches. Failures are reported and
// retried with exponential backoff; a success restores the fixed delay.
func (p *Poller) Run(ctx context.Context) error {
	log := p.log.WithField("workshop_id", p.cfg.WorkshopID)
	for {
		prev := p.Last()
		res, err := p.Poll(ctx)
		delay := p.interval
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warn("poll failed")
			if p.cfg.OnError != nil {
				p.cfg.OnError(err)
			}
			if d := p.bo.NextBackOff(); d != backoff.Stop {
				delay = d
			}
		} else {
			p.bo.Reset()
			if res.Changed && p.cfg.OnChange != nil {
				p.cfg.OnChange(res.Session)
			}
			if prev != nil && prev.Status != res.Session.Status && p.cfg.OnStatus != nil {
				p.cfg.OnStatus(prev.Status, res.Session.Status)
			}
			if p.cfg.StopWhen != nil && p.cfg.StopWhen(res.Session) {
				log.Debug("poll stop condition met")
				return nil
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Poll fetches the snapshot once. A 304 reuses the cached snapshot and
// counts as unchanged. Poll must not run concurrently with Run or itself.
func (p *Poller) Poll(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	cached := p.Last()
	if p.etag != "" && cached != nil {
		req.Header.Set("If-None-Match", p.etag)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	p.adoptInterval(resp.Header.Get("X-Poll-Interval"))

	switch resp.StatusCode {
	case http.StatusNotModified:
		if cached == nil {
			return nil, errors.New("poll: 304 without a cached snapshot")
		}
		return &Result{Session: cached, NotModified: true}, nil
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var sess models.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("poll: decode snapshot: %w", err)
	}
	digest, err := json.Marshal(struct {
		Participants []models.Participant   `json:"participants"`
		Responses    []models.Response      `json:"responses"`
		Analysis     *models.AnalysisResult `json:"analysis"`
	}{sess.Participants, sess.Responses, sess.Analysis})
	if err != nil {
		return nil, err
	}
	changed := p.digest == nil || !bytes.Equal(digest, p.digest)
	p.digest = digest
	p.etag = resp.Header.Get("ETag")
	p.setLast(&sess)
	return &Result{Session: &sess, Changed: changed}, nil
}

// adoptInterval follows the server's advertised interval unless the caller
// fixed one.
func (p *Poller) adoptInterval(header string) {
	if p.fixed || header == "" {
		return
	}
	ms, err := strconv.ParseInt(header, 10, 64)
	if err != nil || ms <= 0 {
		return
	}
	if d := time.Duration(ms) * time.Millisecond; d != p.interval {
		p.interval = d
		p.bo.InitialInterval = d
		if p.bo.MaxInterval < d {
			p.bo.MaxInterval = d
		}
	}
}
