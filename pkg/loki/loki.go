package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Logger receives the pusher's own failures, so it never logs through the
// hook that feeds it.
type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {

	// Url of the loki push endpoint, e.g. https://loki.example.com/loki/api/v1/push
	Url string `validate:"required"`

	// BatchMaxSize is the maximum number of log lines sent in one request.
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the maximum time a batch waits before being flushed.
	BatchMaxWait time.Duration `validate:"gte=1"`

	// Labels are attached to every pushed stream.
	Labels map[string]string

	// Username and Password enable basic auth when both are set.
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 1000
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"msg"`
	Caller  string `json:"caller"`
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// Pusher batches log entries and ships them to a loki endpoint.
type Pusher struct {
	config  Config
	client  *http.Client
	entries chan LogEntry
	quit    chan struct{}
	done    sync.WaitGroup
	logger  Logger
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	p := &Pusher{
		config:  cfg,
		client:  &http.Client{},
		entries: make(chan LogEntry, cfg.BatchMaxSize),
		quit:    make(chan struct{}),
		logger:  logger,
	}

	p.done.Add(1)
	go p.run(ctx)
	return p, nil
}

// Push queues a log entry; it never blocks the caller beyond batch capacity.
func (p *Pusher) Push(entry LogEntry) error {
	p.entries <- entry
	return nil
}

// Stop flushes the pending batch and shuts the pusher down.
func (p *Pusher) Stop() {
	close(p.quit)
	p.done.Wait()
}

func (p *Pusher) run(ctx context.Context) {
	defer p.done.Done()

	batch := make([][]string, 0, p.config.BatchMaxSize)
	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.send(ctx, batch); err != nil {
			p.logger.Error("failed to send logs to loki", "error", err)
		}
		batch = batch[:0]
	}

	drain := func() {
		for {
			select {
			case entry := <-p.entries:
				batch = append(batch, encodeEntry(entry))
			default:
				return
			}
		}
	}

	defer func() {
		drain()
		flush()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case entry := <-p.entries:
			batch = append(batch, encodeEntry(entry))
			if len(batch) >= p.config.BatchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func encodeEntry(entry LogEntry) []string {
	line, err := json.Marshal(entry)
	if err != nil {
		return nil
	}
	return []string{strconv.FormatInt(time.Now().UnixNano(), 10), string(line)}
}

func (p *Pusher) send(ctx context.Context, batch [][]string) error {

	payload := pushRequest{Streams: []stream{{
		Stream: p.config.Labels,
		Values: batch,
	}}}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(payload); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("loki responded with status %d", resp.StatusCode)
	}
	return nil
}
