package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-playground/validator/v10"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type ErrorReporter interface {
	Error(msg string, args ...any)
}

type Config struct {

	// Url of the loki push endpoint, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	// BatchMaxSize is the maximum number of log lines that are sent in one request
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the maximum time a line waits in the batch before it is sent
	BatchMaxWait time.Duration `validate:"gte=1"`

	// Labels that are added to the stream of every line
	Labels map[string]string

	// Username and Password enable basic authentication when both are set.
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 500
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Caller    string `json:"caller,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	JobID     string `json:"job_id,omitempty"`
}

// Pusher batches log lines and ships them to Loki from a single goroutine.
// Push never blocks the caller; lines are dropped when the buffer is full.
type Pusher struct {
	config   Config
	client   *http.Client
	entries  chan streamValue
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Int64
	reporter ErrorReporter
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values []streamValue     `json:"values"`
}

type streamValue [2]string

func New(ctx context.Context, cfg Config, reporter ErrorReporter) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	p := &Pusher{
		config:   cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		entries:  make(chan streamValue, cfg.BatchMaxSize*2),
		done:     make(chan struct{}),
		reporter: reporter,
	}

	p.wg.Add(1)
	go p.run(ctx)
	return p, nil
}

func (p *Pusher) Push(e LogEntry) {
	line, err := json.Marshal(e)
	if err != nil {
		return
	}

	select {
	case p.entries <- streamValue{strconv.FormatInt(time.Now().UnixNano(), 10), string(line)}:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many lines were discarded because the buffer was full.
func (p *Pusher) Dropped() int64 {
	return p.dropped.Load()
}

// Stop sends whatever is buffered and waits for the background goroutine to exit.
func (p *Pusher) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Pusher) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	batch := make([]streamValue, 0, p.config.BatchMaxSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// a detached context lets the final batch out after the parent is cancelled
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.send(sendCtx, batch); err != nil {
			p.reporter.Error("failed to send logs", "error", err, "lines", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			p.drain(&batch)
			flush()
			return
		case <-p.done:
			p.drain(&batch)
			flush()
			return
		case value := <-p.entries:
			batch = append(batch, value)
			if len(batch) >= p.config.BatchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pusher) drain(batch *[]streamValue) {
	for {
		select {
		case value := <-p.entries:
			*batch = append(*batch, value)
		default:
			return
		}
	}
}

func (p *Pusher) send(ctx context.Context, batch []streamValue) error {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)

	if err := json.NewEncoder(gz).Encode(pushRequest{Streams: []stream{{
		Stream: p.config.Labels,
		Values: batch,
	}}}); err != nil {
		return err
	}

	if err := gz.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Url, buf)
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

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("received unexpected response code from Loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
