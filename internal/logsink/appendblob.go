// Package logsink ships JSON log lines to an Azure append blob.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

var errClosed = errors.New("log sink closed")

type Config struct {
	AccountName string
	AccountKey  string
	Container   string
	BlobName    string        // defaults to YYYY/MM/DD/<hostname>.jsonl
	FlushEvery  time.Duration // default 2s
	Level       slog.Leveler
}

func (c Config) Enabled() bool {
	return c.AccountName != "" && c.AccountKey != "" && c.Container != ""
}

type appender interface {
	Create(ctx context.Context, o *appendblob.CreateOptions) (appendblob.CreateResponse, error)
	AppendBlock(ctx context.Context, body io.ReadSeekCloser, o *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error)
}

type Handler struct {
	cfg    Config
	ab     appender
	ch     chan []byte
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	ticker *time.Ticker
}

func New(ctx context.Context, cfg Config) (*Handler, error) {
	if !cfg.Enabled() {
		return nil, errors.New("AccountName, AccountKey and Container are required")
	}
	if cfg.BlobName == "" {
		host, _ := os.Hostname()
		now := time.Now().UTC()
		cfg.BlobName = FormatDateFolder(now.Year(), int(now.Month()), now.Day()) + "/" + host + ".jsonl"
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, err
	}
	// BlobName may include slashes; only the container is escaped.
	blobURL := "https://" + cfg.AccountName + ".blob.core.windows.net/" +
		url.PathEscape(cfg.Container) + "/" + cfg.BlobName

	ab, err := appendblob.NewClientWithSharedKeyCredential(blobURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return newHandler(ctx, cfg, ab)
}

func newHandler(ctx context.Context, cfg Config, ab appender) (*Handler, error) {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 2 * time.Second
	}
	if cfg.Level == nil {
		cfg.Level = slog.LevelInfo
	}

	_, err := ab.Create(ctx, &appendblob.CreateOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		return nil, fmt.Errorf("failed to create log blob %s: %w", cfg.BlobName, err)
	}

	h := &Handler{
		cfg:    cfg,
		ab:     ab,
		ch:     make(chan []byte, 1024),
		stop:   make(chan struct{}),
		ticker: time.NewTicker(cfg.FlushEvery),
	}
	h.wg.Add(1)
	go h.loop()
	return h, nil
}

// Close flushes buffered lines and stops the background writer.
func (h *Handler) Close() error {
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()
		h.ticker.Stop()
	})
	return nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.Level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	return h.handle(ctx, r, "", nil)
}

func (h *Handler) handle(_ context.Context, r slog.Record, group string, attrs []slog.Attr) error {
	ev := make(map[string]any, r.NumAttrs()+len(attrs)+3)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ev["ts"] = ts.UTC().Format(time.RFC3339Nano)
	ev["level"] = r.Level.String()
	ev["msg"] = r.Message

	for _, a := range attrs {
		addAttr(ev, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(ev, group, a)
		return true
	})

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return err
	}

	select {
	case h.ch <- b.Bytes():
		return nil
	case <-h.stop:
		return errClosed
	}
}

func addAttr(ev map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, aa := range a.Value.Group() {
			addAttr(ev, key, aa)
		}
		return
	}
	if err, ok := a.Value.Any().(error); ok {
		ev[key] = err.Error()
		return
	}
	ev[key] = a.Value.Any()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{root: h, attrs: attrs}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &derived{root: h, group: name}
}

// derived carries attrs and a group name added through With*.
type derived struct {
	root  *Handler
	group string
	attrs []slog.Attr
}

func (d *derived) Enabled(ctx context.Context, level slog.Level) bool {
	return d.root.Enabled(ctx, level)
}

func (d *derived) Handle(ctx context.Context, r slog.Record) error {
	return d.root.handle(ctx, r, d.group, d.attrs)
}

func (d *derived) WithAttrs(attrs []slog.Attr) slog.Handler {
	grouped := attrs
	if d.group != "" {
		grouped = []slog.Attr{{Key: d.group, Value: slog.GroupValue(attrs...)}}
	}
	return &derived{root: d.root, group: d.group, attrs: append(append([]slog.Attr{}, d.attrs...), grouped...)}
}

func (d *derived) WithGroup(name string) slog.Handler {
	if d.group != "" {
		name = d.group + "." + name
	}
	return &derived{root: d.root, group: name, attrs: d.attrs}
}

func (h *Handler) loop() {
	defer h.wg.Done()
	var buf []byte
	flush := func() {
		if len(buf) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := h.ab.AppendBlock(ctx, readSeekNopCloser{bytes.NewReader(buf)}, nil); err != nil {
			// slog would loop back into this handler
			fmt.Fprintf(os.Stderr, "logsink: append failed: %v\n", err)
		}
		buf = buf[:0]
	}

	for {
		select {
		case <-h.stop:
			for {
				select {
				case line := <-h.ch:
					buf = append(buf, line...)
				default:
					flush()
					return
				}
			}
		case line := <-h.ch:
			buf = append(buf, line...)
		case <-h.ticker.C:
			flush()
		}
	}
}

type readSeekNopCloser struct{ io.ReadSeeker }

func (r readSeekNopCloser) Close() error { return nil }
