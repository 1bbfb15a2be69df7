package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/genoa/adapter"
	redisadapter "github.com/pithecene-io/genoa/adapter/redis"
	"github.com/pithecene-io/genoa/adapter/webhook"
	genoaconfig "github.com/pithecene-io/genoa/cli/config"
	"github.com/pithecene-io/genoa/lode"
	"github.com/pithecene-io/genoa/marker"
	"github.com/pithecene-io/genoa/types"
)

// markerBackend returns the effective marker backend name.
func (s *setup) markerBackend() string {
	if s.config.Markers.Backend == "" {
		return marker.BackendFS
	}
	return s.config.Markers.Backend
}

// openMarkers opens the configured marker store. The fs store lives in
// the work dir's state dir.
func openMarkers(ctx context.Context, s *setup) (marker.Store, func() error, error) {
	m := s.config.Markers
	store, closeFn, err := marker.Open(ctx, marker.Options{
		Backend:   s.markerBackend(),
		Dir:       s.resolved.Paths.MarkerDir,
		Scope:     marker.ScopeFor(s.resolved.Paths.WorkDir),
		RedisURL:  m.RedisURL,
		KeyPrefix: m.KeyPrefix,
		S3: marker.S3Config{
			Bucket:       m.S3.Bucket,
			Prefix:       m.S3.Prefix,
			Region:       m.S3.Region,
			Endpoint:     m.S3.Endpoint,
			UsePathStyle: m.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, nil, types.Configf("markers", "%v", err)
	}
	return store, closeFn, nil
}

// historyOptions maps the history section to lode options. A relative
// fs path is taken against the work dir; an empty one defaults to the
// state dir's history dir.
func historyOptions(s *setup) lode.Options {
	h := s.config.History
	opts := lode.Options{
		Backend:      h.Backend,
		Path:         h.Path,
		Region:       h.Region,
		Endpoint:     h.Endpoint,
		UsePathStyle: h.PathStyle,
	}
	if opts.Backend == lode.BackendFS {
		switch {
		case opts.Path == "":
			opts.Path = s.resolved.Paths.HistoryDir
		case !filepath.IsAbs(opts.Path):
			opts.Path = filepath.Join(s.resolved.Paths.WorkDir, opts.Path)
		}
	}
	return opts
}

// openHistory opens run history; nil when disabled.
func openHistory(ctx context.Context, s *setup) (*lode.History, error) {
	h, err := lode.Open(ctx, historyOptions(s))
	if err != nil {
		return nil, types.Configf("history", "%v", err)
	}
	return h, nil
}

// notifyChoice holds the resolved notification settings.
type notifyChoice struct {
	notifyType string
	url        string
	channel    string
	headers    map[string]string
	timeout    time.Duration
	retries    int
}

// parseNotifyConfig merges notify flags over the settings file. CLI wins.
func parseNotifyConfig(c *cli.Context, cfg *genoaconfig.Config) (*notifyChoice, error) {
	n := configVal(cfg, func(c *genoaconfig.Config) genoaconfig.NotifyConfig { return c.Notify })

	choice := &notifyChoice{
		notifyType: resolveString(c, "notify", n.Type),
		url:        resolveString(c, "notify-url", n.URL),
		channel:    resolveString(c, "notify-channel", n.Channel),
		headers:    n.Headers,
		timeout:    resolveDuration(c, "notify-timeout", n.Timeout.Duration),
	}

	switch {
	case c.IsSet("notify-retries"):
		choice.retries = c.Int("notify-retries")
	case n.Retries != nil:
		choice.retries = *n.Retries
	case choice.notifyType == "redis":
		choice.retries = redisadapter.DefaultRetries
	default:
		choice.retries = webhook.DefaultRetries
	}

	switch choice.notifyType {
	case "":
		return choice, nil
	case "webhook", "redis":
	default:
		return nil, types.Configf("notify.type", "unknown notify type %q (must be webhook or redis)", choice.notifyType)
	}
	if choice.url == "" {
		return nil, types.Configf("notify.url", "--notify-url is required when --notify=%s", choice.notifyType)
	}
	if choice.retries < 0 {
		return nil, types.Configf("notify.retries", "--notify-retries must be >= 0, got %d", choice.retries)
	}
	return choice, nil
}

// newNotifier builds the adapter for choice; nil when disabled.
func newNotifier(choice *notifyChoice) (adapter.Adapter, error) {
	switch choice.notifyType {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     choice.url,
			Headers: choice.headers,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     choice.url,
			Channel: choice.channel,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	default:
		return nil, fmt.Errorf("unknown notify type %q", choice.notifyType)
	}
}
