package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Craftserve/msgproxy"
	"github.com/Craftserve/msgproxy/config"
	"github.com/Craftserve/msgproxy/filters/msgedit"
	"github.com/Craftserve/msgproxy/intercept"
	"github.com/Craftserve/msgproxy/metrics"
	"github.com/Craftserve/msgproxy/placeholders"
	"github.com/Craftserve/msgproxy/rewrite"
	"github.com/Craftserve/msgproxy/rules"
)

type serveOptions struct {
	rules           ruleFlags
	listen          string
	upstreams       string
	upstream        string
	metricsAddr     string
	redisAddr       string
	redisPrefix     string
	mysqlDSN        string
	analyze         []string
	analyzeLog      string
	resolverTimeout time.Duration
	logLevel        string
	watch           bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), &opts)
		},
	}

	opts.rules.register(cmd)
	cmd.Flags().StringVar(&opts.listen, "listen", ":25565", "Address players connect to")
	cmd.Flags().StringVar(&opts.upstreams, "upstreams", "upstreams.yml", "Upstream servers file")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "lobby", "Upstream players are sent to")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /recent on this address")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "Redis for placeholders and reload requests")
	cmd.Flags().StringVar(&opts.redisPrefix, "redis-prefix", placeholders.DefaultRedisPrefix, "Redis placeholder key prefix")
	cmd.Flags().StringVar(&opts.mysqlDSN, "mysql-dsn", "", "Load additional rules from MySQL (tcp:addr*db/user/pass)")
	cmd.Flags().StringSliceVar(&opts.analyze, "analyze", nil, "Text kinds to log as seen, or any")
	cmd.Flags().StringVar(&opts.analyzeLog, "analyze-log", "analyze.log", "Analyzer log file")
	cmd.Flags().DurationVar(&opts.resolverTimeout, "resolver-timeout", rewrite.DefaultResolverTimeout, "Placeholder lookup timeout")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level")
	cmd.Flags().BoolVar(&opts.watch, "watch", true, "Reload when rule files change")

	return cmd
}

func parseKinds(names []string) ([]rules.TextKind, error) {
	var kinds []rules.TextKind
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == rules.AnyKind {
			return rules.AllKinds(), nil
		}
		kind, err := rules.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func serve(ctx context.Context, opts *serveOptions) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if err = msgproxy.LoadUpstreams(opts.upstreams); err != nil {
		return fmt.Errorf("upstreams: %w", err)
	}
	msgproxy.DefaultUpstream = opts.upstream

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	msgproxy.Metrics = m

	static := placeholders.NewStatic(nil)
	loader := opts.rules.loader(static)
	if opts.mysqlDSN != "" {
		loader.DB, err = config.NewDbMap(opts.mysqlDSN)
		if err != nil {
			return err
		}
		defer loader.DB.Db.Close()
	}

	store := rules.NewStore(nil)
	reloader := &config.Reloader{Store: store, Loader: loader, Metrics: m}
	if err = reloader.Reload("startup"); err != nil {
		return err
	}

	chain := placeholders.Chain{&placeholders.Builtin{Online: msgproxy.Players.Len}, static}
	if opts.redisAddr != "" {
		pool, err := radix.NewPool("tcp", opts.redisAddr, 4)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer pool.Close()
		chain = append(chain, &placeholders.Redis{Client: pool, Prefix: opts.redisPrefix})

		sub, err := config.SubscribeReload(radix.PersistentPubSub("tcp", opts.redisAddr, nil), reloader)
		if err != nil {
			return fmt.Errorf("redis subscribe: %w", err)
		}
		defer sub.Kill(nil)
	}

	var analyzer *intercept.Analyzer
	if len(opts.analyze) > 0 {
		kinds, err := parseKinds(opts.analyze)
		if err != nil {
			return err
		}
		out := &lumberjack.Logger{
			Filename:   opts.analyzeLog,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     7,
		}
		defer out.Close()
		analyzer = intercept.NewAnalyzer(kinds, out)
	}

	interceptor := intercept.New(store,
		rewrite.NewEngine(chain, opts.resolverTimeout),
		intercept.WithMetrics(m),
		intercept.WithAnalyzer(analyzer),
	)
	msgedit.RegisterFilters(interceptor)

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler(reg))
		if analyzer != nil {
			mux.Handle("/recent", analyzer)
		}
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	if opts.watch {
		watcher, err := config.WatchFiles(reloader, config.DefaultDebounce, opts.rules.rulesPath, opts.rules.editsDir)
		if err != nil {
			return err
		}
		defer watcher.Kill(nil)
	}

	listener, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		listener.Close()
		n := msgproxy.Players.KickAll("Proxy is restarting")
		logrus.WithField("players", n).Info("Shutting down")
	}()

	logrus.WithFields(logrus.Fields{
		"listen":   opts.listen,
		"upstream": opts.upstream,
		"rules":    store.Snapshot().Len(),
	}).Info("msgproxy listening")
	err = msgproxy.Serve(listener.(*net.TCPListener))

	// kicked players get a moment to receive the message
	deadline := time.Now().Add(3 * time.Second)
	for msgproxy.Players.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	return err
}
