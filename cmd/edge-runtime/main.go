// Command edge-runtime is a local launcher for the embedded JS runtime
// core: it builds one Fixed-selector Runtime over a single app entry
// file, evaluates it, and serves HTTP fetch ingress against it over
// net/http; it has no DNS listener. The public listeners, TLS termination, and cluster
// coordination spec.md §1 calls out as external collaborators are not
// built here; this binary exists to exercise edgejs end to end the way
// the teacher's cmd/appserver exercises internal/app end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/edgenode/jsruntime/edgejs/config"
	"github.com/edgenode/jsruntime/edgejs/dispatch"
	"github.com/edgenode/jsruntime/edgejs/ingress"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/resolver"
	"github.com/edgenode/jsruntime/edgejs/runtime"
	"github.com/edgenode/jsruntime/edgejs/selector"
	"github.com/edgenode/jsruntime/edgejs/store"
	"github.com/edgenode/jsruntime/edgejs/logger"
)

func main() {
	appFile := flag.String("app", "", "path to the app's entry module (required)")
	listenAddr := flag.String("addr", ":8080", "HTTP listen address for fetch ingress")
	configPath := flag.String("config", "", "path to a YAML config file (store selection, heap limits)")
	dotenvPath := flag.String("dotenv", "", "path to a .env file layered under config/env overrides")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if strings.TrimSpace(*appFile) == "" {
		fmt.Fprintln(os.Stderr, "edge-runtime: -app is required")
		os.Exit(2)
	}

	log := logger.New(logger.LoggingConfig{Component: "host", Level: *logLevel, Format: "text", Output: "stdout"})

	cfg, err := config.Load(*configPath, *dotenvPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := buildRuntime(*appFile, cfg, log)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}
	defer rt.Dispose()

	sel := selector.NewFixed(rt)

	source, err := os.ReadFile(*appFile)
	if err != nil {
		log.Fatalf("read app entry %s: %v", *appFile, err)
	}
	if err := rt.Eval(*appFile, string(source)); err != nil {
		log.Fatalf("eval app entry: %v", err)
	}

	srv := &http.Server{
		Addr:    *listenAddr,
		Handler: fetchHandler(sel),
	}

	go func() {
		log.WithField("addr", *listenAddr).Info("edge-runtime: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err).Error("edge-runtime: http server exited")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildRuntime wires one Runtime's stores, resolver pipeline, and op
// dispatcher from cfg, the Go analog of DistributedRuntimeSelector's
// Runtime::new call in the reference design, specialized to a single
// pre-built app rather than a lazily-constructed map.
func buildRuntime(appFile string, cfg config.Config, log *logger.Logger) (*runtime.Runtime, error) {
	workingDir := filepath.Dir(appFile)
	workingURL := "file://" + workingDir + "/"

	diskResolver, err := resolver.NewLocalDiskResolver(workingURL)
	if err != nil {
		return nil, fmt.Errorf("construct local-disk resolver: %w", err)
	}
	mgr := resolver.NewStandardManager([]resolver.Resolver{diskResolver}, workingURL)

	stores := runtime.Stores{
		Cache: store.NewMemoryCache(),
		Data:  store.NewMemoryData(),
		FS:    &store.DiskFS{Root: workingDir},
		Acme:  store.NewMemoryAcme(),
	}

	d := dispatch.New(0)

	rt, err := runtime.New(runtime.ID{Name: filepath.Base(appFile), Version: "local"}, runtime.Config{
		Permissions:       runtime.Permissions{AllowOS: false, DevTools: false},
		Stores:            stores,
		DefaultWorkingURL: workingURL,
		Logger:            log,
		Resolver:          mgr,
		Dispatcher:        d,
		SoftHeapLimit:     cfg.Runtime.SoftHeapLimitBytes,
		HardHeapLimit:     cfg.Runtime.HardHeapLimitBytes,
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// fetchHandler adapts net/http's blocking request/response shape onto
// ingress.DispatchFetch, the boundary between the out-of-scope public
// listener and the in-scope Event Ingress component.
func fetchHandler(sel selector.Selector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rt, err := sel.Get(ctx, r.Host)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		headers := map[string][]string(r.Header)
		req := msg.HTTPRequest{
			Method:     r.Method,
			RemoteAddr: r.RemoteAddr,
			URL:        r.URL.String(),
			Headers:    headers,
		}

		resp, err := ingress.DispatchFetch(ctx, rt, req)
		if err != nil {
			if errors.Is(err, runtime.ErrNoListener) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}

		for k, vs := range resp.Headers {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.Status)
		if resp.HasBody {
			for chunk := range resp.BodyStream {
				_, _ = w.Write(chunk)
			}
		}
	})
}
