// Command compileserver runs the network compile service: a QUIC
// listener accepting one compile-and-run request per stream. Flag and
// log.Fatal conventions follow cmd/jamzilla/main.go; the service layering
// (metrics, rate limiting, panic reporting wrapped around a plain
// Handler) follows the teacher's pkg/net connection/stream handling,
// generalized from JAMNP-S's fixed protocol set to this service's single
// request type.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"unsafe"

	goruntime "runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ascrivener/ghuloum/pkg/cache"
	"github.com/ascrivener/ghuloum/pkg/compilenet"
	"github.com/ascrivener/ghuloum/pkg/runtime"
)

func main() {
	listenAddr := flag.String("listen-addr", ":9400", "UDP address to accept QUIC connections on")
	metricsAddr := flag.String("metrics-addr", ":9401", "HTTP address to serve Prometheus metrics on")
	cachePath := flag.String("cache-path", "", "optional path to a compiled-code cache directory")
	codeSize := flag.Int("code-size", runtime.DefaultCodeSize, "executable buffer size in bytes, per request")
	heapSize := flag.Int("heap-size", 1<<20, "scratch heap size in bytes, per request")
	rateLimit := flag.Float64("rate-limit", 50, "compile requests per second to allow")
	rateBurst := flag.Float64("rate-burst", 10, "compile request burst size")
	sentryDSN := flag.String("sentry-dsn", "", "Sentry DSN for panic reporting (disabled if empty)")
	flag.Parse()

	if err := compilenet.InitSentry(*sentryDSN); err != nil {
		log.Fatalf("compileserver: initializing sentry: %v", err)
	}

	var c *cache.Cache
	if *cachePath != "" {
		var err error
		c, err = cache.Open(*cachePath)
		if err != nil {
			log.Fatalf("compileserver: opening cache: %v", err)
		}
		defer c.Close()
	}

	handler := compileHandler(c, *codeSize, *heapSize)
	handler = compilenet.RecoveringHandler(handler)

	limiter := compilenet.NewRateLimiter(*rateLimit, *rateBurst)
	handler = limiter.LimitedHandler(handler)

	metrics := compilenet.NewMetrics(prometheus.DefaultRegisterer)
	handler = metrics.InstrumentedHandler(handler)

	server, err := compilenet.Listen(*listenAddr, handler)
	if err != nil {
		log.Fatalf("compileserver: %v", err)
	}
	defer server.Close()
	log.Printf("compileserver: listening on %s", server.Addr())

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Printf("compileserver: serving metrics on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Printf("compileserver: metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx); err != nil {
		log.Fatalf("compileserver: serve: %v", err)
	}
	log.Println("compileserver: shutting down")
}

// compileHandler compiles and runs one request's source against a fresh
// scratch heap, returning the tagged result word.
func compileHandler(c *cache.Cache, codeSize, heapSize int) compilenet.Handler {
	return func(ctx context.Context, source string) (uint64, error) {
		var prog *runtime.CompiledProgram
		var err error
		if c != nil {
			prog, err = runtime.CompileCached(c, source, codeSize)
		} else {
			prog, err = runtime.Compile(source, codeSize)
		}
		if err != nil {
			return 0, err
		}
		defer prog.Free()

		heap := make([]byte, heapSize)
		heapBase := uintptr(unsafe.Pointer(&heap[0]))
		result := prog.Call(heapBase)
		goruntime.KeepAlive(heap)
		return result, nil
	}
}
