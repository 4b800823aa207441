package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"conferencia/painel/internal/api"
	"conferencia/painel/internal/assets"
	"conferencia/painel/internal/audio"
	"conferencia/painel/internal/backend"
	"conferencia/painel/internal/config"
	"conferencia/painel/internal/control"
	"conferencia/painel/internal/feed"
	"conferencia/painel/internal/health"
	"conferencia/painel/internal/loop"
	"conferencia/painel/internal/notify"
	"conferencia/painel/internal/poll"
	"conferencia/painel/internal/store"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	catalog := assets.DefaultCatalog()
	if cfg.Audio.CatalogFile != "" {
		c, err := assets.LoadCatalog(cfg.Audio.CatalogFile)
		if err != nil {
			log.Fatalf("load catalog: %v", err)
		}
		catalog = c
	}
	resolver := assets.NewResolver(catalog)

	player, err := audio.New(cfg.Audio.Backend, cfg.Audio.AssetDir, cfg.Audio.PlayerCmd)
	if err != nil {
		log.Fatalf("audio: %v", err)
	}

	st := store.New()
	reg := feed.NewRegistry()
	fs, unsubscribeFeed := feed.NewServer(st, reg)
	defer unsubscribeFeed()

	var pub *notify.Publisher
	if cfg.Notify.AMQPURL != "" {
		pub, err = notify.Dial(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			// Alerts keep working without the fan-out.
			log.Printf("[notify] disabled: %v", err)
		} else {
			unsubscribe := st.Subscribe(pub.Handle)
			defer func() {
				unsubscribe()
				pub.Close()
			}()
			log.Printf("[notify] publishing to exchange %s", cfg.Notify.Exchange)
		}
	}

	disp := loop.New(player, resolver, st, loop.Options{
		Gap:         cfg.Audio.Gap,
		ClipTimeout: cfg.Audio.ClipTimeout,
		Verbose:     cfg.Verbose(),
	})
	log.Printf("alert dispatcher instance %s", disp.InstanceID())

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	poller := poll.New(client, disp, cfg.Poll.Interval)

	ready := func(ctx context.Context) health.HealthStatus {
		return health.CheckAll(ctx, cfg, client, resolver.Default())
	}
	h := api.NewHandlers(cfg, disp, poller, st, ready, fs)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC control plane
	gs := grpc.NewServer(grpc.UnaryInterceptor(control.TokenInterceptor(cfg.Control.TokenSecret, cfg.Control.TokenSkewSecs)))
	control.Register(gs, control.NewServer(disp))
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(control.ServiceName, healthpb.HealthCheckResponse_SERVING)

	l, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		log.Printf("control gRPC listening on %s", cfg.Server.GRPCAddr)
		if err := gs.Serve(l); err != nil {
			log.Printf("grpc serve: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		// Stop polling first; the poller clears the alert queue on exit.
		cancel()
		wg.Wait()
		hs.Shutdown()
		gs.GracefulStop()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Printf("server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
	<-stopped
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
