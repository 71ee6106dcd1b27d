package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	expiringmap "github.com/krisalay/expiring-map"
	"github.com/krisalay/expiring-map/api"
	"github.com/krisalay/expiring-map/metrics"
)

// ================= SESSION STORE =================

// Session is what the demo keeps per login.
type Session struct {
	User     string
	IssuedAt time.Time
}

// ================= CONFIG =================

type config struct {
	ttl         time.Duration
	metricsAddr string
}

func loadConfig() config {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	return config{
		ttl:         getEnvDuration("EXPIRINGMAP_TTL", 500*time.Millisecond),
		metricsAddr: getEnv("EXPIRINGMAP_METRICS_ADDR", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("invalid %s=%q, using %s", key, value, fallback)
	}
	return fallback
}

// ================= MAIN =================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()

	fmt.Println("\n==================== SYSTEM BOOT ====================")
	fmt.Println("TTL             :", cfg.ttl)
	fmt.Println("METRICS ADDR    :", orNone(cfg.metricsAddr))

	reg := prometheus.NewRegistry()
	pm := metrics.NewPrometheus(reg, "sessions")

	sessions, err := expiringmap.New(expiringmap.Config[string, Session]{
		TTL:     cfg.ttl,
		Metrics: pm,
		OnExpire: func(id string, s Session) {
			fmt.Printf("EXPIRE → session %s of %s\n", short(id), s.User)
		},
	})
	if err != nil {
		log.Fatalf("create session map: %v", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Printf("session map close: %v", err)
		}
	}()

	counters, err := expiringmap.New(expiringmap.Config[string, int]{TTL: cfg.ttl, Metrics: metrics.NewPrometheus(reg, "counters")})
	if err != nil {
		log.Fatalf("create counter map: %v", err)
	}
	defer counters.Close()

	var srv *http.Server
	if cfg.metricsAddr != "" {
		srv = startHTTP(cfg.metricsAddr, reg, sessions)
	}

	if err := runScenario(ctx, sessions, counters, cfg.ttl); err != nil {
		log.Printf("scenario stopped: %v", err)
	}

	stats, _ := json.Marshal(sessions.Stats())
	fmt.Println("\n==================== STATS ====================")
	fmt.Println(string(stats))

	if srv != nil {
		fmt.Println("\nserving metrics, press Ctrl+C to exit")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	fmt.Println("\n==================== SHUTDOWN ====================")
}

func runScenario(ctx context.Context, sessions api.Map[string, Session], counters api.Map[string, int], ttl time.Duration) error {
	// ====================================================
	fmt.Println("\n==================== 1) LOGIN ====================")
	alice := uuid.NewString()
	if _, _, err := sessions.Put(alice, Session{User: "alice", IssuedAt: time.Now()}); err != nil {
		return err
	}
	fmt.Printf("PUT    → session %s (ttl %s)\n", short(alice), sessions.TTL(alice).Round(time.Millisecond))

	// ====================================================
	fmt.Println("\n==================== 2) REFRESH ====================")
	if err := sleep(ctx, ttl*6/10); err != nil {
		return err
	}
	if _, _, err := sessions.ComputeIfPresent(alice, func(_ string, s Session) (Session, bool) {
		s.IssuedAt = time.Now()
		return s, true
	}); err != nil {
		return err
	}
	fmt.Printf("TOUCH  → session %s ttl back to %s\n", short(alice), sessions.TTL(alice).Round(time.Millisecond))

	// ====================================================
	fmt.Println("\n==================== 3) LOGOUT + RELOGIN ====================")
	bob := uuid.NewString()
	_, _, _ = sessions.Put(bob, Session{User: "bob", IssuedAt: time.Now()})
	sessions.Remove(bob)
	_, _, _ = sessions.Put(bob, Session{User: "bob", IssuedAt: time.Now()})
	fmt.Printf("PUT    → session %s re-issued, old timer retired\n", short(bob))

	// ====================================================
	fmt.Println("\n==================== 4) RATE COUNTERS ====================")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = counters.Merge("alice", 1, func(old, v int) (int, bool) { return old + v, true })
		}()
	}
	wg.Wait()
	n, _ := counters.Get("alice")
	fmt.Println("MERGE  → alice requests =", n)

	// ====================================================
	fmt.Println("\n==================== 5) EXPIRATION ====================")
	if err := sleep(ctx, ttl+ttl/2); err != nil {
		return err
	}
	fmt.Println("LEN    → sessions after ttl =", sessions.Len())
	if _, ok := counters.Get("alice"); !ok {
		fmt.Println("GET    → alice counter expired")
	}

	return nil
}

func startHTTP(addr string, reg *prometheus.Registry, sessions api.Map[string, Session]) *http.Server {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sessions.Stats())
	}).Methods("GET")

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orNone(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}
