package main

import (
	"bytes"
	"flag"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/bankinsight/churn-insights/internal/datagen"
	"github.com/bankinsight/churn-insights/internal/store"
)

func main() {
	var (
		addr  string
		out   string
		scale int
		seed  int64
	)
	flag.StringVar(&addr, "addr", ":8090", "Listen address")
	flag.StringVar(&out, "out", "", "Write the CSV to this path and exit instead of serving it")
	flag.IntVar(&scale, "scale", 1, "Cohort size multiplier")
	flag.Int64Var(&seed, "seed", 42, "Random seed")
	flag.Parse()

	logger := log.New(log.Writer(), "datagen ", log.LstdFlags|log.Lmicroseconds)
	customers := datagen.New(datagen.Config{Scale: scale, Seed: seed}).Generate()

	if out != "" {
		if err := datagen.WriteCSV(customers, out); err != nil {
			logger.Fatalf("write dataset: %v", err)
		}
		logger.Printf("wrote %d customers to %s", len(customers), out)
		return
	}

	var body bytes.Buffer
	if err := store.WriteCSV(&body, customers); err != nil {
		logger.Fatalf("encode dataset: %v", err)
	}
	payload := body.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/customers.csv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		if r.Method == http.MethodGet {
			_, _ = w.Write(payload)
		}
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("serving %d customers on %s/customers.csv", len(customers), addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
