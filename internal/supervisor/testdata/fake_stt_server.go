package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	host := flag.String("host", "127.0.0.1", "host")
	port := flag.String("port", "8000", "port")
	model := flag.String("model", "", "model")
	flag.String("device", "", "device")
	flag.String("compute-type", "", "compute type")
	cacheDir := flag.String("cache-dir", "", "model cache dir")
	mode := flag.String("mode", "serve", "serve | hang | exit")
	flag.Parse()

	switch *mode {
	case "exit":
		fmt.Fprintln(os.Stderr, "fake stt: exiting on request")
		os.Exit(3)
	case "hang":
		fmt.Fprintln(os.Stderr, "fake stt: never listening")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return
	}

	if *cacheDir != "" {
		if fi, err := os.Stat(*cacheDir); err != nil || !fi.IsDir() {
			log.Fatalf("cache dir missing: %s", *cacheDir)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{{"id": *model}}})
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		text := fmt.Sprintf("heard %d bytes as %s model=%s language=%s", hdr.Size, hdr.Filename, r.FormValue("model"), r.FormValue("language"))
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	})

	ln, err := net.Listen("tcp", net.JoinHostPort(*host, *port))
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	fmt.Fprintf(os.Stderr, "fake stt: listening on %s\n", ln.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
