// Package app wires the fundlock runtime and HTTP lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/topstarwebking/fundlock/internal/fundlock/api/rest"
	"github.com/topstarwebking/fundlock/internal/fundlock/auth"
	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	"github.com/topstarwebking/fundlock/internal/fundlock/service"
	"github.com/topstarwebking/fundlock/internal/fundlock/storage/sqlite"
	"github.com/topstarwebking/fundlock/internal/fundlock/swap"
	"github.com/topstarwebking/fundlock/internal/fundlock/swap/fixedrate"
	"github.com/topstarwebking/fundlock/internal/platform/config"
)

const shutdownTimeout = 10 * time.Second

type serverEnv struct {
	DBPath          string        `env:"FUNDLOCK_DB_PATH"`
	OwnerAddress    string        `env:"FUNDLOCK_OWNER_ADDRESS"`
	SettlementAsset string        `env:"FUNDLOCK_SETTLEMENT_ASSET" envDefault:"usdc"`
	ClaimWindow     time.Duration `env:"FUNDLOCK_CLAIM_WINDOW"     envDefault:"720h"`
	SwapRates       string        `env:"FUNDLOCK_SWAP_RATES"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "fundlock.db")
	}
	if strings.TrimSpace(cfg.OwnerAddress) == "" {
		return serverEnv{}, fmt.Errorf("FUNDLOCK_OWNER_ADDRESS is required")
	}
	return cfg, nil
}

// Server hosts the fundlock HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	manager    *service.Manager
}

// New creates a configured fundlock server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured fundlock server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env, err := loadServerEnv()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	verifier, err := auth.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	store, err := openStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	converter, err := buildConverter(env.SwapRates)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	manager, err := service.New(store, converter, service.Config{
		Owner:           domain.NormalizeAddress(env.OwnerAddress),
		SettlementAsset: domain.NormalizeAsset(env.SettlementAsset),
		ClaimWindow:     env.ClaimWindow,
	})
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build manager: %w", err)
	}

	handler, err := rest.New(manager, verifier)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build handler: %w", err)
	}

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler.Routes(http.NewServeMux()),
			ReadHeaderTimeout: 5 * time.Second,
		},
		store:   store,
		manager: manager,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Manager exposes the plan manager, mainly for startup hooks.
func (s *Server) Manager() *service.Manager {
	if s == nil {
		return nil
	}
	return s.manager
}

// Run creates and serves a fundlock server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("fundlock server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases fundlock server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close fundlock store: %v", err)
		}
	}
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fundlock sqlite store: %w", err)
	}
	return store, nil
}

func buildConverter(rates string) (swap.Converter, error) {
	parsed, err := fixedrate.ParseRates(rates)
	if err != nil {
		return nil, fmt.Errorf("parse swap rates: %w", err)
	}
	converter, err := fixedrate.New(parsed)
	if err != nil {
		return nil, fmt.Errorf("build swap converter: %w", err)
	}
	return converter, nil
}
