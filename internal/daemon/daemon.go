package daemon

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ppc-network/tasklist/internal/api"
	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/app/tasklist"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/health"
	_ "github.com/ppc-network/tasklist/internal/infra/metrics" // Register Prometheus metrics
	"github.com/ppc-network/tasklist/internal/infra/sqlite"
	"github.com/ppc-network/tasklist/internal/infra/token"
	"github.com/ppc-network/tasklist/internal/logx"
	"github.com/ppc-network/tasklist/internal/security"
)

// node_info keys.
const (
	infoNodeID       = "node_id"
	infoRecordPubKey = "record_pubkey"
)

// Daemon is the task list runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Home    string
	NodeID  string
	DB      *sqlite.DB
	Keypair *security.Keypair
	Hub     *records.Hub
	Tasks   *tasklist.Service
	Health  *health.Checker
	Server  *api.Server

	// Tokens is the local reward ledger; nil when [reward] endpoint points
	// at a remote token service.
	Tokens  *token.Ledger
	Rewards domain.RewardHook

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := logx.ParseLevel(cfg.Logging.Level)
	logx.SetLevel(level)

	home := tasklistHome()
	db, err := sqlite.Open(home)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Daemon{Config: cfg, Home: home, DB: db}
	if err := d.init(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) init() error {
	cfg := d.Config
	store := d.DB.Store()

	// Record-signing identity (Ed25519)
	var signer records.Signer
	if cfg.Records.Sign {
		kp, err := security.LoadOrCreateKeypair(d.Home)
		if err != nil {
			return fmt.Errorf("load keypair: %w", err)
		}
		d.Keypair = kp
		signer = kp
		if err := store.SetNodeInfo(infoRecordPubKey, kp.PublicKeyHex()); err != nil {
			return fmt.Errorf("save public key: %w", err)
		}
	}

	// Derive node ID from public key (first 16 hex chars) if not configured
	d.NodeID = cfg.Node.ID
	if d.NodeID == "" && d.Keypair != nil {
		d.NodeID = "node-" + d.Keypair.PublicKeyHex()[:16]
	}
	if d.NodeID == "" {
		d.NodeID = "node-local"
	}
	if err := store.SetNodeInfo(infoNodeID, d.NodeID); err != nil {
		return fmt.Errorf("save node id: %w", err)
	}

	// Reward token: remote service or local ledger
	minter := domain.Address(cfg.Reward.Minter)
	if cfg.Reward.Endpoint != "" {
		d.Rewards = token.NewClient(cfg.Reward.Endpoint, minter)
		log.Printf("[daemon] reward token: remote %s as %s", cfg.Reward.Endpoint, minter)
	} else {
		ledger, err := token.OpenLedger(filepath.Join(d.Home, "token"), minter)
		if err != nil {
			return err
		}
		d.Tokens = ledger
		d.Rewards = ledger
		if err := ledger.GrantMinter(minter); err != nil {
			return fmt.Errorf("grant minter: %w", err)
		}
		logx.Debugf("[daemon] reward token: local ledger, minter %s", minter)
	}

	policy, err := cfg.Reward.Policy()
	if err != nil {
		return err
	}

	d.Hub = records.NewHub(cfg.Records.SubscriberBuffer)
	d.Tasks = tasklist.NewService(d.DB, records.NewRecorder(signer), d.Hub, d.Rewards, tasklist.Config{
		SalaryRate: cfg.Economics.SalaryRate,
		Reward:     policy,
	})

	// Health checker
	d.Health = health.NewChecker(d.DB, d.Home, d.Tasks, d.PublicKey(),
		parseDuration(cfg.Health.Interval, health.DefaultInterval))
	if d.Tokens != nil {
		d.Health.AddCheck(health.Check{
			Name: "reward_minter",
			CheckFn: func(ctx context.Context) error {
				ok, err := d.Tokens.IsMinter(minter)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", minter, domain.ErrNotMinter)
				}
				return nil
			},
			RecoverFn: func(ctx context.Context) error {
				return d.Tokens.GrantMinter(minter)
			},
		})
	}

	// API server
	d.Server = api.NewServer(d.Tasks, d.Hub, d.Health)
	d.Server.SetCORSOrigins(cfg.API.CORSOrigins)
	if d.Tokens != nil {
		d.Server.SetTokenLedger(d.Tokens)
	}
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}
	return nil
}

// PublicKey returns the record-signing key, or nil when signing is off.
func (d *Daemon) PublicKey() ed25519.PublicKey {
	if d.Keypair == nil {
		return nil
	}
	return d.Keypair.Public
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE record stream stays open
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		log.Printf("[daemon] shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Close live subscribers first so SSE handlers return.
		d.Hub.Close()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("tasklist serving on http://%s\n", addr)
	fmt.Printf("  Node:    %s\n", d.NodeID)
	if d.Tokens != nil {
		fmt.Printf("  Rewards: local ledger (minter %s)\n", d.Config.Reward.Minter)
	} else {
		fmt.Printf("  Rewards: %s\n", d.Config.Reward.Endpoint)
	}
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources. Safe to call more than once.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		if d.Hub != nil {
			d.Hub.Close()
		}
		if d.Tokens != nil {
			_ = d.Tokens.Close()
		}
		if d.DB != nil {
			_ = d.DB.Close()
		}
	})
}
