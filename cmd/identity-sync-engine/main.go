package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-logr/logr"
	pflag "github.com/spf13/pflag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distributedcloud/identity-sync-engine/pkg/audit"
	"github.com/distributedcloud/identity-sync-engine/pkg/backoff"
	"github.com/distributedcloud/identity-sync-engine/pkg/config"
	"github.com/distributedcloud/identity-sync-engine/pkg/dbsyncclient"
	"github.com/distributedcloud/identity-sync-engine/pkg/fault"
	"github.com/distributedcloud/identity-sync-engine/pkg/fernet"
	"github.com/distributedcloud/identity-sync-engine/pkg/hostsfile"
	"github.com/distributedcloud/identity-sync-engine/pkg/logging"
	"github.com/distributedcloud/identity-sync-engine/pkg/mapping"
	"github.com/distributedcloud/identity-sync-engine/pkg/store"
	"github.com/distributedcloud/identity-sync-engine/pkg/subcloud"
	"github.com/distributedcloud/identity-sync-engine/pkg/subcloudregistry"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncmanager"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

const (
	flagMetricsBindAddress     = "metrics-bind-address"
	flagHealthProbeBindAddress = "health-probe-bind-address"
	flagAddnHostsPath          = "addn-hosts-path"

	flagStoreDSN           = "store-dsn"
	flagStoreMaxOpenConns  = "store-max-open-conns"
	flagStoreMigrationsDir = "store-migrations-dir"

	flagEngineIdleSleep        = "engine-idle-sleep"
	flagEngineMasterRegionName = "engine-master-region-name"
	flagEngineMasterDbsyncURL  = "engine-master-dbsync-url"
	flagEngineDbsyncPort       = "engine-dbsync-port"

	flagFernetRotationInterval = "fernet-rotation-interval"
	flagFernetRotateCommand    = "fernet-rotate-command"
	flagFernetKeyRepoDir       = "fernet-key-repo-dir"

	flagAuditInterval = "audit-interval"

	flagBackoffInitial = "backoff-initial"
	flagBackoffCap     = "backoff-cap"
	flagBackoffFactor  = "backoff-factor"

	flagLoggingDevelopment = "logging-development"
)

var cfg config.Config

func main() {
	if err := runner(); err != nil {
		fmt.Fprintln(os.Stderr, "identity-sync-engine: "+err.Error())
		os.Exit(1)
	}
}

func runner() error {
	if err := parseFlags(); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if _, err := env.UnmarshalFromEnviron(&cfg.Environment); err != nil {
		return fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return setupApplication()
}

func parseFlags() error {
	def := config.Config{
		Store:   config.StoreConfig{MaxOpenConns: 10, MigrationsDir: "migrations"},
		Engine:  config.DefaultEngineConfig(),
		Fernet:  config.DefaultFernetConfig(),
		Audit:   config.DefaultAuditConfig(),
		Backoff: config.DefaultBackoffConfig(),
	}

	pflag.StringVar(&cfg.Operator.MetricsAddr, flagMetricsBindAddress, ":8080",
		"The address the metric endpoint binds to.")
	pflag.StringVar(&cfg.Operator.ProbeAddr, flagHealthProbeBindAddress, ":8081",
		"Not used: /healthz and /readyz are served on the metrics bind address.")
	pflag.StringVar(&cfg.Operator.AddnHostsPath, flagAddnHostsPath, "/etc/dnsmasq.addn_hosts_dc",
		"Path to the dnsmasq additional-hosts file regenerated from the subcloud registry.")

	pflag.StringVar(&cfg.Store.DSN, flagStoreDSN, "",
		"libpq-style connection string for the local transactional store.")
	pflag.IntVar(&cfg.Store.MaxOpenConns, flagStoreMaxOpenConns, def.Store.MaxOpenConns,
		"Maximum number of open connections to the local store.")
	pflag.StringVar(&cfg.Store.MigrationsDir, flagStoreMigrationsDir, def.Store.MigrationsDir,
		"Not used: the goose SQL migrations embedded in the binary are always applied.")

	pflag.DurationVar(&cfg.Engine.IdleSleep, flagEngineIdleSleep, def.Engine.IdleSleep,
		"How long a sync thread waits on its wakeup condition before re-checking the queue.")
	pflag.StringVar(&cfg.Engine.MasterRegionName, flagEngineMasterRegionName, def.Engine.MasterRegionName,
		"Region name of the system controller itself.")
	pflag.StringVar(&cfg.Engine.MasterDbsyncURL, flagEngineMasterDbsyncURL, def.Engine.MasterDbsyncURL,
		"Base URL of the system controller's own dbsync endpoint.")
	pflag.IntVar(&cfg.Engine.DbsyncPort, flagEngineDbsyncPort, def.Engine.DbsyncPort,
		"Port each subcloud's dbsync endpoint listens on.")
	cfg.Engine.EndpointTypes = def.Engine.EndpointTypes

	pflag.DurationVar(&cfg.Fernet.RotationInterval, flagFernetRotationInterval, def.Fernet.RotationInterval,
		"How often the master's fernet key ring is rotated.")
	pflag.StringVar(&cfg.Fernet.RotateCommand, flagFernetRotateCommand, def.Fernet.RotateCommand,
		"Local key-rotation command invoked on each rotation cycle.")
	pflag.StringVar(&cfg.Fernet.KeyRepoDir, flagFernetKeyRepoDir, def.Fernet.KeyRepoDir,
		"On-disk fernet key repository directory read back after a rotation.")

	pflag.DurationVar(&cfg.Audit.Interval, flagAuditInterval, def.Audit.Interval,
		"Cadence of the periodic reconciliation sweep.")
	cfg.Audit.ExcludedUsers = def.Audit.ExcludedUsers
	cfg.Audit.ExcludedRoles = def.Audit.ExcludedRoles
	cfg.Audit.ExcludedProjects = def.Audit.ExcludedProjects

	pflag.DurationVar(&cfg.Backoff.Initial, flagBackoffInitial, def.Backoff.Initial,
		"Initial backoff delay applied when a subcloud endpoint is unreachable.")
	pflag.DurationVar(&cfg.Backoff.Cap, flagBackoffCap, def.Backoff.Cap,
		"Maximum backoff delay applied when a subcloud endpoint is unreachable.")
	pflag.Float64Var(&cfg.Backoff.Factor, flagBackoffFactor, def.Backoff.Factor,
		"Exponential backoff growth factor.")

	pflag.BoolVar(&cfg.Logging.Development, flagLoggingDevelopment, false,
		"Use human-readable console logging instead of JSON.")

	pflag.Parse()
	return nil
}

// setupApplication wires every component and blocks until an interrupt or
// terminate signal is received, then shuts down gracefully.
func setupApplication() error {
	zl, err := logging.NewZapLogger(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logging.SetRoot(zl)
	log := zl.WithName("setup")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, zl)

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("unable to open local store: %w", err)
	}

	mappingRepo := mapping.NewRepository(db, zl)
	queue := workqueue.NewRepository(db, zl)
	registryRepo := subcloudregistry.NewRepository(db, zl)

	var faultSink fault.Sink
	if cfg.Environment.OpsgenieAPIKey != "" {
		sink, err := fault.NewOpsgenieSink(cfg.Environment.OpsgenieAPIKey, zl)
		if err != nil {
			return fmt.Errorf("unable to build fault sink: %w", err)
		}
		faultSink = sink
	} else {
		log.Info("OPSGENIE_API_KEY not set, fault emission disabled")
	}
	statusTracker := subcloudregistry.NewStatusTracker(registryRepo, faultSink, zl)

	auditEngine := audit.NewEngine(queue, mappingRepo, cfg.Audit, zl)
	auditEngine.OnResult = statusTracker.RecordAuditResult

	syncMgr := syncmanager.New(zl)
	fernetMgr := fernet.NewManager(cfg.Fernet, queue, syncMgr, zl)
	hostsWriter := hostsfile.NewWriter(cfg.Operator.AddnHostsPath, zl)
	bo := backoff.New(cfg.Backoff)

	masterSession := dbsyncclient.NewSession(staticCredentialSource{token: cfg.Environment.DbsyncAuthToken})
	masterClient, err := dbsyncclient.NewClient(cfg.Engine.MasterDbsyncURL, masterSession, nil)
	if err != nil {
		return fmt.Errorf("unable to build master dbsync client: %w", err)
	}

	// Rebuild the generic sync manager's registry from durable state on
	// startup (spec.md §4.8).
	subclouds, err := registryRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("unable to list registered subclouds: %w", err)
	}
	for _, s := range subclouds {
		h, buildErr := buildSubcloudHandle(s, masterClient, masterSession, queue, mappingRepo, statusTracker, bo, zl.WithValues("region", s.RegionName))
		if buildErr != nil {
			log.Error(buildErr, "unable to build subcloud handle, skipping", "region", s.RegionName)
			continue
		}
		syncMgr.AddSubcloud(h)
		if s.SyncPermitted() {
			h.Enable(ctx)
		}
	}
	if err := hostsWriter.Regenerate(subclouds); err != nil {
		log.Error(err, "unable to regenerate addn_hosts file at startup")
	}

	go fernetMgr.Run(ctx)
	go runAuditLoop(ctx, zl, cfg.Audit.Interval, syncMgr, auditEngine)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.Operator.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server failed")
		}
	}()

	log.Info("identity-sync-engine started", "subclouds", len(subclouds))
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildSubcloudHandle constructs a dbsyncclient.Client and subcloud.Handle
// for one registry record (spec.md §4.6).
func buildSubcloudHandle(
	s subcloudregistry.Subcloud,
	master *dbsyncclient.Client,
	masterSession *dbsyncclient.Session,
	queue *workqueue.Repository,
	mappingRepo *mapping.Repository,
	status syncthread.StatusSink,
	bo backoff.Policy,
	logger logr.Logger,
) (*subcloud.Handle, error) {
	subSession := dbsyncclient.NewSession(staticCredentialSource{token: cfg.Environment.DbsyncAuthToken})
	subURL := fmt.Sprintf("https://%s:%d", s.ManagementStartIP, cfg.Engine.DbsyncPort)
	subClient, err := dbsyncclient.NewClient(subURL, subSession, nil)
	if err != nil {
		return nil, fmt.Errorf("build subcloud client for %s: %w", s.RegionName, err)
	}

	sessions := dbsyncclient.PairedSessions{Master: masterSession, Subcloud: subSession}
	h := subcloud.New(s.RegionName, cfg.Engine, master, subClient, queue, mappingRepo, sessions, status, bo, logger)
	return h, nil
}

func runAuditLoop(ctx context.Context, logger logr.Logger, interval time.Duration, syncMgr *syncmanager.Manager, engine *audit.Engine) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := syncMgr.RunSyncAudit(ctx, engine); err != nil {
				logger.Error(err, "periodic audit sweep failed")
			}
		}
	}
}

// staticCredentialSource authenticates with a single preconfigured bearer
// token, since this engine is dbsync-only and has no identity-API client
// to exchange credentials against (see DESIGN.md).
type staticCredentialSource struct {
	token string
}

func (s staticCredentialSource) Authenticate(_ context.Context) (string, error) {
	return s.token, nil
}
