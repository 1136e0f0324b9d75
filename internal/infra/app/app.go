package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/backend"
	"github.com/arklim/social-platform-authkit/internal/infra/config"
	"github.com/arklim/social-platform-authkit/internal/infra/device"
	"github.com/arklim/social-platform-authkit/internal/infra/logger"
	"github.com/arklim/social-platform-authkit/internal/infra/security"
	"github.com/arklim/social-platform-authkit/internal/infra/storage"
	"github.com/arklim/social-platform-authkit/internal/infra/telemetry"
	"github.com/arklim/social-platform-authkit/internal/transport/http/routes"
	"github.com/arklim/social-platform-authkit/internal/usecase"
)

// Application wires the full subsystem together and runs the local
// diagnostics listener.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	machine *usecase.AuthStateMachine
	monitor *usecase.SecurityMonitor

	// Exposed for embedding hosts that drive the session directly.
	Machine   *usecase.AuthStateMachine
	Lifecycle *usecase.TokenLifecycleManager
	Store     *usecase.SecureTokenStore
	Monitor   *usecase.SecurityMonitor
	Recovery  *usecase.RecoveryOrchestrator
	Deletion  *usecase.AccountDeletionService
}

// New composes the subsystem from configuration.
func New(ctx context.Context, cfg *config.AppConfig, prompter port.ConfirmationPrompter, biometric port.BiometricAuthenticator) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.New(cfg.Telemetry.Namespace, nil)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	secureStorage, err := storage.NewFile(cfg.Storage.Directory)
	if err != nil {
		return nil, fmt.Errorf("init secure storage: %w", err)
	}

	key, err := security.LoadOrCreateKey(ctx, secureStorage, usecase.KeyDeviceKey, log)
	if err != nil {
		return nil, fmt.Errorf("init device key: %w", err)
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	store := usecase.NewSecureTokenStore(secureStorage, cipher, biometric, log)
	deviceIdentity := device.NewIdentity(secureStorage, log)

	monitor := usecase.NewSecurityMonitor(cfg.Security, log).WithTelemetry(provider)

	client := backend.NewClient(cfg.Backend, log)
	lifecycle := usecase.NewTokenLifecycleManager(store, client, deviceIdentity, cfg.Tokens.AutoRefreshThreshold, log).
		WithSecurityRecorder(monitor).
		WithTelemetry(provider)
	client.WithTokenSource(lifecycle)

	autoLogin := usecase.NewAutoLoginManager(lifecycle, log)
	machine := usecase.NewAuthStateMachine(client, autoLogin, client, lifecycle, deviceIdentity, cfg.Tokens.ActivityInterval, log)

	recovery := usecase.NewRecoveryOrchestrator(lifecycle, store, cfg.Recovery, log).
		WithSessionController(machine).
		WithTelemetry(provider)

	deletion := usecase.NewAccountDeletionService(client, client, prompter, store, cfg.Deletion, log).
		WithSessionController(machine).
		WithBiometric(biometric).
		WithDevice(deviceIdentity)

	engine, err := routes.Register(routes.Dependencies{
		Config:  cfg,
		Logger:  log,
		Machine: machine,
		Store:   store,
		Monitor: monitor,
	})
	if err != nil {
		return nil, fmt.Errorf("init routes: %w", err)
	}

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		machine: machine,
		monitor: monitor,

		Machine:   machine,
		Lifecycle: lifecycle,
		Store:     store,
		Monitor:   monitor,
		Recovery:  recovery,
		Deletion:  deletion,
	}, nil
}

// Run restores the session, serves the diagnostics listener, and tears the
// subsystem down when the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.machine.Close()
	defer a.monitor.Close()

	if err := a.machine.Initialize(ctx); err != nil {
		a.logger.Warn("session restore failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting session daemon",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
