package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manishvishnoi2/nucypher/internal/config"
	"github.com/manishvishnoi2/nucypher/pkg/pre/control"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/keyring"
	"github.com/manishvishnoi2/nucypher/pkg/pre/logging"
	"github.com/manishvishnoi2/nucypher/pkg/pre/messagekit"
	"github.com/manishvishnoi2/nucypher/pkg/pre/mocknet"
	"github.com/manishvishnoi2/nucypher/pkg/pre/node"
	"github.com/manishvishnoi2/nucypher/pkg/pre/policy"
	"github.com/manishvishnoi2/nucypher/pkg/pre/retrieval"
	"github.com/manishvishnoi2/nucypher/pkg/pre/store"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API",
		Long:  "Serve the grantor, grantee and originator controls over a simulated node network",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "Override the listen address")
	cmd.Flags().String("log-level", "", "Override the log level")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log, err := logging.NewFromConfig(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	load := func(name string) (*identity.Identity, error) {
		id, err := keyring.LoadOrGenerate(reg, name)
		if err != nil {
			return nil, fmt.Errorf("identity %s: %w", name, err)
		}
		return id, nil
	}
	alice, err := load("alice")
	if err != nil {
		return err
	}
	bob, err := load("bob")
	if err != nil {
		return err
	}
	enrico, err := load("enrico")
	if err != nil {
		return err
	}

	st, err := store.OpenBadger(store.BadgerConfig{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
		Logger:     logging.NewLogrus(cmd.ErrOrStderr(), slog.LevelWarn),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error(ctx, "close store", "error", cerr)
		}
	}()

	network := mocknet.New()
	cards := make(control.StaticDirectory, 0, cfg.Nodes)
	for i := 0; i < cfg.Nodes; i++ {
		id, err := load(fmt.Sprintf("node-%d", i))
		if err != nil {
			return err
		}
		n := node.New(id, node.WithLogger(log))
		network.Register(n.ID(), n)
		cards = append(cards, n.Card())
	}

	maps := treasuremap.NewStore(st)
	grantor := policy.NewGrantor(alice,
		policy.WithStore(st),
		policy.WithMapStore(maps),
		policy.WithLogger(log),
	)
	grantee, err := retrieval.NewGrantee(bob, maps, network,
		retrieval.WithConfig(cfg.PreConfig()),
		retrieval.WithLogger(log),
	)
	if err != nil {
		return err
	}
	policyKey, err := grantor.PolicyKey([]byte(cfg.Label))
	if err != nil {
		return err
	}
	encryptor, err := messagekit.NewEncryptor(policyKey, enrico.Signer(), cfg.Retrieval.MaxPlaintextSize)
	if err != nil {
		return err
	}

	handler := control.New(
		control.WithGrantor(grantor, cards),
		control.WithGrantee(grantee),
		control.WithEncryptor(encryptor),
		control.WithLogger(log),
	).Handler()
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info(ctx, "pred ready",
		"listen", cfg.Listen,
		"nodes", cfg.Nodes,
		"alice_signing_pubkey", alice.Card().SigningKey.String(),
		"bob_encrypting_key", bob.Card().EncryptingKey.String(),
		"label", cfg.Label,
		"policy_encrypting_pubkey", policyKey.String(),
		logging.Redacted("secrets"),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Warn(context.Background(), "shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
