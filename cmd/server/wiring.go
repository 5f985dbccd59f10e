package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	certmetrics "provenant/internal/certificate/metrics"
	certservice "provenant/internal/certificate/service"
	"provenant/internal/certificate/signing"
	certstore "provenant/internal/certificate/store"
	"provenant/internal/identity/lockout"
	identitymetrics "provenant/internal/identity/metrics"
	"provenant/internal/identity/secrets"
	identityservice "provenant/internal/identity/service"
	principalstore "provenant/internal/identity/store/principal"
	"provenant/internal/identity/token"
	"provenant/internal/platform/config"
	"provenant/internal/platform/kafka"
	"provenant/internal/platform/postgres"
	"provenant/internal/platform/redis"
	productmetrics "provenant/internal/product/metrics"
	productservice "provenant/internal/product/service"
	productstore "provenant/internal/product/store"
	scanmetrics "provenant/internal/scanlog/metrics"
	scanservice "provenant/internal/scanlog/service"
	scanstore "provenant/internal/scanlog/store"
	verificationmetrics "provenant/internal/verification/metrics"
	verificationservice "provenant/internal/verification/service"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/outbox"
	"provenant/pkg/platform/audit/publisher"
	"provenant/pkg/platform/audit/publishers/compliance"
	"provenant/pkg/platform/audit/publishers/ops"
	"provenant/pkg/platform/audit/publishers/security"
	auditmemory "provenant/pkg/platform/audit/store/memory"
	auditpostgres "provenant/pkg/platform/audit/store/postgres"
	"provenant/pkg/platform/audit/worker"
	txcontext "provenant/pkg/platform/tx"
)

// infra holds the optional backing services. Nil fields mean the in-memory
// fallback is in use.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kafka.Producer
}

func openInfra(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				in.close()
				return nil, err
			}
		}
		logger.Info("postgres connected", "auto_migrate", cfg.Database.AutoMigrate)
	} else {
		logger.Warn("database url not set, using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return nil, err
	}
	in.redis = rc
	if rc != nil {
		logger.Info("redis connected")
	}

	producer, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		in.close()
		return nil, err
	}
	in.kafka = producer
	if producer != nil {
		topics := make([]string, 0, 3)
		for _, category := range []audit.EventCategory{audit.CategoryCompliance, audit.CategorySecurity, audit.CategoryOperations} {
			topics = append(topics, kafka.TopicName(cfg.Kafka.TopicPrefix, string(category)))
		}
		if err := producer.EnsureTopics(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor, topics...); err != nil {
			in.close()
			return nil, err
		}
		logger.Info("kafka connected", "brokers", cfg.Kafka.Brokers)
	}

	return in, nil
}

func (in *infra) close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func (in *infra) txRunner() txcontext.Runner {
	if in.db == nil {
		return txcontext.Inline()
	}
	return postgres.NewTxRunner(in.db)
}

// auditStack is the three-lane audit pipeline plus the background loops that
// drain it.
type auditStack struct {
	dispatcher *publisher.Dispatcher
	drain      *worker.Worker
	relay      *outbox.Relay
}

func buildAudit(cfg config.Config, in *infra, logger *slog.Logger) *auditStack {
	var store audit.Store
	var pgStore *auditpostgres.Store
	if in.db != nil {
		pgStore = auditpostgres.New(in.db)
		store = pgStore
	} else {
		store = auditmemory.NewInMemoryStore()
	}

	securityLane := security.New(cfg.Audit.SecurityBufferSize)
	stack := &auditStack{
		dispatcher: publisher.NewDispatcher(
			compliance.New(store, compliance.WithLogger(logger), compliance.WithMetrics(compliance.NewMetrics())),
			securityLane,
			ops.New(store,
				ops.WithSampler(ops.NewSampler(cfg.Audit.OpsSampleRate).
					WithRate(audit.EventVerificationPerformed, cfg.Audit.VerificationSampleRate)),
				ops.WithMetrics(ops.NewMetrics()),
				ops.WithLogger(logger),
			),
		),
		drain: worker.NewWorker(store, securityLane, cfg.Audit.DrainInterval, 0, logger),
	}

	if pgStore != nil && in.kafka != nil {
		prefix := cfg.Kafka.TopicPrefix
		stack.relay = outbox.NewRelay(in.db, pgStore, in.kafka, func(category string) string {
			return kafka.TopicName(prefix, category)
		}, cfg.Kafka.RelayInterval, cfg.Kafka.RelayBatchSize, logger)
	}
	return stack
}

type productRepository interface {
	productservice.ProductStore
	certservice.ProductReader
}

type certificateRepository interface {
	certservice.CertificateStore
	productservice.CertificateCounter
}

type scanRepository interface {
	scanservice.ScanStore
	scanservice.Appender
}

// services is the wired domain layer.
type services struct {
	tokens       *token.Service
	identity     *identityservice.Service
	products     *productservice.Service
	certificates *certservice.Service
	scans        *scanservice.Service
	recorder     *scanservice.Recorder
	verification *verificationservice.Service
}

func buildServices(cfg config.Config, in *infra, auditor *auditStack, logger *slog.Logger) (*services, error) {
	var principals identityservice.PrincipalStore
	var productRepo productRepository
	var certRepo certificateRepository
	var scanRepo scanRepository
	var lockouts lockout.Store

	if in.db != nil {
		principals = principalstore.NewPostgres(in.db)
		productRepo = productstore.NewPostgres(in.db)
		certRepo = certstore.NewPostgres(in.db)
		scanRepo = scanstore.NewPostgres(in.db)
	} else {
		principals = principalstore.NewInMemory()
		productRepo = productstore.NewInMemory()
		certRepo = certstore.NewInMemory()
		scanRepo = scanstore.NewInMemory()
	}
	if in.redis != nil {
		lockouts = lockout.NewRedis(in.redis.Client)
	} else {
		lockouts = lockout.NewInMemory()
	}

	hasher, err := secrets.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("build password hasher: %w", err)
	}
	signer, err := signing.NewSigner(cfg.Certificate.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("build certificate signer: %w", err)
	}

	tx := in.txRunner()
	tokens := token.New(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)

	identity := identityservice.New(principals, hasher, tokens,
		identityservice.WithLockout(lockouts, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutWindow),
		identityservice.WithTxRunner(tx),
		identityservice.WithLogger(logger),
		identityservice.WithAuditPublisher(auditor.dispatcher),
		identityservice.WithMetrics(identitymetrics.New()),
	)

	products := productservice.New(productRepo, identity, certRepo,
		productservice.WithTxRunner(tx),
		productservice.WithLogger(logger),
		productservice.WithAuditPublisher(auditor.dispatcher),
		productservice.WithMetrics(productmetrics.New()),
	)

	certificates := certservice.New(certRepo, productRepo, signer, cfg.Certificate.PublicBaseURL,
		certservice.WithTxRunner(tx),
		certservice.WithLogger(logger),
		certservice.WithAuditPublisher(auditor.dispatcher),
		certservice.WithMetrics(certmetrics.New()),
	)

	recorder := scanservice.NewRecorder(scanRepo,
		scanservice.WithRecorderLogger(logger),
		scanservice.WithRecorderAuditPublisher(auditor.dispatcher),
		scanservice.WithRecorderMetrics(scanmetrics.New()),
		scanservice.WithAttempts(cfg.ScanLog.WriteAttempts),
		scanservice.WithRetryBuffer(cfg.ScanLog.RetryBufferSize),
		scanservice.WithRetryInterval(cfg.ScanLog.RetryInterval),
	)

	scans := scanservice.New(scanRepo, certificates, products, identity,
		scanservice.WithLogger(logger),
		scanservice.WithAuditPublisher(auditor.dispatcher),
	)

	verification := verificationservice.New(certificates, products, recorder,
		verificationservice.WithLogger(logger),
		verificationservice.WithAuditPublisher(auditor.dispatcher),
		verificationservice.WithMetrics(verificationmetrics.New()),
	)

	return &services{
		tokens:       tokens,
		identity:     identity,
		products:     products,
		certificates: certificates,
		scans:        scans,
		recorder:     recorder,
		verification: verification,
	}, nil
}
