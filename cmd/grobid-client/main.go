package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"

	"github.com/kermitt2/grobid-client-go/internal/config"
	"github.com/kermitt2/grobid-client-go/internal/grobid"
	"github.com/kermitt2/grobid-client-go/internal/handler"
	"github.com/kermitt2/grobid-client-go/internal/parser"
	"github.com/kermitt2/grobid-client-go/internal/queue"
	"github.com/kermitt2/grobid-client-go/internal/retry"
	"github.com/kermitt2/grobid-client-go/internal/scanner"
	"github.com/kermitt2/grobid-client-go/internal/server"
	"github.com/kermitt2/grobid-client-go/internal/storage"
	"github.com/kermitt2/grobid-client-go/internal/types"
	"github.com/kermitt2/grobid-client-go/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}

// run executes one batch and returns the process exit code.
func run(ctx context.Context, args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Printf("❌ %v", err)
		return 1
	}

	fsys := osfs.New("")

	paths, err := scanner.ListDocuments(fsys, cfg.InputDir, config.DefaultSuffix)
	if err != nil {
		log.Printf("❌ %v", err)
		return 1
	}
	log.Printf("found %d files to be processed", len(paths))

	items := make([]*types.WorkItem, 0, len(paths))
	for _, p := range paths {
		items = append(items, types.NewWorkItem(uuid.NewString(), p))
	}

	clientConfig := &grobid.Config{
		URL:     cfg.ServiceURL(),
		Timeout: cfg.RequestTimeout,
	}
	if cfg.Preflight {
		clientConfig.Preflight = parser.NewRegistry()
	}
	client := grobid.NewClient(fsys, clientConfig)

	writer, err := newWriter(ctx, cfg)
	if err != nil {
		log.Printf("❌ Failed to initialize result sink: %v", err)
		return 1
	}

	opts := &worker.Options{
		Concurrency: cfg.Concurrency,
		Policy: &retry.Policy{
			Delay:               cfg.RetryDelay,
			MaxTransportRetries: cfg.MaxTransportRetries,
			MaxBusyRetries:      cfg.MaxBusyRetries,
		},
		ProgressInterval: cfg.ProgressInterval,
	}

	var producer *queue.Producer
	if cfg.RabbitMQURL != "" {
		conn, err := queue.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("❌ %v", err)
			return 1
		}
		defer conn.Close()
		log.Println("✓ Connected to RabbitMQ")

		producer, err = queue.NewProducer(conn, cfg.ResultsQueue)
		if err != nil {
			log.Printf("❌ Failed to initialize producer: %v", err)
			return 1
		}
		opts.Notifier = producer
	}

	scheduler, err := worker.NewScheduler(client, writer, opts)
	if err != nil {
		log.Printf("❌ %v", err)
		return 1
	}

	serverDone := make(chan struct{})
	stopServer := func() {}
	if cfg.StatusAddr != "" {
		serverCtx, cancel := context.WithCancel(ctx)
		stopServer = cancel
		engine := server.NewServer(handler.NewStatusHandler(scheduler, cfg.ActionPath))
		go func() {
			defer close(serverDone)
			if err := server.Serve(serverCtx, cfg.StatusAddr, engine); err != nil {
				log.Printf("⚠️  Status API stopped: %v", err)
			}
		}()
	} else {
		close(serverDone)
	}

	report, runErr := scheduler.Run(ctx, items)

	stopServer()
	<-serverDone

	if producer != nil {
		if err := producer.PublishSummary(context.WithoutCancel(ctx), report.Summary(cfg.ActionPath)); err != nil {
			log.Printf("⚠️  Failed to publish run summary: %v", err)
		}
	}

	return exitCode(report, runErr)
}

func newWriter(ctx context.Context, cfg *config.Config) (storage.ResultWriter, error) {
	if cfg.Sink == config.SinkMinio {
		writer, err := storage.NewMinioWriter(ctx, &storage.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		}, cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		log.Println("✓ Connected to MinIO")
		return writer, nil
	}
	return storage.NewFileWriter(osfs.New(""), cfg.OutputDir), nil
}

func exitCode(report *worker.Report, runErr error) int {
	if runErr != nil {
		log.Printf("⏹️  Run stopped: %v", runErr)
		return 1
	}
	if report.AllFailed() {
		log.Printf("❌ All %d documents failed", report.Submitted)
		return 1
	}
	return 0
}
