package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/common/aws/config"
	"github.com/ceramicnetwork/go-mint/common/aws/ddb"
	"github.com/ceramicnetwork/go-mint/common/aws/queue"
	"github.com/ceramicnetwork/go-mint/common/aws/storage"
	mintconfig "github.com/ceramicnetwork/go-mint/common/config"
	"github.com/ceramicnetwork/go-mint/common/eth"
	"github.com/ceramicnetwork/go-mint/common/inference"
	"github.com/ceramicnetwork/go-mint/common/ipfs"
	"github.com/ceramicnetwork/go-mint/common/loggers"
	"github.com/ceramicnetwork/go-mint/common/metrics"
	"github.com/ceramicnetwork/go-mint/common/notifs"
	"github.com/ceramicnetwork/go-mint/models"
	"github.com/ceramicnetwork/go-mint/services"
	"github.com/ceramicnetwork/go-mint/services/api"
)

type serveCmd struct {
	Listen string `arg:"--listen,env:LISTEN_ADDRESS" default:":8080" help:"address the API listens on"`
}

type runCmd struct {
	Name        string `arg:"-n,--name" help:"NFT name, prompted for when missing"`
	Description string `arg:"-d,--description" help:"image prompt and NFT description, prompted for when missing"`
	Out         string `arg:"-o,--out" help:"write the generated image to this file"`
}

type workerCmd struct{}

type mintArgs struct {
	EnvFile string     `arg:"--env-file,env:ENV_FILE" default:".env" help:"dotenv file to load"`
	Serve   *serveCmd  `arg:"subcommand:serve" help:"serve the minting API"`
	Run     *runCmd    `arg:"subcommand:run" help:"generate and mint a single NFT"`
	Worker  *workerCmd `arg:"subcommand:worker" help:"mint requests received from the request queue"`
}

func (mintArgs) Description() string {
	return "Generates an image from a description, stores it on IPFS and mints it as an NFT.\n"
}

func main() {
	var args mintArgs
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}
	if err := godotenv.Load(args.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading %s: %v", args.EnvFile, err)
	}

	var logger models.Logger
	if args.Run != nil {
		logger = loggers.NewCliLogger()
	} else {
		logger = loggers.NewLogger()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := mintconfig.LoadMintConfig()
	if err != nil {
		logger.Fatalf("error loading config: %v", err)
	}

	metricService, err := metrics.NewOtelMetricService(ctx, logger)
	if err != nil {
		logger.Fatalf("error creating metric service: %v", err)
	}
	defer metricService.Shutdown(context.Background())

	generator := inference.NewClient(
		logger,
		cfg.InferenceEndpoint,
		os.Getenv(common.Env_InferenceToken),
		mintconfig.DurationFromEnv(common.Env_InferenceTimeout, models.DefaultInferenceTimeout),
		metricService,
	)

	ipfsAddr := ipfs.DefaultIpfsApiAddress
	if configIpfsAddr, found := os.LookupEnv(common.Env_IpfsApiAddress); found {
		ipfsAddr = configIpfsAddr
	}
	store, err := ipfs.NewIpfsApi(logger, ipfsAddr, os.Getenv(common.Env_IpfsApiToken), cfg.StorageGateway, metricService)
	if err != nil {
		logger.Fatalf("error creating ipfs client: %v", err)
	}

	wallet, err := eth.NewWallet(
		ctx,
		logger,
		os.Getenv(common.Env_EthRpcUrl),
		os.Getenv(common.Env_EthPrivateKey),
		cfg.Chain,
		mintconfig.DurationFromEnv(common.Env_ReceiptPollInterval, models.DefaultReceiptPollInterval),
	)
	if err != nil {
		logger.Fatalf("error connecting wallet: %v", err)
	}
	if account, connected := wallet.Account(ctx); connected {
		logger.Infof("minting from %s on %s", account, cfg.Chain.Name)
	} else {
		logger.Warnf("no signing key configured, mints will be rejected")
	}

	observers, notificationService := createObservers(ctx, logger)
	if notificationService != nil {
		defer notificationService.Wait()
	}
	factory := func(sessionId string) *services.MintOrchestrator {
		return services.NewMintOrchestrator(sessionId, *cfg, generator, store, wallet, metricService, logger, observers...)
	}

	switch {
	case args.Serve != nil:
		serve(ctx, logger, args.Serve, factory, metricService)
	case args.Run != nil:
		run(ctx, logger, args.Run, factory)
	case args.Worker != nil:
		work(ctx, logger, factory, metricService)
	}
}

func createObservers(ctx context.Context, logger models.Logger) ([]models.RunObserver, *services.NotificationService) {
	observers := make([]models.RunObserver, 0, 3)
	recordsEnabled := mintconfig.BoolFromEnv(common.Env_RecordsEnabled, false)
	eventsEnabled := mintconfig.BoolFromEnv(common.Env_EventsEnabled, false)
	if recordsEnabled || eventsEnabled {
		awsCfg, err := config.AwsConfig(ctx, logger)
		if err != nil {
			logger.Fatalf("error creating aws cfg: %v", err)
		}
		if recordsEnabled {
			mintDb := ddb.NewMintDb(ctx, logger, dynamodb.NewFromConfig(awsCfg))
			s3Store := storage.NewS3Store(logger, s3.NewFromConfig(awsCfg))
			observers = append(observers, services.NewRecordingService(mintDb, s3Store, logger))
		}
		if eventsEnabled {
			eventQueue, err := queue.NewQueue(ctx, logger, sqs.NewFromConfig(awsCfg), queue.Opts{QueueType: queue.Type_Event}, nil)
			if err != nil {
				logger.Fatalf("error creating event queue: %v", err)
			}
			observers = append(observers, services.NewEventService(eventQueue, logger))
		}
	}

	discordHandler, err := notifs.NewDiscordHandler(logger)
	if err != nil {
		logger.Fatalf("error creating discord handler: %v", err)
	}
	var notificationService *services.NotificationService
	if discordHandler.Enabled() {
		notificationService = services.NewNotificationService(discordHandler, logger)
		observers = append(observers, notificationService)
	}
	return observers, notificationService
}

func serve(ctx context.Context, logger models.Logger, cmd *serveCmd, factory services.OrchestratorFactory, metricService models.MetricService) {
	sessionTtl := mintconfig.DurationFromEnv(common.Env_SessionTtl, models.DefaultSessionTtl)
	sessions := services.NewSessionManager(factory, sessionTtl, metricService, logger)
	go sessions.Run(ctx)

	server := api.NewServer(logger, cmd.Listen, sessions)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("error starting api: %v", err)
		}
	}()
	<-ctx.Done()
	server.Shutdown(context.Background())
}

func run(ctx context.Context, logger models.Logger, cmd *runCmd, factory services.OrchestratorFactory) {
	if len(cmd.Name) == 0 {
		if err := survey.AskOne(&survey.Input{Message: "Name:", Help: "Name of the NFT"}, &cmd.Name, survey.WithValidator(survey.Required)); err != nil {
			logger.Fatalf("error reading name: %v", err)
		}
	}
	if len(cmd.Description) == 0 {
		prompt := &survey.Input{Message: "Description:", Help: "Describes the image to generate, and the NFT"}
		if err := survey.AskOne(prompt, &cmd.Description, survey.WithValidator(survey.Required)); err != nil {
			logger.Fatalf("error reading description: %v", err)
		}
	}

	orchestrator := factory("cli")
	done := make(chan struct{})
	go func() {
		defer close(done)
		if txHandle, err := orchestrator.Submit(ctx, models.MintRequest{Name: cmd.Name, Description: cmd.Description}); err != nil {
			logger.Errorf("%v", err)
		} else {
			status := orchestrator.Status()
			logger.Infof("minted %s in tx %s", status.TokenUri, txHandle.Hash)
		}
	}()

	// Report progress the same way the status line would show it
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	lastText := ""
	for {
		select {
		case <-done:
			writeImage(logger, orchestrator, cmd.Out)
			if status := orchestrator.Status(); status.Stage != models.Stage_Confirmed {
				logger.Fatalf("%s", status.Text)
			}
			return
		case <-tick.C:
			if status := orchestrator.Status(); status.Text != lastText {
				lastText = status.Text
				logger.Infof("%s", lastText)
			}
		}
	}
}

func writeImage(logger models.Logger, orchestrator *services.MintOrchestrator, path string) {
	if len(path) == 0 {
		return
	}
	if image := orchestrator.Image(); image != nil {
		if err := os.WriteFile(path, image.Data, 0o644); err != nil {
			logger.Errorf("error writing image to %s: %v", path, err)
		} else {
			logger.Infof("image written to %s", path)
		}
	}
}

func work(ctx context.Context, logger models.Logger, factory services.OrchestratorFactory, metricService models.MetricService) {
	awsCfg, err := config.AwsConfig(ctx, logger)
	if err != nil {
		logger.Fatalf("error creating aws cfg: %v", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	dlq, err := queue.NewQueue(ctx, logger, sqsClient, queue.Opts{QueueType: queue.Type_DLQ}, nil)
	if err != nil {
		logger.Fatalf("error creating dead-letter queue: %v", err)
	}
	worker := services.NewMintWorker(factory("worker"), metricService, logger)
	requestQueue, err := queue.NewQueue(
		ctx,
		logger,
		sqsClient,
		queue.Opts{
			QueueType:   queue.Type_Request,
			RedriveOpts: &queue.RedriveOpts{DlqId: dlq.Arn, MaxReceiveCount: queue.DefaultMaxReceiveCount},
		},
		worker.Mint,
	)
	if err != nil {
		logger.Fatalf("error creating request queue: %v", err)
	}

	requestQueue.Start()
	<-ctx.Done()
	requestQueue.Shutdown()
	requestQueue.WaitForRxShutdown()
}
