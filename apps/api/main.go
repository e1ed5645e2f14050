package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/tulia/apps/api/echo"
	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
	"github.com/trezcool/tulia/core/session"
	mqttbroadcast "github.com/trezcool/tulia/services/broadcast/mqtt"
	wsbroadcast "github.com/trezcool/tulia/services/broadcast/ws"
	"github.com/trezcool/tulia/services/classifier"
	emailsvc "github.com/trezcool/tulia/services/email"
	logsvc "github.com/trezcool/tulia/services/logger"
	"github.com/trezcool/tulia/services/monitor"
	inmemcache "github.com/trezcool/tulia/storage/cache/inmem"
	rediscache "github.com/trezcool/tulia/storage/cache/redis"
	"github.com/trezcool/tulia/storage/database"
	inmemdb "github.com/trezcool/tulia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/tulia/storage/database/sqlx"
)

type repositories struct {
	db       core.DB // nil in memory
	child    child.Repository
	avatar   avatar.Repository
	progress progress.Repository
	session  session.Repository
	close    func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	// set up resume store
	resumeStore, closeStore, err := setUpResumeStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up resume store: %v", err), err)
	}
	defer closeStore()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	avatarSvc := avatar.NewService(repos.avatar)
	childSvc := child.NewService(repos.db, repos.child, avatarSvc)
	progressSvc := progress.NewService(repos.db, repos.progress)
	sessionSvc := session.NewService(repos.db, repos.session, progressSvc)
	classifierClient := classifier.NewClient(conf.Emotion.InferenceURL)

	hub := wsbroadcast.NewHub(logger, conf.Server.CORSOrigins)
	defer hub.Close()
	broadcasters := []monitor.Broadcaster{hub}
	if conf.MQTT.Broker != "" {
		publisher, err := mqttbroadcast.Connect(conf.MQTT, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to MQTT: %v", err), err)
		}
		defer publisher.Close()
		broadcasters = append(broadcasters, publisher)
	}

	manager := monitor.NewManager(
		monitor.Deps{
			Classifier:   classifierClient,
			Resume:       resumeStore,
			Progress:     progressSvc,
			Sessions:     sessionSvc,
			Parents:      childSvc,
			Mailer:       mailSvc,
			Broadcasters: broadcasters,
			Logger:       logger,
		},
		monitor.Options{
			Sampler: emotion.SamplerOptions{
				Interval:           conf.Emotion.SampleInterval,
				ClassifyTimeout:    conf.Emotion.ClassifyTimeout,
				MinAudioBytes:      conf.Emotion.MinAudioBytes,
				SampleWhileCalming: conf.Emotion.SampleWhileCalming,
			},
		},
	)
	defer manager.StopAll()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	core.ParseEmailTemplates(logger, conf.Debug || conf.TestMode)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("monitoring_sessions", expvar.Func(func() interface{} { return manager.Running() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	signalShutdown := func() {
		shutdown <- syscall.SIGTERM
	}

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Address,
			Debug:          conf.Debug,
			TestMode:       conf.TestMode,
			DisableReqLogs: conf.Server.DisableReqLogs,
			CORSOrigins:    conf.Server.CORSOrigins,
		},
		signalShutdown,
		&echoapi.Deps{
			Logger:      logger,
			Validate:    validate,
			Translator:  translator,
			ChildSvc:    childSvc,
			AvatarSvc:   avatarSvc,
			ProgressSvc: progressSvc,
			SessionSvc:  sessionSvc,
			Predictor:   classifierClient,
			Monitor:     manager,
			Hub:         hub,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpRepositories(conf *core.Config) (repositories, error) {
	if conf.Database.InMemory() {
		db := inmemdb.Open()
		return repositories{
			child:    inmemdb.NewChildRepository(db),
			avatar:   inmemdb.NewAvatarRepository(db),
			progress: inmemdb.NewProgressRepository(db),
			session:  inmemdb.NewSessionRepository(db),
			close:    func() error { return nil },
		}, nil
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return repositories{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, err
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return repositories{
		db:       db,
		child:    sqlxrepos.NewChildRepository(db),
		avatar:   sqlxrepos.NewAvatarRepository(db),
		progress: sqlxrepos.NewProgressRepository(db),
		session:  sqlxrepos.NewSessionRepository(db),
		close:    db.Close,
	}, nil
}

// setUpResumeStore uses redis when configured, an in-process store otherwise.
func setUpResumeStore(conf *core.Config) (emotion.ResumeStore, func(), error) {
	if conf.Redis.Address == "" {
		return inmemcache.NewResumeStore(emotion.DefaultModulesPerLevel), func() {}, nil
	}
	client, err := rediscache.NewClient(context.Background(), conf.Redis)
	if err != nil {
		return nil, nil, err
	}
	store := rediscache.NewResumeStore(client, emotion.DefaultModulesPerLevel, rediscache.DefaultResumeTTL)
	return store, func() { _ = client.Close() }, nil
}
