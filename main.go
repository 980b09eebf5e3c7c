package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	"github.com/floodwatch/routing/router"
	"github.com/floodwatch/routing/source"
)

var (
	mongoURI       = flag.String("mongo_uri", "", "mongo db uri, required for db-backed network paths")
	networkPathStr = flag.String("network", "", "road network [format: {fspath} or {db}.{col}]")
	floodDir       = flag.String("floods", "", "directory of flood GeoJSON snapshots, can be empty")
	trafficFile    = flag.String("traffic", "", "traffic snapshot JSON file, can be empty")
	configFile     = flag.String("config", "", "optional YAML config file")
	httpEndpoint   = flag.String("listen", "localhost:52101", "HTTP listening address")
	logLevel       = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	precompute     = flag.Bool("precompute", true, "precompute flood data in the background at startup")

	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "localhost:52102", "pprof listening address")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	godotenv.Load()
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}
	if *mongoURI == "" {
		*mongoURI = os.Getenv("MONGO_URI")
	}

	config := ReadConfig(*configFile)

	networkPath, err := source.NewPath(*networkPathStr)
	if err != nil {
		logrus.Fatalf("invalid network path: %s", err)
	}
	network, err := source.LoadNetwork(context.Background(), *mongoURI, networkPath)
	if err != nil {
		logrus.Fatalf("failed to load network: %s", err)
	}
	floods, err := source.NewFloodDir(*floodDir)
	if err != nil {
		logrus.Fatalf("failed to open flood directory: %s", err)
	}
	var traffic router.TrafficSource
	if *trafficFile != "" {
		traffic = source.NewTrafficFile(*trafficFile)
	}

	engine, err := router.New(network, floods, traffic, config.engineConfig())
	if err != nil {
		logrus.Fatalf("failed to build routing engine: %s", err)
	}
	if *precompute {
		go engine.PrecomputeFloodData()
	}
	server := NewRoutingServer(engine, floods.Labels())

	if *pprofAddr != "" {
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		runBenchmark(engine)
		return
	}

	s := &http.Server{
		Addr:    *httpEndpoint,
		Handler: server.Handler(config.corsOrigins()),
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1) // second signal forces exit
		}()
		s.Close()
		os.Exit(0)
	}()

	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to serve: %v", err)
	}
	time.Sleep(1 * time.Second)
	log.Info("routing closes")
}
