package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"fenrir/api/grpcserver"
	"fenrir/infra/kafka"
	"fenrir/infra/ledger"
	"fenrir/infra/metrics"
	"fenrir/infra/outbox"
	"fenrir/infra/sequence"
	"fenrir/infra/state"
	"fenrir/infra/wal/journal"
	"fenrir/jobs/broadcaster"
	"fenrir/service"
)

func main() {
	var (
		listenAddr  = flag.String("listen", ":50051", "gRPC listen address")
		metricsAddr = flag.String("metrics", ":9090", "Prometheus metrics listen address")
		dataDir     = flag.String("data", "./data", "base directory for fill state, journal and outbox")
		brokers     = flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
		settleTopic = flag.String("settlement-topic", "settlements", "Kafka topic for settlement events")
		statusTopic = flag.String("status-topic", "order-status", "Kafka topic for order status updates")
		feeAsset    = flag.String("fee-asset", "0xf47d33fd00000000", "hex asset data fees are paid in")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	feeAssetData, err := hexutil.Decode(*feeAsset)
	if err != nil {
		log.WithError(err).Fatal("invalid fee asset data")
	}

	// ---------------- Fill state ----------------

	store, err := openStore(log, *dataDir)
	if err != nil {
		log.WithError(err).Fatal("fill state init failed")
	}

	// ---------------- Journal ----------------

	journalDir := filepath.Join(*dataDir, "journal")
	jw, err := journal.Open(journal.Config{Dir: journalDir})
	if err != nil {
		log.WithError(err).Fatal("settlement journal init failed")
	}
	defer jw.Close()

	// ---------------- JOURNAL REPLAY ----------------

	lastSeq, err := service.ReplayJournal(journalDir, store)
	if err != nil {
		log.WithError(err).Fatal("journal replay failed")
	}
	log.WithField("last_seq", lastSeq).Info("journal replayed")

	// ---------------- Outbox ----------------

	ob, err := outbox.Open(filepath.Join(*dataDir, "outbox"))
	if err != nil {
		log.WithError(err).Fatal("outbox init failed")
	}
	defer ob.Close()

	// ---------------- Ledger ----------------

	led := ledger.New()

	// ---------------- Observability ----------------

	m := metrics.NewMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.WithError(err).Error("metrics server exited")
		}
	}()

	// ---------------- Event producers ----------------

	brokerList := strings.Split(*brokers, ",")

	statusProducer := kafka.NewProducer(brokerList, *statusTopic)
	defer statusProducer.Close()

	// ---------------- Service ----------------

	svc := service.NewMatchService(service.Config{
		Store:        store,
		Ledger:       led,
		FeeAssetData: feeAssetData,
		Journal:      jw,
		Sequencer:    sequence.New(lastSeq),
		Outbox:       ob,
		Producer:     statusProducer,
		Log:          log,
		Metrics:      m,
	})

	// ---------------- Background Jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bc, err := broadcaster.New(ob, brokerList, *settleTopic, log, m)
	if err != nil {
		log.WithError(err).Fatal("broadcaster init failed")
	}
	defer bc.Close()
	bc.Start(ctx)

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}

	grpcSrv := grpcserver.NewGRPCServer(svc)

	log.WithField("addr", *listenAddr).Info("exchange running")

	if err := grpcSrv.Serve(lis); err != nil {
		log.WithError(err).Fatal("gRPC server exited")
	}
}

// openStore prefers Postgres when DATABASE_URL is set, falling back to an
// embedded Pebble store under the data directory.
func openStore(log *logrus.Logger, dataDir string) (state.Store, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		log.Info("using postgres fill state")
		return state.OpenPostgres(context.Background(), url)
	}
	log.Info("using pebble fill state")
	return state.OpenPebble(filepath.Join(dataDir, "fills"))
}
