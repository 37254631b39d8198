package inheritchain

import (
	"time"

	"github.com/EnzoRoselli/InheritChain/common"
	"github.com/EnzoRoselli/InheritChain/config"
	"github.com/EnzoRoselli/InheritChain/rawdb"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
)

type InheritChain struct {
	engine    *gin.Engine
	scheduler *gocron.Scheduler

	ledger     *Ledger
	cli        *Client
	reconciler *Reconciler
	monitor    *LivenessMonitor

	store  *Store
	wdb    *Wdb
	config *config.Config
	kw     *KWriter
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	useS3 bool, s3AccKey, s3SecretKey, s3BucketPrefix, s3Region, s3Endpoint string,
	useKafka bool, kafkaUri string,
) *InheritChain {
	var err error
	var kvDb rawdb.KeyValueDB
	if useS3 {
		kvDb, err = rawdb.NewS3DB(s3AccKey, s3SecretKey, s3Region, s3BucketPrefix, s3Endpoint)
	} else {
		kvDb, err = rawdb.NewBoltDB(boltDirPath)
	}
	if err != nil {
		panic(err)
	}

	cfg := config.New(mySqlDsn, sqliteDir, useSqlite)

	store, err := NewStore(kvDb, cfg.PinGateway())
	if err != nil {
		panic(err)
	}

	var wdb *Wdb
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewWdb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	ledgerOpts := make([]LedgerOption, 0, 1)
	var kw *KWriter
	if useKafka {
		kw, err = NewKWriter(ReceiptTopic, kafkaUri)
		if err != nil {
			panic(err)
		}
		ledgerOpts = append(ledgerOpts, WithSink(kw))
	}

	ledger := NewLedger(ledgerOpts...)
	cli := NewClient(ledger, nil)
	reconciler, err := NewReconciler(cli, 20)
	if err != nil {
		panic(err)
	}

	return &InheritChain{
		engine:     gin.Default(),
		scheduler:  gocron.NewScheduler(time.UTC),
		ledger:     ledger,
		cli:        cli,
		reconciler: reconciler,
		monitor:    NewLivenessMonitor(cli, cfg.PollFloor(), cfg.PollCeiling()),
		store:      store,
		wdb:        wdb,
		config:     cfg,
		kw:         kw,
	}
}

func (s *InheritChain) Run(port string) {
	s.config.Run()
	go s.runAPI(port)
	go s.runJobs()
	go common.NewMetricServer()
}

func (s *InheritChain) Close() {
	s.monitor.StopAll()
	s.scheduler.Stop()
	s.reconciler.Close()
	if s.kw != nil {
		s.kw.Close()
	}
	if err := s.store.Close(); err != nil {
		log.Warn("close store", "err", err)
	}
	s.wdb.Close()
	s.config.Close()
	log.Info("inheritchain closed")
}
