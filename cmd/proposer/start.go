package main

import (
	"context"
	"fmt"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/axiomesh/proposer"
	"github.com/axiomesh/proposer/core"
	"github.com/axiomesh/proposer/ledger"
	"github.com/axiomesh/proposer/repo"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
)

func start(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(filepath.Join(r.Config.RepoRoot, repo.LogsDirName)),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return fmt.Errorf("log initialize: %w", err)
	}

	printVersion()

	db, err := leveldb.New(r.Config.StoragePath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	l, err := openLedger(r.Config, db)
	if err != nil {
		return err
	}

	dial := func(c context.Context) (core.Client, error) {
		return ethclient.DialContext(c, r.Config.DialUrl)
	}
	client, err := dial(ctx.Context)
	if err != nil {
		return err
	}

	syncer, err := core.NewSyncer(ctx.Context, r.Config, client, db, l)
	if err != nil {
		return fmt.Errorf("new syncer error: %w", err)
	}
	syncer.Dial = dial

	var wg sync.WaitGroup
	wg.Add(1)
	handleShutdown(syncer, db, &wg)

	if err := syncer.Start(); err != nil {
		return fmt.Errorf("start syncer failed: %w", err)
	}

	fmt.Println("=============Proposer is ready=============")

	wg.Wait()

	return nil
}

func openLedger(cfg *repo.Config, db storage.Storage) (*ledger.Ledger, error) {
	logger := log.New()
	logger.SetLevel(log.ParseLevel(cfg.Log.Level))

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.Ledger.Persist {
		opts = append(opts, ledger.WithStorage(db))
	}
	l, err := ledger.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, nil
}

func printVersion() {
	fmt.Printf("Proposer version: %s-%s-%s\n", proposer.CurrentVersion, proposer.CurrentBranch, proposer.CurrentCommit)
	fmt.Printf("App build date: %s\n", proposer.BuildDate)
	fmt.Printf("System version: %s\n", proposer.Platform)
	fmt.Printf("Golang version: %s\n", proposer.GoVersion)
	fmt.Println()
}

func handleShutdown(syncer *core.Syncer, db storage.Storage, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		if err := syncer.Stop(); err != nil {
			panic(err)
		}
		if err := db.Close(); err != nil {
			fmt.Println("close storage error:", err)
		}
		wg.Done()
		os.Exit(0)
	}()
}
