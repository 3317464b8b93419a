package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/axiomesh/proposer/ledger"
	"github.com/axiomesh/proposer/repo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

var proposalCMD = &cli.Command{
	Name:  "proposal",
	Usage: "Query proposals recorded in the local ledger",
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Show one or more proposals by id",
			ArgsUsage: "<id> [id...]",
			Action:    showProposals,
		},
		{
			Name:  "list",
			Usage: "List proposal ids, optionally of one proposer",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "proposer",
					Usage: "proposer address",
				},
			},
			Action: listProposals,
		},
		{
			Name:   "count",
			Usage:  "Print the number of proposals",
			Action: countProposals,
		},
	},
}

// withLedger opens the persisted ledger; it fails while the daemon holds the storage lock.
func withLedger(ctx *cli.Context, fn func(l *ledger.Ledger) error) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	r, err := repo.Load(p)
	if err != nil {
		return err
	}
	db, err := leveldb.New(r.Config.StoragePath())
	if err != nil {
		return fmt.Errorf("open storage (is the daemon running?): %w", err)
	}
	defer db.Close()

	l, err := ledger.New(ledger.WithStorage(db))
	if err != nil {
		return err
	}
	return fn(l)
}

func showProposals(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.Exit("at least one proposal id is required", 1)
	}
	ids := make([]uint64, 0, ctx.NArg())
	for _, arg := range ctx.Args().Slice() {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid proposal id %q", arg)
		}
		ids = append(ids, id)
	}

	return withLedger(ctx, func(l *ledger.Ledger) error {
		proposals, err := l.GetMany(ids)
		if err != nil {
			return err
		}
		for _, p := range proposals {
			fmt.Printf("id:             %d\n", p.ID)
			fmt.Printf("proposer:       %s\n", p.Proposer.Hex())
			fmt.Printf("title:          %s\n", p.Title)
			fmt.Printf("description:    %s\n", p.Description)
			fmt.Printf("encoded action: %s\n", hexutil.Encode(p.EncodedAction))
			fmt.Printf("status:         %s\n", p.Status)
			fmt.Printf("created at:     %s\n", p.CreatedAt.Format(time.RFC3339))
			fmt.Println()
		}
		return nil
	})
}

func listProposals(ctx *cli.Context) error {
	proposer := ctx.String("proposer")
	if proposer != "" && !common.IsHexAddress(proposer) {
		return fmt.Errorf("invalid proposer address %q", proposer)
	}

	return withLedger(ctx, func(l *ledger.Ledger) error {
		var ids []uint64
		if proposer != "" {
			ids = l.ByProposer(common.HexToAddress(proposer))
		} else {
			for id := uint64(1); id <= l.Count(); id++ {
				ids = append(ids, id)
			}
		}
		strs := make([]string, 0, len(ids))
		for _, id := range ids {
			strs = append(strs, strconv.FormatUint(id, 10))
		}
		fmt.Println(strings.Join(strs, " "))
		return nil
	})
}

func countProposals(ctx *cli.Context) error {
	return withLedger(ctx, func(l *ledger.Ledger) error {
		fmt.Println(l.Count())
		return nil
	})
}
