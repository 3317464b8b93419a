package main

import (
	"fmt"

	"github.com/axiomesh/proposer/repo"
	"github.com/urfave/cli/v2"
)

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "The config manage commands",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate default config",
			Action: generate,
		},
		{
			Name:   "show",
			Usage:  "Show the complete config processed by the environment variable",
			Action: show,
		},
		{
			Name:   "check",
			Usage:  "Check if the config file is valid",
			Action: check,
		},
		{
			Name:   "rewrite-with-env",
			Usage:  "Rewrite config with env",
			Action: rewriteWithEnv,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if repo.Initialized(p) {
		fmt.Println("proposer repo already exists")
		return nil
	}

	if _, err := repo.Init(p); err != nil {
		return err
	}
	fmt.Printf("initializing proposer at %s\n", p)
	return nil
}

// withRepo runs fn on an existing repo and reports a missing one instead of
// creating it.
func withRepo(ctx *cli.Context, fn func(r *repo.Repo) error) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if !repo.Initialized(p) {
		fmt.Println("proposer repo not exist")
		return nil
	}

	r, err := repo.Load(p)
	if err != nil {
		return cli.Exit(fmt.Sprintf("config file error, please check: %s", err), 1)
	}
	return fn(r)
}

func show(ctx *cli.Context) error {
	return withRepo(ctx, func(r *repo.Repo) error {
		str, err := repo.MarshalConfig(r.Config)
		if err != nil {
			return err
		}
		fmt.Println(str)
		return nil
	})
}

func check(ctx *cli.Context) error {
	return withRepo(ctx, func(r *repo.Repo) error {
		fmt.Printf("config file %s is valid\n", repo.ConfigPath(r.Config.RepoRoot))
		return nil
	})
}

func rewriteWithEnv(ctx *cli.Context) error {
	return withRepo(ctx, func(r *repo.Repo) error {
		return r.Flush()
	})
}

func getRootPath(ctx *cli.Context) (string, error) {
	return repo.LoadRepoRootFromEnv(ctx.String("repo"))
}
