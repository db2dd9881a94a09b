package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"sneakersync/internal/admin"
	"sneakersync/internal/app"
	"sneakersync/internal/config"
	"sneakersync/internal/logx"
)

const usage = `usage:
  admin list -brand <adidas|nike|jordan>
  admin show -id <id>
  admin runs [-limit <n>]
  admin set-price -id <id> -price <price>
  admin set-image -id <id> -index <n> -file <path>`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog := logx.New(logx.Development)
		bootLog.Fatal().Err(err).Msg("config")
	}
	logger := logx.New(logx.ParseEnvironment(cfg.Env))

	ctx := context.Background()
	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer deps.Close(ctx)

	svc := &admin.Service{Products: deps.Products, UploadDir: cfg.UploadDir, Logger: logger}
	if deps.Runs != nil {
		svc.Runs = deps.Runs
	}
	if err := run(ctx, svc, os.Args[1], os.Args[2:]); err != nil {
		deps.Close(ctx)
		logger.Fatal().Err(err).Str("command", os.Args[1]).Msg("admin")
	}
}

func run(ctx context.Context, svc *admin.Service, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	id := fs.String("id", "", "product id")
	brand := fs.String("brand", "", "brand")
	price := fs.String("price", "", "new price")
	index := fs.Int("index", 0, "image position")
	file := fs.String("file", "", "image file to upload")
	limit := fs.Int("limit", 20, "number of runs to show")
	fs.Parse(args)

	switch cmd {
	case "list":
		products, err := svc.List(ctx, *brand)
		if err != nil {
			return err
		}
		return printJSON(products)
	case "show":
		p, err := svc.Show(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(p)
	case "runs":
		runs, err := svc.RecentRuns(ctx, *limit)
		if err != nil {
			return err
		}
		return printJSON(runs)
	case "set-price":
		return svc.SetPrice(ctx, *id, *price)
	case "set-image":
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		path, err := svc.SetImage(ctx, *id, *index, filepath.Base(*file), f)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
