package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"scholarship-agent/internal/catalog"
	"scholarship-agent/internal/logger"
)

var (
	file     = flag.String("file", "", "Catalog YAML or JSON file; the embedded catalog when empty")
	table    = flag.String("table", os.Getenv("SCHOLARSHIP_CATALOG_TABLE"), "DynamoDB table name")
	activate = flag.Bool("activate", true, "Make the published version the active one")
)

func main() {
	flag.Parse()
	ctx := context.Background()
	log := logger.New("info", "console")
	defer func() { _ = log.Sync() }()

	if *table == "" {
		fmt.Fprintln(os.Stderr, "-table is required")
		os.Exit(2)
	}

	var (
		cat *catalog.Catalog
		err error
	)
	if *file == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.LoadFile(*file)
	}
	if err != nil {
		log.WithError(err).Error("failed to load catalog", map[string]interface{}{"file": *file})
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.WithError(err).Error("failed to load AWS config", nil)
		os.Exit(1)
	}
	t, err := catalog.NewTable(awsdynamodb.NewFromConfig(awsCfg), *table)
	if err != nil {
		log.WithError(err).Error("failed to create catalog table", nil)
		os.Exit(1)
	}
	if err := t.Publish(ctx, cat, *activate); err != nil {
		log.WithError(err).Error("publish failed", map[string]interface{}{"version": cat.Version()})
		os.Exit(1)
	}
	log.Info("catalog published", map[string]interface{}{
		"table":    *table,
		"version":  cat.Version(),
		"records":  cat.Len(),
		"activate": *activate,
	})
}
