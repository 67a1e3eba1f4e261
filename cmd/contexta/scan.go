package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/contexta-sources/internal/app"
	"github.com/markdave123-py/contexta-sources/internal/config"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
	"github.com/markdave123-py/contexta-sources/internal/services"
)

func DocumentsCmd(cfg *config.Config) *cobra.Command {
	var sc models.StorageConfig
	var single bool

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Print every document under a storage path as JSON lines",
		Example: "  contexta documents --backend local --path ./docs --file-type text\n" +
			"  contexta documents --backend s3 --bucket corpus --prefix reports/ --file-type any",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := json.NewEncoder(cmd.OutOrStdout())
			return withApp(ctx, cfg, func(a *app.App) error {
				if single {
					doc, err := a.Scans.SingleDocument(ctx, sc)
					if err != nil {
						return err
					}
					return out.Encode(doc)
				}

				sess, err := a.Scans.StartDocumentScan(ctx, sc)
				if err != nil {
					return err
				}
				defer a.Scans.EndScan(sess.ID)
				return drainPages(cmd, a.Scans, sess.ID, out)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&sc.Backend, "backend", models.StorageLocal, "storage backend: local, s3 or gcs")
	f.StringVar(&sc.Path, "path", "", "local directory or file")
	f.StringVar(&sc.Bucket, "bucket", "", "bucket for s3 and gcs")
	f.StringVar(&sc.Prefix, "prefix", "", "key prefix inside the bucket")
	f.StringVar(&sc.FileType, "file-type", "text", "text, crawl, url or any")
	f.StringSliceVar(&sc.Include, "include", nil, "glob patterns relative to the local root")
	f.IntVar(&sc.PageSize, "page-size", 0, "items per page")
	f.BoolVar(&single, "single", false, "fetch only the item the path or prefix addresses")
	return cmd
}

func SourcesCmd(cfg *config.Config) *cobra.Command {
	var sc models.StoreConfig
	var inventory bool

	cmd := &cobra.Command{
		Use:     "sources",
		Short:   "Print the distinct sources of a vector store as JSON lines",
		Example: "  contexta sources --backend redis --store chunks\n  contexta sources --backend pgvector --store public.embeddings --inventory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := json.NewEncoder(cmd.OutOrStdout())
			return withApp(ctx, cfg, func(a *app.App) error {
				sess, err := a.Scans.StartSourceScan(ctx, sc)
				if err != nil {
					return err
				}
				defer a.Scans.EndScan(sess.ID)

				if inventory {
					inv, err := a.Scans.Inventory(ctx, sess.ID)
					if err != nil {
						return err
					}
					return out.Encode(inv)
				}
				return drainPages(cmd, a.Scans, sess.ID, out)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&sc.Backend, "backend", models.StoreMemory, "store backend: pgvector, s3, redis, badger or azure_search")
	f.StringVar(&sc.StoreName, "store", "", "table, bucket, key prefix or index name")
	f.StringVar(&sc.MetadataColumn, "metadata-column", "", "column or field holding chunk metadata")
	f.StringVar(&sc.VectorColumn, "vector-column", "", "pgvector column probed for the dimension")
	f.StringVar(&sc.Prefix, "prefix", "", "key prefix inside the store")
	f.IntVar(&sc.PageSize, "page-size", 0, "records per backend page")
	f.StringVar(&sc.BatchErrorPolicy, "batch-error-policy", "", "stop or propagate")
	f.BoolVar(&inventory, "inventory", false, "print the whole inventory as one JSON object")
	return cmd
}

func drainPages(cmd *cobra.Command, scans *services.ScanService, id string, out *json.Encoder) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	for {
		page, err := scans.NextPage(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range page.Errors {
			log.Warn("item skipped", "key", e.Key, "error", e.Message)
		}
		if !page.HasMore {
			if page.Inventory != nil {
				log.Info("scan finished", "sources", page.Inventory.SourceCount, "chunks", page.Inventory.ChunkCount, "complete", page.Inventory.Complete)
			}
			return nil
		}
		for _, e := range page.Items {
			if err := out.Encode(e.Item); err != nil {
				return err
			}
		}
	}
}
