package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"showcase/internal/catalog"
	"showcase/internal/config"
	"showcase/internal/logger"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "showcase",
	Short: "Product showcase backed by a remote rows API with a static fallback",
	Long: `showcase serves a searchable product catalog.

Products are read from a tabular rows API; when it cannot be reached, or
returns nothing displayable, the catalog is loaded from a local JSON file
and a notice is shown to visitors.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if cfg.Logging.File != "" {
			logger.InitWithFile(cfg.Logging.Level, &logger.FileOptions{Filename: cfg.Logging.File})
		} else {
			logger.Init(cfg.Logging.Level)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "showcase.yaml", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.AddCommand(serveCmd, checkCmd, listCmd, browseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newController wires the rows API client and the fallback file from cfg.
// A missing or invalid API configuration leaves the controller on the
// fallback alone.
func newController() *catalog.Controller {
	var api catalog.ProductSource
	client, err := catalog.NewClient(catalog.ClientOptions{
		BaseURL: cfg.API.BaseURL,
		TableID: cfg.API.TableID,
		Token:   cfg.API.Token,
		Fields:  catalog.FieldMapFrom(cfg.API.Fields),
		Timeout: cfg.APITimeout(),
	})
	if err != nil {
		logger.Warnf("rows API disabled: %v", err)
	} else {
		api = client
	}

	return catalog.NewController(api, catalog.NewFileFallback(cfg.Fallback.Path), catalog.ControllerOptions{
		BannerTTL:      cfg.BannerTTL(),
		SearchDebounce: cfg.SearchDebounce(),
	})
}

func newRenderer(promo func() bool) *catalog.Renderer {
	return &catalog.Renderer{
		Placeholder:  cfg.Catalog.PlaceholderImage,
		Currency:     cfg.Catalog.Currency,
		DecimalComma: cfg.Catalog.DecimalComma,
		Contact: catalog.ContactLink{
			BaseURL: cfg.Contact.BaseURL,
			Phone:   cfg.Contact.Phone,
			Message: cfg.Contact.Message,
		},
		PromoAuthoritative: promo,
	}
}
