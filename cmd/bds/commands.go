package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/informaticslab/bds-wcs/internal/core/config"
	"github.com/informaticslab/bds-wcs/internal/core/observability"
	"github.com/informaticslab/bds-wcs/internal/logger"
	"github.com/informaticslab/bds-wcs/internal/metrics"
	"github.com/informaticslab/bds-wcs/pkg/blobstore"
	"github.com/informaticslab/bds-wcs/pkg/wcs"
)

// app is built once per invocation by the root command's pre-run hook.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	client  *wcs.Client
	metrics *metrics.Provider
}

func rootCommand() *cobra.Command {
	a := &app{}
	var (
		modelFeed string
		logLevel  string
	)

	root := &cobra.Command{
		Use:           "bds",
		Short:         "Query the Met Office beta data services",
		Long:          "Browse coverages of a model feed and download coverage data over WCS 1.0.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.PersistentFlags().StringVarP(&modelFeed, "model-feed", "m", "", "model feed, one of "+strings.Join(wcs.ModelFeeds(), ", "))
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(modelFeed, logLevel)
		if err != nil {
			return err
		}
		return a.init(cmd, cfg)
	}
	root.PersistentPostRunE = func(*cobra.Command, []string) error {
		if a.metrics == nil {
			return nil
		}
		if err := a.metrics.Flush(); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	}

	root.AddCommand(
		validateKeyCommand(a),
		capabilitiesCommand(a),
		describeCommand(a),
		getCommand(a),
		uploadCommand(a),
	)
	return root
}

func loadConfig(modelFeed, logLevel string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if modelFeed != "" {
		cfg.ModelFeed = modelFeed
	}
	if logLevel != "" {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	return cfg, cfg.Validate()
}

func (a *app) init(cmd *cobra.Command, cfg config.Config) error {
	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
		SampleN:   cfg.Log.SampleN,
		ModelFeed: cfg.ModelFeed,
		Component: "cli",
	}, cmd.ErrOrStderr())
	a.log = logger.NewSlog(&zl)

	a.metrics = metrics.Init(metrics.Config{
		Textfile: cfg.MetricsTextfile,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	if err := observability.Init(a.metrics.Registerer()); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	observability.SetModelFeed(cfg.ModelFeed)
	observability.ExposeBuildInfo(Version)

	client, err := wcs.NewClient(cfg.APIKey,
		wcs.WithModelFeed(cfg.ModelFeed),
		wcs.WithService(cfg.Service, cfg.Version),
		wcs.WithBaseURL(cfg.BaseURL),
		wcs.WithTimeout(cfg.HTTPTimeout),
		wcs.WithUserAgent(userAgent(cfg)),
		wcs.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.client = client
	a.log.Debug("client ready", "endpoint", client.Endpoint(), "version", Version)
	return nil
}

func userAgent(cfg config.Config) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return "bds/" + Version
}

func validateKeyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-key",
		Short: "Check that the API key is accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.ValidateAPIKey(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key accepted")
			return nil
		},
	}
}

func capabilitiesCommand(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:     "capabilities",
		Aliases: []string{"caps"},
		Short:   "List the coverages of the model feed",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			covs, err := a.client.GetCapabilities(cmd.Context(), saveOpts(save)...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), covs.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "also write the raw XML response to this file")
	return cmd
}

func describeCommand(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "describe COVERAGE",
		Short: "Show the dimensions, CRSs and formats of a coverage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cov, err := a.client.DescribeCoverage(cmd.Context(), args[0], saveOpts(save)...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cov.Info())
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "also write the raw XML response to this file")
	return cmd
}

func saveOpts(path string) []wcs.RequestOption {
	if path == "" {
		return nil
	}
	return []wcs.RequestOption{wcs.WithSavePath(path)}
}

// queryFlags holds the GetCoverage parameters as typed on the command line.
type queryFlags struct {
	format, crs, elevation, bbox    string
	dimRun, dimForecast, time       string
	width, height, resX, resY, resZ string
	interpolation                   string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "", "output format, e.g. NetCDF3")
	fl.StringVar(&f.crs, "crs", "", "coordinate reference system, e.g. EPSG:4326")
	fl.StringVar(&f.elevation, "elevation", "", "elevation level")
	fl.StringVar(&f.bbox, "bbox", "", "x-min,y-min,x-max,y-max")
	fl.StringVar(&f.dimRun, "dim-run", "", "model run time")
	fl.StringVar(&f.dimForecast, "dim-forecast", "", "forecast offset from the run, e.g. PT36H")
	fl.StringVar(&f.time, "time", "", "forecast validity time")
	fl.StringVar(&f.width, "width", "", "grid points along x")
	fl.StringVar(&f.height, "height", "", "grid points along y")
	fl.StringVar(&f.resX, "resx", "", "grid spacing along x")
	fl.StringVar(&f.resY, "resy", "", "grid spacing along y")
	fl.StringVar(&f.resZ, "resz", "", "grid spacing along z")
	fl.StringVar(&f.interpolation, "interpolation", "", "interpolation method")
}

func (f *queryFlags) query() (wcs.Query, error) {
	p := wcs.Params{
		Format:        f.format,
		CRS:           f.crs,
		Elevation:     f.elevation,
		DimRun:        f.dimRun,
		Time:          f.time,
		DimForecast:   f.dimForecast,
		Width:         f.width,
		Height:        f.height,
		ResX:          f.resX,
		ResY:          f.resY,
		ResZ:          f.resZ,
		Interpolation: f.interpolation,
	}
	if f.bbox != "" {
		for _, v := range strings.Split(f.bbox, ",") {
			p.BBox = append(p.BBox, strings.TrimSpace(v))
		}
	}
	return wcs.BuildQuery(p)
}

func getCommand(a *app) *cobra.Command {
	var (
		qf  queryFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "get COVERAGE",
		Short: "Download coverage data to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			q, err := qf.query()
			if err != nil {
				return err
			}
			n, err := a.client.WriteCoverage(cmd.Context(), args[0], q, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, out)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write the coverage to")
	return cmd
}

func uploadCommand(a *app) *cobra.Command {
	var (
		qf     queryFlags
		bucket string
		key    string
		region string
		create bool
	)
	cmd := &cobra.Command{
		Use:   "upload COVERAGE",
		Short: "Stream coverage data into a bucket",
		Long:  "Stream coverage data into object storage. --bucket takes s3://name/prefix, file:///dir or mem://.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if bucket == "" {
				return errors.New("--bucket is required")
			}
			q, err := qf.query()
			if err != nil {
				return err
			}
			if region == "" {
				region = a.cfg.AWSRegion
			}

			store, err := blobstore.Open(ctx, bucket, region)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if create {
				api := store.S3()
				if api == nil {
					return fmt.Errorf("--create-bucket only applies to s3 buckets, got %s", bucket)
				}
				if err := blobstore.CreateBucket(ctx, api, store.Name(), store.Region()); err != nil {
					return err
				}
				a.log.Info("bucket ready", "bucket", store.Name(), "region", store.Region())
			}

			if key == "" {
				key = args[0] + ".nc"
			}
			n, err := a.client.StreamCoverageToBucket(ctx, args[0], q, store, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes to %s\n", n, key)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&bucket, "bucket", "", "destination bucket URL")
	cmd.Flags().StringVar(&key, "key", "", "object key (default COVERAGE.nc)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region for s3 buckets (default AWS_REGION)")
	cmd.Flags().BoolVar(&create, "create-bucket", false, "create the s3 bucket if it does not exist")
	return cmd
}
