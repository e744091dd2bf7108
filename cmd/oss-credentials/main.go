package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/aliyun/oss-credentials/pkg/client"
	"github.com/aliyun/oss-credentials/pkg/metric"
	"github.com/aliyun/oss-credentials/types/config"
)

const defaultTimeout = 30 * time.Second

var (
	configPath  string
	logLevel    string
	timeout     time.Duration
	showMetrics bool
	otlpAddr    string
	waitReady   bool

	shutdownTracing func(context.Context) error

	ctx           context.Context
	contextCancel context.CancelFunc
	ossClient     *client.Client
)

var (
	rootCmd = &cobra.Command{
		Use:   "oss-credentials",
		Short: "oss-credentials resolves, caches and inspects credentials for object storage requests.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, contextCancel = context.WithTimeout(context.Background(), timeout)

			if otlpAddr != "" {
				var err error
				shutdownTracing, err = setupTracing(ctx, otlpAddr)
				if err != nil {
					contextCancel()
					return err
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				contextCancel()
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			var opts []client.Option
			if cfg.SecretName != "" && cfg.EncryptedCredentialPath == "" {
				k8s, err := newKubeClient()
				if err != nil {
					contextCancel()
					return err
				}
				opts = append(opts, client.WithKubeClient(k8s))
			}

			ossClient, err = client.New(cfg, opts...)
			if err != nil {
				contextCancel()
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if showMetrics {
				if err := renderMetrics(prometheus.DefaultGatherer); err != nil {
					log.Printf("render metrics failed, %s", err)
				}
			}
			if ossClient != nil {
				ossClient.Shutdown()
			}
			if shutdownTracing != nil {
				if err := shutdownTracing(ctx); err != nil {
					log.Printf("flush spans failed, %s", err)
				}
			}
			if contextCancel != nil {
				contextCancel()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "resolve credentials and show them masked.",
		RunE:  runGet,
	}

	signCmd = &cobra.Command{
		Use:   "sign <string-to-sign>",
		Short: "sign a canonical string with the resolved credentials.",
		RunE:  runSign,
	}

	metadataCmd = &cobra.Command{
		Use:   "metadata",
		Short: "Show instance metadata related to credentials",
		RunE:  runMetadata,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "print version.",
		// no config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE:              runVersion,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file, "+config.DefaultConfigPath+" is used when present")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "timeout of the whole command")
	rootCmd.PersistentFlags().StringVar(&otlpAddr, "otlp-endpoint", "", "export fetch spans to this otlp grpc collector, host:port")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "show-metrics", false, "print credential metrics collected while running the command")

	getCmd.Flags().BoolVar(&waitReady, "wait", false, "wait until the credential source is ready instead of failing")

	rootCmd.AddCommand(getCmd, signCmd, metadataCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	return config.Load(path)
}

func newKubeClient() (kubernetes.Interface, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restConfig)
}

func main() {
	metric.RegisterPrometheus(nil)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("oss-credentials error: %s", err)
	}
}
