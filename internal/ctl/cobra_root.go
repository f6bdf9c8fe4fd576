package ctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"predictd/internal/codegen"
)

// buildRootCmdWith constructs the Cobra command tree wired to the fn* actions.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "predictctl",
		Short:         "Train, package, query and smoke-test predictd services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults PREDICTCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	root.AddCommand(trainCmd(), generateCmd(), predictCmd(cfg), smokeCmd(cfg))

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	root.AddCommand(completionCmd)

	return root
}

func trainCmd() *cobra.Command {
	var opts TrainOptions
	cmd := &cobra.Command{
		Use:     "train",
		Short:   "Train a model from a CSV file and save it as a bundle",
		Example: "  predictctl train --data german_credit.csv --label outcome --categorical checkingstatus,history --out models/german_credit_dtree.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := fnTrain(opts)
			if err != nil {
				return err
			}
			info("trained %s on %d rows", res.Algorithm, res.Rows)
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (classes=%v test_rows=%d accuracy=%.4f)\n", res.Path, res.Classes, res.TestRows, res.Accuracy)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Data, "data", "", "CSV file with a header row")
	f.StringVar(&opts.Label, "label", "", "Target column (default: last column)")
	f.StringSliceVar(&opts.Categorical, "categorical", nil, "Categorical columns to one-hot encode")
	f.StringVar(&opts.Algorithm, "algorithm", AlgoTree, "tree|logistic")
	f.Float64Var(&opts.TestFraction, "test-fraction", 0.2, "Held-out fraction for accuracy")
	f.Int64Var(&opts.Seed, "seed", 0, "Shuffle seed")
	f.IntVar(&opts.MaxDepth, "max-depth", 0, "Tree depth limit (0=default)")
	f.IntVar(&opts.Epochs, "epochs", 0, "Logistic regression epochs (0=default)")
	f.BoolVar(&opts.Normalize, "normalize", false, "Scale numeric features to unit L2 norm per row")
	f.StringVar(&opts.Name, "name", "", "Bundle name")
	f.StringVar(&opts.Out, "out", "", "Bundle path (.json, .yaml or .toml)")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func generateCmd() *cobra.Command {
	gen := &cobra.Command{Use: "generate", Short: "Generate container and deployment files", Args: func(cmd *cobra.Command, args []string) error { return nil }, RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("generate requires a subcommand: container|deploy")
	}}

	var copts codegen.ContainerOptions
	container := &cobra.Command{
		Use:     "container",
		Short:   "Write Dockerfile, helper script and service config into a directory",
		Example: "  predictctl generate container --dir german_credit --base-image-name predictd --base-image-tag 1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := fnGenerateContainer(copts)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cf := container.Flags()
	cf.StringVar(&copts.Dir, "dir", "", "Directory to create for the containerized model")
	cf.StringVar(&copts.BaseImageName, "base-image-name", "", "Base image for the container")
	cf.StringVar(&copts.BaseImageTag, "base-image-tag", "latest", "Base image tag")
	cf.StringVar(&copts.Kind, "kind", codegen.KindBundle, "Service kind: bundle|proxy")
	cf.StringVar(&copts.ImageName, "image-name", "", "Name of the image container_util.sh builds")
	cf.IntVar(&copts.Port, "port", 0, "Port the service listens on (0=8551)")
	cf.StringVar(&copts.ModelFile, "model-file", "", "Bundle file name under model/ (bundle kind)")
	cf.StringVar(&copts.HostedModelURL, "hosted-model-url", "", "Hosted model URL baked into the config (proxy kind)")
	cf.BoolVar(&copts.SoftScores, "soft-scores", false, "Mark the model as supporting soft scores in metadata.yml")
	_ = container.MarkFlagRequired("dir")
	_ = container.MarkFlagRequired("base-image-name")

	var (
		tmpl, config, output string
		ov                   codegen.DeployOverrides
	)
	deploy := &cobra.Command{
		Use:     "deploy",
		Short:   "Render a deployment template with deployment.params from a config file",
		Example: "  predictctl generate deploy --template german_credit/deployment.yaml.tmpl --config deploy.yml --output deployment.yaml --namespace scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fnRenderDeployment(tmpl, config, output, ov); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	df := deploy.Flags()
	df.StringVar(&tmpl, "template", "", "Deployment template")
	df.StringVar(&config, "config", "", "YAML file with deployment.params")
	df.StringVar(&output, "output", "deployment.yaml", "Where to write the rendered deployment")
	df.StringVar(&ov.ResourceName, "resource-name", "", "Override resource_name")
	df.StringVar(&ov.Namespace, "namespace", "", "Override namespace")
	_ = deploy.MarkFlagRequired("template")
	_ = deploy.MarkFlagRequired("config")

	gen.AddCommand(container, deploy)
	return gen
}

func predictCmd(cfg *Config) *cobra.Command {
	var opts PredictOptions
	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "POST instances to a predict endpoint and print the response",
		Example: "  predictctl predict --url http://localhost:8551/predict --instances '[[1,\"A11\",6]]'",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.URL == "" {
				opts.URL = strings.TrimRight(cfg.Server, "/") + "/predict"
			}
			return fnPredict(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.URL, "url", "", "Predict endpoint (default <PREDICTD_URL>/predict)")
	f.StringVar(&opts.Instances, "instances", "", "Inline JSON batch or request")
	f.StringVar(&opts.File, "file", "", "JSON file with a batch or request")
	f.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Per-attempt timeout")
	f.IntVar(&opts.Retries, "retries", envInt("PREDICTCTL_RETRIES", 2), "Retries on connection errors and 5xx")
	return cmd
}

func smokeCmd(cfg *Config) *cobra.Command {
	var opts SmokeOptions
	cmd := &cobra.Command{
		Use:     "smoke",
		Short:   "Start predictd on a free port, send one request and check the answer",
		Example: "  predictctl smoke --model-path models/german_credit_dtree.json --file probe.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Bin == "" {
				opts.Bin = cfg.PredictdBin
			}
			res, err := fnSmoke(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s answered %d with %d predictions\n", res.Addr, res.Status, res.Predictions)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Bin, "bin", "", "predictd binary (default PREDICTD_BIN, else go build ./cmd/predictd)")
	f.StringVar(&opts.ModelPath, "model-path", "", "Bundle to serve at /predict")
	f.StringVar(&opts.MetadataPath, "metadata-path", "", "Metadata overlay for the bundle")
	f.StringVar(&opts.HostedModelURL, "hosted-model-url", "", "Hosted model to proxy at /predict")
	f.StringVar(&opts.Instances, "instances", "", "Inline JSON batch or request")
	f.StringVar(&opts.File, "file", "", "JSON file with a batch or request")
	f.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "How long to wait for the daemon")
	return cmd
}
