// Package main provides the wollet CLI, an interactive Liquid wallet shell.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/complex-gh/wollet"
	"github.com/complex-gh/wollet/esplora"
	"github.com/complex-gh/wollet/internal/config"
	"github.com/complex-gh/wollet/internal/logger"
	"github.com/complex-gh/wollet/internal/secret"
	"github.com/complex-gh/wollet/internal/shell"
	"github.com/complex-gh/wollet/internal/ui"
	"github.com/mattn/go-isatty"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	envErr error

	rootCmd = &cobra.Command{
		Use:   "wollet",
		Short: "Interactive Liquid wallet",
		Long: `An interactive shell for a single-signature Liquid wallet.

Type commands at the prompt: create, load, restore, scan, balance, address,
txs, send, issue, reissue, burn, help and exit.

The recovery phrase is stored unencrypted in <data-dir>/mnemonic.txt.
Anyone who can read that file can spend the wallet.

Every flag can also be set with a WOLLET_* environment variable, for example
WOLLET_ESPLORA_URL or WOLLET_DATA_DIR. Flags win over the environment.`,
		Example: `  wollet
  wollet --data-dir ~/.wollet --esplora-url http://127.0.0.1:3102/
  wollet --network testnet --esplora-url https://blockstream.info/liquidtestnet/api --waterfalls=false
  echo "create" | wollet --log-file none`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := wollet.SetLanguage(cfg.Language); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil { //nolint:mnd
				return errors.Wrap(err, "could not create data directory")
			}

			log, err := logger.New(cfg.LogPath(), cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx := logger.ContextWithLogger(cmd.Context(), log)
			log.Info("starting", zap.Any("config", config.SafeConfig(*cfg)))

			out := ui.Stdout()
			env := shell.Env{
				Secrets: secret.New(cfg.DataDir),
				Out:     out,
				Options: shell.Options{
					WordCount: cfg.WordCount,
					FeeRate:   cfg.FeeRate,
					GapLimit:  cfg.GapLimit,
				},
			}

			net, chain, err := connect(cfg)
			if err != nil {
				log.Warn("network unavailable", zap.Error(err))
				out.Failure(fmt.Sprintf("network unavailable: %v", err))
				env.NetworkErr = err
			} else {
				env.Network, env.Chain = net, chain
			}

			prompt := ""
			if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				prompt = shell.DefaultPrompt
				env.Options.ReadSecret = ui.ReadSecret
			}

			// The shell always exits 0 once it has started.
			if err := shell.New(shell.NewSession(env), os.Stdin, prompt).Run(ctx); err != nil {
				log.Error("shell stopped", zap.Error(err))
				out.Failure(err.Error())
				return nil
			}
			log.Info("stopped")
			return nil
		},
	}

	manCmd = &cobra.Command{
		Use:          "man",
		Args:         cobra.NoArgs,
		Short:        "generate man pages",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			manPage, err := mcobra.NewManPage(1, rootCmd)
			if err != nil {
				//nolint: wrapcheck
				return err
			}
			manPage = manPage.WithSection("Copyright", "(C) 2025-2026 complex.\n"+
				"See LICENSE for licensing information.")
			fmt.Println(manPage.Build(roff.NewDocument()))
			return nil
		},
	}

	// completionCmd generates shell completion scripts for bash, zsh, fish, and powershell.
	completionCmd = &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for wollet.

To load completions:

Bash:
  $ source <(wollet completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ wollet completion bash > /etc/bash_completion.d/wollet
  # macOS:
  $ wollet completion bash > $(brew --prefix)/etc/bash_completion.d/wollet

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ wollet completion zsh > "${fpath[1]}/_wollet"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ wollet completion fish | source

  # To load completions for each session, execute once:
  $ wollet completion fish > ~/.config/fish/completions/wollet.fish

PowerShell:
  PS> wollet completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> wollet completion powershell > wollet.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		SilenceUsage:          true,
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unknown shell: %s", args[0])
			}
		},
	}
)

func init() {
	// Environment values become the flag defaults.
	cfg, envErr = config.Environment()
	if envErr != nil {
		cfg = &config.Config{}
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.DataDir, "data-dir", "d", cfg.DataDir, "Directory holding the recovery phrase and the log")
	flags.StringVarP(&cfg.Network, "network", "n", cfg.Network, "Network: regtest, testnet or liquid")
	flags.StringVar(&cfg.PolicyAsset, "policy-asset", cfg.PolicyAsset, "Policy asset id (regtest only)")
	flags.StringVarP(&cfg.EsploraURL, "esplora-url", "u", cfg.EsploraURL, "Esplora server URL")
	flags.BoolVar(&cfg.Waterfalls, "waterfalls", cfg.Waterfalls, "Scan through the Waterfalls endpoint")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for each request to the server (0 waits forever)")
	flags.IntVarP(&cfg.WordCount, "words", "w", cfg.WordCount, "Words in a new recovery phrase (12, 15, 18, 21 or 24)")
	flags.StringVarP(&cfg.Language, "language", "l", cfg.Language, "Language of the recovery phrase word list")
	flags.Uint64Var(&cfg.FeeRate, "fee-rate", cfg.FeeRate, "Fee rate in sat/kvB")
	flags.Uint32Var(&cfg.GapLimit, "gap-limit", cfg.GapLimit, "Unused addresses that end a scan")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file (default <data-dir>/wollet.log, \"none\" disables logging)")
	rootCmd.AddCommand(manCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect builds the network parameters and the chain client once, before the
// shell reads any input.
func connect(cfg *config.Config) (*wollet.Network, *esplora.Client, error) {
	net, err := wollet.ParseNetwork(cfg.Network, cfg.PolicyAsset)
	if err != nil {
		return nil, nil, err
	}
	client, err := esplora.New(net, cfg.EsploraURL, cfg.Waterfalls,
		esplora.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		esplora.WithGapLimit(cfg.GapLimit))
	if err != nil {
		return nil, nil, err
	}
	return net, client, nil
}
