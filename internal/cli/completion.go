package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// renderFormats are the values completed for render --format.
var renderFormats = []string{formatSVG, formatDOT, formatGraphviz, formatJSON, formatPDF, formatPNG}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for growtree.

Completes the commands (play, render, serve, fetch, watch, config, cache),
graph documents (*.json) for play, render and serve, and the output formats
of render --format, including comma-separated lists such as svg,json.

  bash:        source <(growtree completion bash)
  zsh:         growtree completion zsh > "${fpath[1]}/_growtree"
  fish:        growtree completion fish > ~/.config/fish/completions/growtree.fish
  powershell:  growtree completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeDocument completes the optional graph document argument.
func completeDocument(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeFormats completes the last element of a comma-separated format
// list, skipping formats already given.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, last = toComplete[:i+1], toComplete[i+1:]
	}
	given := parseFormats(prefix)

	var out []string
	for _, f := range renderFormats {
		if strings.HasPrefix(f, last) && (prefix == "" || !slices.Contains(given, f)) {
			out = append(out, prefix+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
