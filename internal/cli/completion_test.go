package cli

import (
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestCompleteFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", renderFormats},
		{"p", []string{"pdf", "png"}},
		{"svg,", []string{"svg,dot", "svg,graphviz", "svg,json", "svg,pdf", "svg,png"}},
		{"svg,json,d", []string{"svg,json,dot"}},
		{"svg,s", nil},
	}
	for _, tt := range tests {
		got, directive := completeFormats(nil, nil, tt.in)
		if !slices.Equal(got, tt.want) {
			t.Errorf("completeFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if directive&cobra.ShellCompDirectiveNoSpace == 0 {
			t.Errorf("completeFormats(%q) directive = %v, want NoSpace", tt.in, directive)
		}
	}
}

func TestCompleteDocument(t *testing.T) {
	got, directive := completeDocument(nil, nil, "")
	if !slices.Equal(got, []string{"json"}) || directive != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("completeDocument() = %v, %v", got, directive)
	}
	if _, directive := completeDocument(nil, []string{"doc.json"}, ""); directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second argument directive = %v, want NoFileComp", directive)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var out strings.Builder
		root := New(io.Discard, log.InfoLevel).RootCommand()
		root.SetOut(&out)
		root.SetArgs([]string{"completion", shell})
		if err := root.Execute(); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.Contains(out.String(), "growtree") {
			t.Errorf("%s script does not mention growtree", shell)
		}
	}
}

func TestRenderFormatCompletionRegistered(t *testing.T) {
	var out strings.Builder
	root := New(io.Discard, log.InfoLevel).RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{cobra.ShellCompRequestCmd, "render", "--format", "gr"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "graphviz") {
		t.Errorf("completion output = %q", out.String())
	}
}
