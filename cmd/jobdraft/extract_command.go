package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobdraft/internal/api"
	"jobdraft/internal/extract"
)

const maxExtractInput = 4 << 20

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract <file|->",
		Short: "Structure an existing job description",
		Long: "Extract parses a job description (markdown or plain text) into a title,\n" +
			"summary, sections, tags, and quality scores. Use - to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc := stack.Orchestrator.Extractor().Extract(text)

			out := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "text":
				printDocumentSummary(out, doc)
			case "json":
				view := api.FromDocument("", &doc)
				return writeJSON(cmd, view)
			case "markdown", "md":
				fmt.Fprint(out, extract.Markdown(doc))
			case "html":
				rendered, err := extract.HTML(doc)
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)
			default:
				return fmt.Errorf("unknown format %q (valid: text, json, markdown, html)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, markdown, html")
	return cmd
}

func readInput(cmd *cobra.Command, source string) (string, error) {
	var reader io.Reader
	if source == "-" {
		reader = cmd.InOrStdin()
	} else {
		file, err := os.Open(source)
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		reader = file
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxExtractInput))
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func printDocumentSummary(out io.Writer, doc extract.Document) {
	fmt.Fprintf(out, "Title: %s\n", doc.Title)
	if doc.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", doc.Summary)
	}
	rows := make([][]string, 0, len(doc.Sections))
	for _, section := range doc.Sections {
		rows = append(rows, []string{section.ID, section.Title, fmt.Sprintf("%d", len([]rune(section.Content)))})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Section", "Title", "Chars"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	if len(doc.CategoryTags) > 0 {
		fmt.Fprintf(out, "Categories: %s\n", strings.Join(doc.CategoryTags, ", "))
	}
	if len(doc.SDGTags) > 0 {
		fmt.Fprintf(out, "SDGs: %s\n", strings.Join(doc.SDGTags, ", "))
	}
	printScores(out, doc)
}
