package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/regoutline/internal/engine"
	"github.com/dgallion1/regoutline/internal/evidence"
	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/parser"
	"github.com/dgallion1/regoutline/internal/registry"
	"github.com/dgallion1/regoutline/internal/search"
)

var (
	asJSON   bool
	snippets bool
)

var outlineCmd = &cobra.Command{
	Use:   "outline <document>",
	Short: "Print a document's section tree",
	Long: `Print the section tree built from a document's outline.

Example:
  regoutline outline ibc.yaml
  regoutline outline ibc.csv --json`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

var sectionCmd = &cobra.Command{
	Use:   "section <document> <key-or-code>",
	Short: "Print the text of one section",
	Long: `Locate a section in the document text and print it.

Example:
  regoutline section ibc.yaml 5.2
  regoutline section ibc.yaml 5-3 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runSection,
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence <document> <question>",
	Short: "Collect excerpts that bear on a question",
	Long: `Extract keywords from the question and print the excerpts around their
first occurrences, each with the nearest section reference.

Example:
  regoutline evidence ibc.yaml "fire rating of exterior walls"
  regoutline evidence ibc.yaml "guard height" --snippets`,
	Args: cobra.ExactArgs(2),
	RunE: runEvidence,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the best outline match across the registry",
	Long: `Score every document, chapter and section in the registry directory
against the query and print the best match.

Example:
  regoutline search "wind loads" --registry ./codes`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(outlineCmd, sectionCmd, evidenceCmd, searchCmd)

	for _, c := range []*cobra.Command{outlineCmd, sectionCmd, evidenceCmd, searchCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	}
	evidenceCmd.Flags().BoolVar(&snippets, "snippets", false, "use the short snippet profile without section references")
}

func parserOptions() parser.Options {
	return parser.Options{FallbackPdftotext: viper.GetBool("pdf_fallback_pdftotext")}
}

// loadDocument reads a YAML manifest or an outline CSV with its source file.
func loadDocument(path string) (*registry.Document, error) {
	var (
		doc *registry.Document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = registry.LoadManifest(path, parserOptions())
	case ".csv":
		doc, err = registry.LoadCSVPair(path, parserOptions())
	default:
		return nil, fmt.Errorf("%s: expected a .yaml, .yml or .csv document description", path)
	}
	if err != nil {
		return nil, err
	}
	doc.Outline()
	return doc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runOutline(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, doc.Outline())
	}

	for _, ch := range doc.Outline() {
		fmt.Fprintf(out, "Chapter %s %s\n", ch.Number, ch.Title)
		outline.Walk(ch.Roots, func(n *outline.Node) bool {
			fmt.Fprintf(out, "%s%s  [%s]\n", strings.Repeat("  ", n.Level), n.Label(), n.Key)
			return true
		})
	}
	return nil
}

func runSection(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	sec, err := engine.New(nil, 0).Section(doc, args[1])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, sec)
	}

	fmt.Fprintf(out, "%s (chapter %s, bytes %d-%d)\n\n", sec.Node.Label(), sec.Chapter, sec.Span.StartOffset, sec.Span.EndOffset)
	fmt.Fprintln(out, sec.Span.SectionText)
	if sec.Span.Truncated {
		fmt.Fprintln(out, "\n[truncated]")
	}
	return nil
}

func runEvidence(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	eng := engine.New(nil, 0)

	var cands []evidence.Candidate
	if snippets {
		cands, err = eng.Snippets(doc, args[1])
	} else {
		cands, err = eng.Evidence(doc, args[1])
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		if cands == nil {
			cands = []evidence.Candidate{}
		}
		return writeJSON(out, map[string]any{"candidates": cands, "not_addressed": len(cands) == 0})
	}

	if len(cands) == 0 {
		fmt.Fprintln(out, "The document does not address this question.")
		return nil
	}
	for i, c := range cands {
		ref := c.SectionRef
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, ref, c.Snippet)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	dir := viper.GetString("registry_dir")
	if dir == "" {
		return fmt.Errorf("no registry directory: pass --registry or set REGOUTLINE_REGISTRY_DIR")
	}

	logOut := io.Discard
	if verbose {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, nil))

	store := registry.NewStore(nil)
	if _, err := registry.LoadDir(store, dir, parserOptions(), log); err != nil {
		return err
	}

	m, err := search.Best(store.Corpus(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, m)
	}

	switch m.Kind {
	case search.KindDocument:
		fmt.Fprintf(out, "document %s: %s (score %d)\n", m.DocumentID, m.Label, m.Score)
	case search.KindChapter:
		fmt.Fprintf(out, "%s chapter %s: %s (score %d)\n", m.DocumentID, m.ChapterNumber, m.Label, m.Score)
	default:
		fmt.Fprintf(out, "%s chapter %s: %s [%s] (score %d)\n", m.DocumentID, m.ChapterNumber, m.Label, m.NodeKey, m.Score)
	}
	return nil
}
