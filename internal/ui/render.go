package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/crosseverything/crosseverything/internal/search"
)

// Renderer writes human-readable output.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer. Pass noColor=true for pipes and CI.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

// SearchResults renders a query response as one line per hit.
func (r *Renderer) SearchResults(resp *search.Response) {
	if resp.TotalFound == 0 {
		fmt.Fprintln(r.out, r.styles.Dim.Render("no results"))
		return
	}

	for _, res := range resp.Results {
		kind := "file"
		size := humanize.Bytes(res.Size)
		if res.IsFolder {
			kind = "dir"
			size = "-"
		}
		fmt.Fprintf(r.out, "%s  %s\n", r.styles.Name.Render(res.Name), r.styles.Path.Render(res.Path))
		fmt.Fprintf(r.out, "    %s\n", r.styles.Meta.Render(
			fmt.Sprintf("%s  %s  %s", kind, size, res.Modified)))
	}

	fmt.Fprintln(r.out, r.styles.Dim.Render(
		fmt.Sprintf("%d results in %dms", resp.TotalFound, resp.SearchTimeMs)))
}

// Progress renders one build progress line. Total may be an estimate.
func (r *Renderer) Progress(processed, total int) {
	if total <= 0 {
		total = 1
	}
	pct := float64(processed) / float64(total) * 100
	fmt.Fprintf(r.out, "indexed %s / %s entries (%.0f%%)\n",
		humanize.Comma(int64(processed)), humanize.Comma(int64(total)), pct)
}

// BuildReport renders the final outcome of a build.
func (r *Renderer) BuildReport(status string, filesIndexed int, errs []string, message string) {
	switch status {
	case "completed":
		line := fmt.Sprintf("build complete: %s entries indexed", humanize.Comma(int64(filesIndexed)))
		if message != "" {
			line += " (" + message + ")"
		}
		fmt.Fprintln(r.out, r.styles.Success.Render(line))
	default:
		fmt.Fprintln(r.out, r.styles.Error.Render("build failed"))
	}
	for _, e := range errs {
		fmt.Fprintf(r.out, "  %s\n", r.styles.Warning.Render(e))
	}
}

// Status renders an index status summary.
func (r *Renderer) Status(isReady, building bool, totalFiles int, lastUpdated, uptime string) {
	var b strings.Builder
	b.WriteString(r.styles.Header.Render("index status") + "\n")
	b.WriteString(fmt.Sprintf("  ready:        %v\n", isReady))
	b.WriteString(fmt.Sprintf("  building:     %v\n", building))
	b.WriteString(fmt.Sprintf("  total files:  %s\n", humanize.Comma(int64(totalFiles))))
	if lastUpdated != "" {
		b.WriteString(fmt.Sprintf("  last updated: %s\n", lastUpdated))
	}
	if uptime != "" {
		b.WriteString(fmt.Sprintf("  daemon up:    %s\n", uptime))
	}
	fmt.Fprint(r.out, b.String())
}

// Errorf renders an error line.
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.Error.Render(fmt.Sprintf(format, args...)))
}
