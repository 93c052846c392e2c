package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/runs"
)

// printCatalogTable prints programmes grouped by category in human-readable
// form
func printCatalogTable(w io.Writer, c *catalog.Catalog) {
	fmt.Fprintf(w, "Catalog %s (saved %s)\n", c.ID, c.SavedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "%d programmes in %d categories\n\n", c.Len(), len(c.Categories))

	for _, cat := range c.Categories {
		fmt.Fprintf(w, "== %s (%d) ==\n", cat.Name, len(cat.Programmes))
		if len(cat.Programmes) == 0 {
			fmt.Fprintln(w, "   No programmes.")
			fmt.Fprintln(w)
			continue
		}

		for _, p := range cat.Programmes {
			title := truncate(p.DisplayTitle(), 70)
			if p.Subtitle != nil {
				title += ": " + truncate(*p.Subtitle, 50)
			}
			fmt.Fprintf(w, "%4s %s\n", indexLabel(p), title)

			var details []string
			if p.Duration != nil {
				details = append(details, *p.Duration)
			}
			if p.Available != nil {
				details = append(details, *p.Available)
			}
			if p.PID != nil {
				details = append(details, "PID: "+*p.PID)
			}
			if len(details) > 0 {
				fmt.Fprintf(w, "     %s\n", strings.Join(details, " | "))
			}
			if p.Synopsis != nil {
				for _, line := range strings.Split(wrapText(truncate(*p.Synopsis, 150), 72), "\n") {
					fmt.Fprintf(w, "     %s\n", line)
				}
			}
			if p.URL != nil {
				fmt.Fprintf(w, "     URL: %s\n", *p.URL)
			}
		}
		fmt.Fprintln(w)
	}
}

// printCatalogJSON prints the catalog in its saved JSON form
func printCatalogJSON(w io.Writer, c *catalog.Catalog) error {
	data, err := catalog.Marshal(c, catalog.FormatJSON)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// printCatalogCompact prints one line per programme
func printCatalogCompact(w io.Writer, c *catalog.Catalog) {
	if c.Len() == 0 {
		fmt.Fprintln(w, "No programmes to display.")
		return
	}

	for _, cat := range c.Categories {
		for _, p := range cat.Programmes {
			fmt.Fprintf(w, "%s %s (%s)\n", indexLabel(p), p.DisplayTitle(), cat.Name)
		}
	}
}

// printRunsTable prints run history rows
func printRunsTable(w io.Writer, list []runs.Run) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s %-10s %-16s %-9s %6s %6s %6s  %s\n",
		"ID", "STATUS", "STARTED", "DURATION", "PAGES", "PROGS", "FAILS", "CATEGORIES")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range list {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.Duration().Round(100 * time.Millisecond).String()
		}

		fmt.Fprintf(w, "%-36s %-10s %-16s %-9s %6d %6d %6d  %s\n",
			r.RunID.String(),
			r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			r.Pages,
			r.Programmes,
			r.Failures,
			truncate(strings.Join(r.Categories, ", "), 40),
		)
	}
}

// printRunsJSON prints run history in JSON format
func printRunsJSON(w io.Writer, list []runs.Run) error {
	if list == nil {
		list = []runs.Run{}
	}

	output := map[string]any{
		"runs":  list,
		"total": len(list),
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

func indexLabel(p catalog.Programme) string {
	if p.Index == nil {
		return "#?"
	}
	return fmt.Sprintf("#%d", *p.Index)
}

// wrapText wraps text to a maximum line width
func wrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n")
}
