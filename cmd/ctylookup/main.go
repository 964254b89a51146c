// Command ctylookup resolves callsigns to DXCC entities from cty.dat.
//
// Usage:
//
//	ctylookup [-config config.toml] [-file cty.dat] [-wae] CALL...
//	ctylookup -entities
//	ctylookup -find NAME
//	ctylookup -distance CALL CALL
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/andreiashu/cty"
	"github.com/andreiashu/cty/internal/config"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("255"))
	cellStyle  = lipgloss.NewStyle().PaddingRight(2)
	tableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to TOML config")
	file := flag.String("file", "", "read cty.dat from this file instead of the configured source")
	showWAE := flag.Bool("wae", false, "report WAE-only entities instead of hiding them")
	listEntities := flag.Bool("entities", false, "list all entities as cty.dat header lines")
	find := flag.String("find", "", "search entities by name (up to 2 edits)")
	distance := flag.Bool("distance", false, "print the distance between two callsigns")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *file != "" {
		conf.Source.Path = *file
	}
	if *showWAE {
		conf.Display.ShowWAE = true
	}

	db, err := cty.Load(context.Background(), source(conf.Source),
		cty.WithHTTPClient(&http.Client{Timeout: conf.Source.Timeout.Duration}),
		cty.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		fatal(err)
	}

	switch {
	case *listEntities:
		for _, e := range db.Entities() {
			fmt.Println(cty.FormatHeader(e))
		}
	case *find != "":
		rows := [][]string{{"ID", "Entity", "Prefix", "Cont", "CQ", "ITU"}}
		for _, e := range db.FindEntities(*find, 2) {
			rows = append(rows, []string{
				strconv.Itoa(e.ID), e.Name, e.PrimaryPrefix, string(e.Continent),
				strconv.Itoa(e.CQZone), strconv.Itoa(e.ITUZone),
			})
		}
		fmt.Println(renderTable(rows))
	case *distance:
		if flag.NArg() != 2 {
			fatal(fmt.Errorf("-distance needs exactly two callsigns"))
		}
		km, ok, err := db.DistanceBetween(flag.Arg(0), flag.Arg(1))
		if err != nil {
			fatal(err)
		}
		if !ok {
			fatal(fmt.Errorf("no entity for %s or %s", flag.Arg(0), flag.Arg(1)))
		}
		fmt.Printf("%s -> %s: %.0f km\n", strings.ToUpper(flag.Arg(0)), strings.ToUpper(flag.Arg(1)), km)
	default:
		if flag.NArg() == 0 {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Println(renderTable(lookupRows(db, flag.Args(), conf.Display.ShowWAE)))
	}
}

func source(sc config.SourceConfig) cty.Source {
	if sc.Path != "" {
		return cty.FileSource{Path: sc.Path}
	}
	return cty.HTTPSource{URL: sc.URL, Client: &http.Client{Timeout: sc.Timeout.Duration}}
}

// lookupRows resolves each call into a table row. WAE-only results are
// reported as such unless showWAE is set.
func lookupRows(db *cty.Database, calls []string, showWAE bool) [][]string {
	rows := [][]string{{"Call", "Entity", "Prefix", "Cont", "CQ", "ITU", "UTC", "Lat", "Long"}}
	for _, call := range calls {
		call = strings.ToUpper(strings.TrimSpace(call))
		r, ok, err := db.Lookup(call)
		switch {
		case err != nil:
			rows = append(rows, []string{call, errorStyle.Render(err.Error())})
		case !ok:
			rows = append(rows, []string{call, errorStyle.Render("no match")})
		case r.WAEOnly && !showWAE:
			rows = append(rows, []string{call, errorStyle.Render("WAE-only entity (use -wae)")})
		default:
			rows = append(rows, []string{
				call,
				r.EntityName,
				r.PrimaryPrefix,
				string(r.Continent),
				strconv.Itoa(r.CQZone),
				strconv.Itoa(r.ITUZone),
				formatOffset(r.UTCOffset),
				strconv.FormatFloat(r.Latitude, 'f', 2, 64),
				strconv.FormatFloat(r.Longitude, 'f', 2, 64),
			})
		}
	}
	return rows
}

// formatOffset renders the cty.dat offset in hours, e.g. "-2" or "-5.5".
func formatOffset(seconds int) string {
	return strconv.FormatFloat(float64(seconds)/3600, 'f', -1, 64)
}

// renderTable lays out rows in aligned columns; the first row is the header.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	ncols := 0
	for _, row := range rows {
		ncols = max(ncols, len(row))
	}
	widths := make([]int, ncols)
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	lines := make([]string, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := cellStyle.Width(widths[i] + 2)
			if r == 0 {
				style = style.Inherit(headerStyle)
			}
			cells[i] = style.Render(cell)
		}
		lines[r] = lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}
	return tableStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
	os.Exit(1)
}
