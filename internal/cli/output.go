package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"

	"github.com/lasselehtinen/elvis/pkg/elvis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var titleCase = cases.Title(language.English)

// printJSON prints the given value as indented JSON
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

// printYAML prints the given value as YAML. Values go through JSON first so
// field names follow the json tags.
func printYAML(w io.Writer, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	yamlData, err := yaml.JSONToYAML(jsonData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprint(w, string(yamlData))
}

// printValue prints data in the selected output format. Text output is YAML.
func printValue(w io.Writer, data any) {
	if outputFormat == "json" {
		printJSON(w, data)
		return
	}
	printYAML(w, data)
}

// printResponse prints the payload of rsp.
func printResponse(w io.Writer, rsp *elvis.Response) error {
	if rsp.NotModified() {
		if outputFormat == "text" {
			warnLabel.Fprintln(w, "Not modified")
		} else {
			printValue(w, map[string]bool{"notModified": true})
		}
		return nil
	}
	v, err := rsp.Value()
	if err != nil {
		return err
	}
	printValue(w, v)
	return nil
}

// printSuccess prints a success label in text mode, or kv otherwise.
func printSuccess(w io.Writer, msg string, kv map[string]any) {
	if outputFormat != "text" {
		printValue(w, kv)
		return
	}
	okLabel.Fprintln(w, msg)
}

// printProcessed prints the counts of a bulk operation.
func printProcessed(w io.Writer, action string, rsp *elvis.Response) error {
	if outputFormat != "text" {
		return printResponse(w, rsp)
	}
	var pr elvis.ProcessedResult
	if err := rsp.Decode(&pr); err != nil {
		return err
	}
	if pr.ErrorCount > 0 {
		warnLabel.Fprintf(w, "%s %d, failed %d\n", action, pr.ProcessedCount, pr.ErrorCount)
		return nil
	}
	okLabel.Fprintf(w, "%s %d\n", action, pr.ProcessedCount)
	return nil
}

// printSearchResult renders hits as a table followed by one block per facet.
func printSearchResult(w io.Writer, sr *elvis.SearchResult, fields []string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	for _, f := range fields {
		header = append(header, strings.ToUpper(f))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, h := range sr.Hits {
		row := []string{h.ID}
		for _, f := range fields {
			row = append(row, cell(h.Metadata[f]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d-%d of %d\n", sr.FirstResult, sr.FirstResult+len(sr.Hits), sr.TotalHits)

	names := make([]string, 0, len(sr.Facets))
	for name := range sr.Facets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "\n%s:\n", titleCase.String(name))
		for _, v := range sr.Facets[name] {
			mark := " "
			if v.Selected {
				mark = "*"
			}
			fmt.Fprintf(w, " %s %s (%d)\n", mark, v.Value, v.Hits)
		}
	}
}

// printBrowse renders browse entries, folders first as the server sends them.
func printBrowse(w io.Writer, entries []elvis.BrowseEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tPATH")
	for _, e := range entries {
		kind := "asset"
		switch {
		case e.Directory:
			kind = "folder"
		case e.IsCollection:
			kind = "collection"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, e.Name, e.AssetPath)
	}
	tw.Flush()
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, cell(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
