package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onsi/gomega"
)

// ConfigOptions describes the config file of one test
type ConfigOptions struct {
	CatalogURL     string
	MongoURL       string
	Database       string
	StatusDir      string
	ParsersDir     string
	GroupByPackage bool
	PageSize       int
}

// WriteConfigYAML writes a catalog-sync config file into dir and returns its path
func WriteConfigYAML(dir string, opts ConfigOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "catalog:\n  server: %s\n", opts.CatalogURL)
	if opts.PageSize > 0 {
		fmt.Fprintf(&b, "  pageSize: %d\n", opts.PageSize)
	}
	fmt.Fprintf(&b, "store:\n  url: %s\n  database: %s\n", opts.MongoURL, opts.Database)
	b.WriteString("  mainCollection: items\n  statsCollection: stats\n  cacheCollection: query_cache\n")
	if opts.ParsersDir != "" {
		fmt.Fprintf(&b, "parsers:\n  directory: %s\n", opts.ParsersDir)
	}
	if opts.GroupByPackage {
		b.WriteString("sync:\n  groupByPackage: true\n")
	}
	if opts.StatusDir != "" {
		fmt.Fprintf(&b, "statusDir: %s\n", opts.StatusDir)
	}

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, []byte(b.String()), 0600)).To(gomega.Succeed())
	return path
}

// WriteCSVParser writes a csv parser definition into dir
func WriteCSVParser(dir string) {
	def := `format: csv
kind: csv
filters:
  columns: columnCount
  rows: rowCount
`
	gomega.Expect(os.WriteFile(filepath.Join(dir, "csv.yaml"), []byte(def), 0600)).To(gomega.Succeed())
}
