package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/services"
)

type options struct {
	header     bool
	siteColumn bool
}

// Reads samples as CSV rows (od,sst,dqo,ce,ph[,n,p], optionally prefixed by a
// site id) and prints the ICA of each row.
func main() {
	var (
		file       = flag.String("file", "", "CSV file to read (default stdin)")
		header     = flag.Bool("header", false, "Skip the first row")
		siteColumn = flag.Bool("site", false, "First column is a station or discharge point id")
		strict     = flag.Bool("strict", false, "Exit with status 1 when any row is rejected")
	)
	flag.Parse()

	input := io.Reader(os.Stdin)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("❌ Failed to open %s: %v", *file, err)
		}
		defer f.Close()
		input = f
	}

	rejected, err := run(input, os.Stdout, options{header: *header, siteColumn: *siteColumn})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *strict && rejected > 0 {
		os.Exit(1)
	}
}

// run computes every row of r and writes a table to w. It returns the number
// of rows the engine rejected.
func run(r io.Reader, w io.Writer, opts options) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	parser := services.NewSampleParser()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSITE\tVARIABLES\tICA\tQUALITY\tDETAIL")

	row, computed, rejected := 0, 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rejected, fmt.Errorf("failed to read CSV: %w", err)
		}
		row++
		if opts.header && row == 1 {
			continue
		}

		site := "-"
		if opts.siteColumn && len(record) > 0 {
			site, record = strings.TrimSpace(record[0]), record[1:]
		}

		result, err := computeRow(parser, record)
		if err != nil {
			rejected++
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t%s\t%v\n", row, site, rejectionLabel(err), err)
			continue
		}
		computed++
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", row, site, result.VariableCount,
			ica.Format(result.CompositeCoefficient), result.QualityClass, detail(result))
	}

	if err := tw.Flush(); err != nil {
		return rejected, err
	}
	fmt.Fprintf(w, "\n%d computed, %d rejected\n", computed, rejected)
	return rejected, nil
}

func computeRow(parser *services.SampleParser, fields []string) (*models.IndexResult, error) {
	raw, err := parser.ParseSampleFields(fields)
	if err != nil {
		return nil, err
	}
	set, err := ica.Compute(raw)
	if err != nil {
		return nil, err
	}
	return models.NewIndexResult(set)
}

func rejectionLabel(err error) string {
	if ica.IsComputeError(err) {
		return "REJECTED:" + ica.KindName(err)
	}
	return "INVALID"
}

func detail(r *models.IndexResult) string {
	parts := []string{
		"iod=" + ica.Format(r.OxygenIndex),
		"isst=" + ica.Format(r.SolidsIndex),
		"idqo=" + ica.Format(r.DemandIndex),
		"ice=" + ica.Format(r.ConductivityIndex),
		"iph=" + ica.Format(r.AcidityIndex),
	}
	if r.NutrientIndex != nil {
		parts = append(parts, "inp="+ica.Format(r.NutrientIndex), "rnp="+ica.Format(r.NutrientRatio))
	}
	return strings.Join(parts, " ")
}
