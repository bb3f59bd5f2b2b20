package cmd

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	dbt "tripsplit/db/db"
	"tripsplit/trip"
)

var inputPath string
var outputPath string

func splitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "split",
		Short:   "split expenses from a CSV file",
		Long:    `Reads a CSV of paid expenses (participant,item,amount), splits the total evenly and writes per-participant balances to the output CSV. Participants that paid nothing still count; list them with an empty item and amount 0.`,
		Example: `tripsplit split --input expenses.csv --output balances.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" || outputPath == "" {
				return cmd.Help()
			}

			inputFile, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer func(inputFile *os.File) {
				if err := inputFile.Close(); err != nil {
					log.Fatalf("Failed to close input file: %v", err)
				}
			}(inputFile)

			csvContent, err := csv.NewReader(inputFile).ReadAll()
			if err != nil {
				return err
			}

			names, memberships, items, err := ParseCSVToExpenses(csvContent)
			if err != nil {
				return fmt.Errorf("failed to parse CSV: %w", err)
			}
			if len(memberships) == 0 {
				return fmt.Errorf("no participants found in the CSV")
			}

			balances := trip.ComputeSplit(memberships, items)

			outputFile, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer func(outputFile *os.File) {
				if err := outputFile.Close(); err != nil {
					log.Fatalf("Failed to close output file: %v", err)
				}
			}(outputFile)

			w := csv.NewWriter(outputFile)
			if err := w.Write([]string{"participant", "paid", "owes", "collects"}); err != nil {
				return err
			}
			ordered := make([]string, 0, len(names))
			for name := range names {
				ordered = append(ordered, name)
			}
			sort.Strings(ordered)
			for _, name := range ordered {
				b := balances[names[name]]
				record := []string{name, b.Paid.String(), b.Owes.String(), b.Collects.String()}
				if err := w.Write(record); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "csv input file path (required)")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		log.Fatal(err)
		return nil
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "csv output file path (required)")
	if err := cmd.MarkFlagRequired("output"); err != nil {
		log.Fatal(err)
		return nil
	}

	return cmd
}

// ParseCSVToExpenses turns CSV rows of (participant,item,amount) into the
// memberships and paid items the splitter works on. The header row is
// skipped; every distinct participant name gets a synthetic ID.
func ParseCSVToExpenses(csvContent [][]string) (map[string]uuid.UUID, []dbt.Membership, []dbt.Item, error) {
	if len(csvContent) == 0 {
		return nil, nil, nil, fmt.Errorf("CSV is empty")
	}

	names := make(map[string]uuid.UUID)
	var memberships []dbt.Membership
	var items []dbt.Item

	// skip the header row
	for i, row := range csvContent[1:] {
		if len(row) != 3 {
			return nil, nil, nil, fmt.Errorf("row %d: expected 3 columns, but got %d", i+2, len(row))
		}

		name := row[0]
		if name == "" {
			return nil, nil, nil, fmt.Errorf("row %d: participant name is empty", i+2)
		}
		id, ok := names[name]
		if !ok {
			id = uuid.New()
			names[name] = id
			memberships = append(memberships, dbt.Membership{UserID: id})
		}

		if row[1] == "" {
			continue
		}
		amount, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("row %d: failed to parse amount '%s': %w", i+2, row[2], err)
		}
		payerID := id
		items = append(items, dbt.Item{
			ID:         uuid.New(),
			Name:       row[1],
			Quantity:   1,
			PayerID:    &payerID,
			AmountPaid: amount,
			IsPaid:     true,
		})
	}

	return names, memberships, items, nil
}
