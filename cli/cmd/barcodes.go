package cmd

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/barcode"
	"github.com/filaform/filatag/cli/config"
)

// BarcodesCommand manages the barcode-to-SKU mapping file.
func BarcodesCommand() *cli.Command {
	return &cli.Command{
		Name:  "barcodes",
		Usage: "Manage barcode to SKU mappings",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all barcode mappings",
				Flags:  []cli.Flag{ConfigFlag},
				Action: runBarcodesList,
			},
			{
				Name:      "add",
				Usage:     "Map a barcode value to a SKU",
				ArgsUsage: "<barcode> <sku>",
				Flags:     []cli.Flag{ConfigFlag},
				Action:    runBarcodesAdd,
			},
		},
	}
}

func loadBarcodeMap(c *cli.Context) (*barcode.Map, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, err
	}
	return barcode.LoadMap(cfg.Storage.BarcodeMapFile)
}

func runBarcodesList(c *cli.Context) error {
	bcMap, err := loadBarcodeMap(c)
	if err != nil {
		return err
	}

	all := bcMap.All()
	values := make([]string, 0, len(all))
	for value := range all {
		values = append(values, value)
	}
	sort.Strings(values)

	for _, value := range values {
		fmt.Printf("%-16s %s\n", value, all[value])
	}
	return nil
}

func runBarcodesAdd(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: filatag barcodes add <barcode> <sku>", 1)
	}
	bcMap, err := loadBarcodeMap(c)
	if err != nil {
		return err
	}
	if err := bcMap.Add(c.Args().Get(0), c.Args().Get(1)); err != nil {
		return fmt.Errorf("add mapping: %w", err)
	}
	return nil
}
