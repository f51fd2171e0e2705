package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column order of the product sheet. The first row is a header.
const (
	colName = iota
	colDescription
	colCategory
	colBrand
	colPrice
	colOriginalPrice
	colStock
	colImages
	colTags
	colRating
	minColumns = colStock + 1
)

type importResult struct {
	Rows     int
	Products []model.Product
	Skipped  []string
}

func readProductsFromXLSX(filePath string) (*importResult, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	return parseProductRows(rows[1:]), nil
}

func parseProductRows(rows [][]string) *importResult {
	result := &importResult{Rows: len(rows)}
	seen := make(map[string]bool)

	for i, row := range rows {
		line := i + 2
		product, err := parseProductRow(row)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		key := strings.ToLower(product.Name)
		if seen[key] {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: duplicate product %q", line, product.Name))
			continue
		}
		seen[key] = true

		result.Products = append(result.Products, *product)
	}
	return result
}

func parseProductRow(row []string) (*model.Product, error) {
	if len(row) < minColumns {
		return nil, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(row))
	}

	name := cell(row, colName)
	category := strings.ToLower(cell(row, colCategory))
	if name == "" || category == "" {
		return nil, fmt.Errorf("name and category are required")
	}

	price, err := decimal.NewFromString(cell(row, colPrice))
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("invalid price %q", cell(row, colPrice))
	}

	stock, err := strconv.Atoi(cell(row, colStock))
	if err != nil || stock < 0 {
		return nil, fmt.Errorf("invalid stock %q", cell(row, colStock))
	}

	product := &model.Product{
		Name:        name,
		Description: cell(row, colDescription),
		Category:    category,
		Brand:       cell(row, colBrand),
		Price:       price.Round(2),
		Stock:       stock,
		IsActive:    true,
		Images:      []model.ProductImage{},
		Tags:        splitList(cell(row, colTags), ","),
	}

	if raw := cell(row, colOriginalPrice); raw != "" {
		original, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid original price %q", raw)
		}
		original = original.Round(2)
		product.OriginalPrice = &original
	}

	for _, url := range splitList(cell(row, colImages), "|") {
		product.Images = append(product.Images, model.ProductImage{URL: url, Alt: name})
	}

	if raw := cell(row, colRating); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			return nil, fmt.Errorf("invalid rating %q", raw)
		}
		product.Rating.Average = rating
	}

	return product, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitList(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
