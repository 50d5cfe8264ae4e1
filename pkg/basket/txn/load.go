package txn

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate accepts ISO dates and the day-first format used by the sample
// sales exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q: %w", s, internalerr.ErrInvalidInput)
}

// ParseQuantity accepts non-negative values written either as ints or
// floats. Fractions are truncated.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("quantity %d is negative: %w", n, internalerr.ErrInvalidInput)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", s, internalerr.ErrInvalidInput)
	}
	return QuantityOf(f)
}

// QuantityOf converts a decoded quantity to an int, rejecting negative,
// NaN and out-of-range values.
func QuantityOf(f float64) (int, error) {
	if math.IsNaN(f) || f < 0 || f >= float64(math.MaxInt) {
		return 0, fmt.Errorf("quantity %v out of range: %w", f, internalerr.ErrInvalidInput)
	}
	return int(f), nil
}

// ReadCSV loads a transaction table from CSV with a header row. The
// Customer_ID, Product, SKU, Quantity and Sales_Amount columns are required;
// Date and Product_Taxonomy are optional.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColCustomerID, ColProduct, ColSKU, ColQuantity, ColSalesAmount} {
		if _, ok := cols[required]; !ok {
			return Table{}, fmt.Errorf("missing column %s: %w", required, internalerr.ErrInvalidInput)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Transaction
	_, hasTaxonomy := cols[ColTaxonomy]
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %w", line, err)
		}

		qty, err := ParseQuantity(field(rec, ColQuantity))
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := decimal.NewFromString(field(rec, ColSalesAmount))
		if err != nil {
			return Table{}, fmt.Errorf("line %d: sales amount: %v: %w", line, err, internalerr.ErrInvalidInput)
		}
		row := Transaction{
			CustomerID:    field(rec, ColCustomerID),
			Product:       field(rec, ColProduct),
			SKU:           field(rec, ColSKU),
			Quantity:      qty,
			SalesAmount:   amount,
			UniqueProduct: field(rec, ColUniqueProduct),
			Taxonomy:      field(rec, ColTaxonomy),
		}
		if raw := field(rec, ColDate); raw != "" {
			ts, err := ParseDate(raw)
			if err != nil {
				return Table{}, fmt.Errorf("line %d: %w", line, err)
			}
			row.Date = ts
		}
		rows = append(rows, row)
	}

	if hasTaxonomy {
		return WithTaxonomy(rows), nil
	}
	return NewTable(rows), nil
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

// record is the JSONL shape of a transaction.
type record struct {
	CustomerID  flexString      `json:"Customer_ID"`
	Product     string          `json:"Product"`
	SKU         string          `json:"SKU"`
	Quantity    flexString      `json:"Quantity"`
	SalesAmount decimal.Decimal `json:"Sales_Amount"`
	Date        string          `json:"Date"`
	Taxonomy    string          `json:"Product_Taxonomy"`
}

// LoadFromJSONL loads transactions from a JSONL file, one object per line.
// Malformed lines are skipped with a warning.
func LoadFromJSONL(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open file %s: %w", path, err)
	}
	defer f.Close()

	var rows []Transaction
	hasTaxonomy := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			logging.Warn().Str("path", path).Int("line", line).Err(err).Msg("skipping malformed transaction")
			continue
		}
		qty, err := ParseQuantity(string(rec.Quantity))
		if err != nil {
			logging.Warn().Str("path", path).Int("line", line).Err(err).Msg("skipping transaction with bad quantity")
			continue
		}
		row := Transaction{
			CustomerID:  string(rec.CustomerID),
			Product:     rec.Product,
			SKU:         rec.SKU,
			Quantity:    qty,
			SalesAmount: rec.SalesAmount,
			Taxonomy:    rec.Taxonomy,
		}
		if rec.Taxonomy != "" {
			hasTaxonomy = true
		}
		if rec.Date != "" {
			if ts, err := ParseDate(rec.Date); err == nil {
				row.Date = ts
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return Table{}, fmt.Errorf("read file %s: %w", path, err)
	}

	if len(rows) == 0 {
		return Table{}, fmt.Errorf("no valid transactions found in %s: %w", path, internalerr.ErrInvalidInput)
	}
	if hasTaxonomy {
		return WithTaxonomy(rows), nil
	}
	return NewTable(rows), nil
}
