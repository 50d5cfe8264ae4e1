package insight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// InfoKind selects a headline figure.
type InfoKind string

const (
	InfoTransactions   InfoKind = "no_transaction"
	InfoCustomers      InfoKind = "no_unique_customers"
	InfoTotalSales     InfoKind = "total_sales"
	InfoAverageSales   InfoKind = "average_sales"
	InfoUniqueProducts InfoKind = "unique_products"
)

// InfoKinds lists the headline figures in display order.
var InfoKinds = []InfoKind{InfoTransactions, InfoCustomers, InfoTotalSales, InfoAverageSales, InfoUniqueProducts}

// ParseInfoKind validates a headline figure name.
func ParseInfoKind(s string) (InfoKind, error) {
	k := InfoKind(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range InfoKinds {
		if k == valid {
			return k, nil
		}
	}
	return "", fmt.Errorf("'%s' is not a valid value. use any of : no_transaction, no_unique_customers, total_sales, average_sales, unique_products: %w", s, internalerr.ErrInvalidArgument)
}

// Info formats a headline figure with thousands separators. Sales figures
// are rounded to two decimal places.
func Info(t txn.Table, kind InfoKind) (string, error) {
	return Analyze(t).Snapshot().Info(kind)
}

// Info formats a headline figure of the snapshot.
func (s Stats) Info(kind InfoKind) (string, error) {
	kind, err := ParseInfoKind(string(kind))
	if err != nil {
		return "", err
	}
	switch kind {
	case InfoTransactions:
		return groupThousands(strconv.Itoa(s.Rows)), nil
	case InfoCustomers:
		return groupThousands(strconv.Itoa(s.Customers)), nil
	case InfoTotalSales:
		return formatAmount(s.Sales), nil
	case InfoAverageSales:
		if s.Rows == 0 {
			return "nan", nil
		}
		return formatAmount(s.Sales.Div(decimal.NewFromInt(int64(s.Rows)))), nil
	default:
		return groupThousands(strconv.Itoa(len(s.Products))), nil
	}
}

// formatAmount rounds to cents and always shows a fractional part.
func formatAmount(d decimal.Decimal) string {
	s := d.Round(2).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return groupThousands(s)
}

// groupThousands inserts commas into the integer part of a formatted number.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		return sign + b.String() + "." + frac
	}
	return sign + b.String()
}
