package customer

import (
	"fmt"
	"strings"
)

// Dataset column names, matched against the header row.
const (
	ColumnCustomerID     = "customerID"
	ColumnTenure         = "tenure"
	ColumnMonthlyCharges = "MonthlyCharges"
	ColumnTotalCharges   = "TotalCharges"
	ColumnChurn          = "Churn"
)

var coreColumns = []string{
	ColumnCustomerID,
	ColumnTenure,
	ColumnMonthlyCharges,
	ColumnTotalCharges,
	ColumnChurn,
}

// Field is a dataset column outside the core set, kept in header order.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one customer row. Values are display strings exactly as they
// appear in the source; nothing is parsed as a number.
type Record struct {
	CustomerID     string  `json:"customer_id"`
	TenureMonths   string  `json:"tenure_months"`
	MonthlyCharges string  `json:"monthly_charges"`
	TotalCharges   string  `json:"total_charges"`
	ChurnStatus    string  `json:"churn_status"`
	Extra          []Field `json:"extra,omitempty"`
}

// Get returns a column value by header name, core or extra.
func (r Record) Get(column string) (string, bool) {
	switch column {
	case ColumnCustomerID:
		return r.CustomerID, true
	case ColumnTenure:
		return r.TenureMonths, true
	case ColumnMonthlyCharges:
		return r.MonthlyCharges, true
	case ColumnTotalCharges:
		return r.TotalCharges, true
	case ColumnChurn:
		return r.ChurnStatus, true
	}
	for _, f := range r.Extra {
		if strings.EqualFold(f.Name, column) {
			return f.Value, true
		}
	}
	return "", false
}

// Summary renders the record as the short text handed back to the agent.
func (r Record) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer %s: tenure %s months, monthly charges %s, total charges %s, churn status %s.",
		r.CustomerID,
		orUnknown(r.TenureMonths),
		orUnknown(r.MonthlyCharges),
		orUnknown(r.TotalCharges),
		orUnknown(r.ChurnStatus),
	)
	if len(r.Extra) > 0 {
		b.WriteString(" Account details:")
		for i, f := range r.Extra {
			if i > 0 {
				b.WriteString(";")
			}
			fmt.Fprintf(&b, " %s=%s", f.Name, orUnknown(f.Value))
		}
		b.WriteString(".")
	}
	return b.String()
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}

// NormalizeID folds a customer id into its lookup key.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
