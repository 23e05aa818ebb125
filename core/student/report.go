package student

import (
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core/payment"
)

// FeesReport renders the institution-wide fee standing as a plain-text
// document offered as a download. Pure formatting, no state mutation.

var reportTmpl = template.Must(template.New("feesReport").Funcs(template.FuncMap{
	"money": payment.FormatAmount,
	"outstanding": func(st Student) string {
		return payment.FormatAmount(st.TotalFees - st.PaidAmount)
	},
}).Parse(`{{.AppName}} — FEE COLLECTION REPORT
Generated: {{.GeneratedAt}}
================================================================

{{range .Students}}{{printf "%-28s" .Name}} {{printf "%-14s" .AdmissionNumber}} {{printf "%-8s" .Status}} Paid: {{$.Currency}} {{money .PaidAmount}} / {{$.Currency}} {{money .TotalFees}} (Due: {{$.Currency}} {{outstanding .}})
{{end}}
----------------------------------------------------------------
Students: {{.Summary.StudentCount}} | Collected: {{.Currency}} {{money .Summary.TotalCollected}} | Outstanding: {{.Currency}} {{money .Summary.TotalOutstanding}}
`))

type reportData struct {
	AppName     string
	Currency    string
	GeneratedAt string
	Students    []Student
	Summary     FeesSummary
}

func FeesReport(appName, currency string, students []Student) (string, error) {
	var sum FeesSummary
	sum.StudentCount = len(students)
	for _, st := range students {
		sum.TotalCollected += st.PaidAmount
		sum.TotalOutstanding += st.TotalFees - st.PaidAmount
	}

	var b strings.Builder
	data := reportData{
		AppName:     appName,
		Currency:    currency,
		GeneratedAt: time.Now().UTC().Format("02 Jan 2006 15:04 MST"),
		Students:    students,
		Summary:     sum,
	}
	if err := reportTmpl.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "rendering fees report")
	}
	return b.String(), nil
}
