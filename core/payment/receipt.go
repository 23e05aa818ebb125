package payment

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"
)

// Receipt rendering is pure formatting of an already-fetched Payment; no
// network calls, no state mutation. The output is offered as a plain-text
// download.

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": FormatAmount,
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
}).Parse(`{{.AppName}} — OFFICIAL PAYMENT RECEIPT
========================================

Receipt No   : {{.Payment.Reference}}
Date         : {{date .Payment.Date}}

Student      : {{.StudentName}}
Admission No : {{.Payment.AdmissionNumber}}

Amount Paid  : {{.Payment.Currency}} {{money .Payment.Amount}}
Method       : {{.Payment.Method}}
Status       : {{.Payment.Status}}
Payer Email  : {{.Payment.Email}}

Thank you for your payment.
This is a system generated receipt and requires no signature.
`))

type receiptData struct {
	AppName     string
	StudentName string
	Payment     Payment
}

// Receipt renders pmt as a plain-text receipt document.
func Receipt(appName, studentName string, pmt Payment) (string, error) {
	var b strings.Builder
	data := receiptData{AppName: appName, StudentName: studentName, Payment: pmt}
	if err := receiptTmpl.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "rendering receipt")
	}
	return b.String(), nil
}

// FormatAmount renders a whole-unit amount with thousands separators, e.g. 30000 -> "30,000.00".
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	out := b.String() + ".00"
	if neg {
		return "-" + out
	}
	return out
}
