package export

import (
	"bytes"
	"html/template"
	"time"

	"casedesk/api/internal/store"
)

// RegisterData holds data for the printable case register template.
type RegisterData struct {
	Title       string
	GeneratedAt time.Time
	Cases       []store.Case
}

var registerTemplate = template.Must(template.New("register").Funcs(template.FuncMap{
	"orEmpty":  strOrEmpty,
	"intCell":  intOrEmpty,
	"amtCell":  floatOrEmpty,
	"fmtStamp": func(t time.Time) string { return t.Format("Jan 2, 2006 15:04 MST") },
}).Parse(registerTemplateHTML))

// RenderRegisterHTML renders the printable register used for PDF export.
func RenderRegisterHTML(data RegisterData) (string, error) {
	var buf bytes.Buffer
	if err := registerTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const registerTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; font-size: 10px; margin: 1rem; }
    h1 { font-size: 16px; border-bottom: 2px solid #1a3c6e; padding-bottom: 0.4rem; }
    .meta { color: #666; font-size: 9px; margin-bottom: 1rem; }
    table { width: 100%; border-collapse: collapse; }
    th, td { border: 1px solid #ccc; padding: 4px 6px; text-align: left; vertical-align: top; }
    th { background: #f0f3f8; }
    td.num { text-align: right; white-space: nowrap; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">Generated {{fmtStamp .GeneratedAt}} &middot; {{len .Cases}} cases</div>
  <table>
    <thead>
      <tr>
        <th>Sr. No.</th><th>Parties</th><th>Forum</th><th>Particular</th>
        <th>Start Date</th><th>Last Hearing</th><th>Next Date</th>
        <th>Amount</th><th>Treatment / Resolution</th><th>Remarks</th><th>Status</th>
      </tr>
    </thead>
    <tbody>
      {{range .Cases}}
      <tr>
        <td class="num">{{intCell .SrNo}}</td>
        <td>{{.Parties}}</td>
        <td>{{.Forum}}</td>
        <td>{{orEmpty .Particular}}</td>
        <td>{{orEmpty .StartDate}}</td>
        <td>{{orEmpty .LastHearingDate}}</td>
        <td>{{orEmpty .NextHearingDate}}</td>
        <td class="num">{{amtCell .AmountInvolved}}</td>
        <td>{{orEmpty .TreatmentResolution}}</td>
        <td>{{orEmpty .Remarks}}</td>
        <td>{{.Status}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>`
