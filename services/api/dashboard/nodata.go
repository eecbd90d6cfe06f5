package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
)

var noDataTemplate = template.Must(template.New("nodata").Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>Keine Daten verfügbar – {{.StationID}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#f4f9fc;color:#2c3e50;margin:0;padding:48px 16px}
.no-data{max-width:560px;margin:0 auto;padding:24px 28px;background:#fff;border-radius:8px;border-left:4px solid #1b6ca8}
</style>
</head>
<body>
<div class="no-data">
<h1>Keine Daten verfügbar</h1>
<p>Für die Messstelle <strong>{{.StationID}}</strong> liegen im Zeitraum {{.Start}} bis {{.End}} keine validierten Messwerte vor.</p>
<p>Bitte wählen Sie einen anderen Zeitraum oder eine andere Messstelle.</p>
</div>
</body>
</html>
`))

// RenderNoData renders the informational page shown instead of a dashboard.
func RenderNoData(stationID string, period DateRange) (string, error) {
	var buf bytes.Buffer
	err := noDataTemplate.Execute(&buf, struct {
		StationID, Start, End string
	}{stationID, period.Start(), period.End()})
	if err != nil {
		return "", fmt.Errorf("render no-data page: %w", err)
	}
	return buf.String(), nil
}
