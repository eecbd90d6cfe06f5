package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
)

// StatusAlertMarker is the class of the element the selector is placed before.
const StatusAlertMarker = "status-alert"

// SelectorOptions parameterises the time-range selector widget.
type SelectorOptions struct {
	StationID string
	Range     DateRange
	// StationsEndpoint lists stations with their available date bounds.
	StationsEndpoint string
	// DashboardBase is the prefix of /<station>/flexible dashboard URLs.
	DashboardBase string
}

var (
	headClose = regexp.MustCompile(`(?i)</head\s*>`)
	bodyOpen  = regexp.MustCompile(`(?i)<body[^>]*>`)
	// first start tag whose class list carries the marker
	alertTag  = regexp.MustCompile(`<[A-Za-z][^>]*\bclass\s*=\s*["'][^"']*\b` + StatusAlertMarker + `\b[^>]*>`)
)

const selectorCSS = `<style>
.time-range-selector{margin:16px 0;padding:16px 20px;border:1px solid #cfe0ea;border-radius:8px;background:#f4f9fc;font-family:inherit}
.time-range-selector h3{margin:0 0 12px;font-size:1.05rem;color:#1b4f72}
.time-range-selector .trs-row{display:flex;flex-wrap:wrap;gap:8px 12px;align-items:center;margin-bottom:8px}
.time-range-selector label{font-weight:600;color:#34495e}
.time-range-selector select,.time-range-selector input{padding:4px 8px;border:1px solid #b0c4d4;border-radius:4px}
.time-range-selector button{padding:6px 14px;border:0;border-radius:4px;background:#1b6ca8;color:#fff;cursor:pointer}
.time-range-selector button:hover{background:#154f7a}
.time-range-selector .trs-hint{margin:4px 0 0;min-height:1.2em;font-size:.9rem;color:#b03a2e}
</style>
`

var selectorTemplate = template.Must(template.New("selector").Parse(`<div class="time-range-selector" id="time-range-selector">
  <h3>Zeitraum wählen</h3>
  <div class="trs-row">
    <label for="trs-station">Messstelle</label>
    <select id="trs-station"><option value="{{.StationID}}" selected>{{.StationID}}</option></select>
  </div>
  <div class="trs-row">
    <label for="trs-start">Von</label>
    <input type="date" id="trs-start" name="start" value="{{.Start}}">
    <label for="trs-end">Bis</label>
    <input type="date" id="trs-end" name="end" value="{{.End}}">
    <button type="button" id="trs-update">Aktualisieren</button>
  </div>
  <p class="trs-hint" id="trs-hint"></p>
</div>
<script>
(function () {
  var stationsURL = {{.StationsEndpoint}};
  var dashboardBase = {{.DashboardBase}};
  var current = {{.StationID}};
  var bounds = {};
  var select = document.getElementById("trs-station");
  var start = document.getElementById("trs-start");
  var end = document.getElementById("trs-end");
  var hint = document.getElementById("trs-hint");

  function applyBounds() {
    var b = bounds[select.value];
    if (!b) { return; }
    start.min = b.min; start.max = b.max;
    end.min = b.min; end.max = b.max;
    hint.textContent = "Daten verfügbar von " + b.min + " bis " + b.max;
  }

  fetch(stationsURL).then(function (resp) {
    if (!resp.ok) { throw new Error(resp.status); }
    return resp.json();
  }).then(function (body) {
    var stations = body.data || [];
    if (!stations.length) { return; }
    select.innerHTML = "";
    stations.forEach(function (s) {
      bounds[s.code] = { min: s.min_date, max: s.max_date };
      var opt = document.createElement("option");
      opt.value = s.code;
      opt.textContent = (s.name || s.code) + " (" + s.day_count + " Tage)";
      if (s.code === current) { opt.selected = true; }
      select.appendChild(opt);
    });
    applyBounds();
  }).catch(function () {
    hint.textContent = "Stationsliste konnte nicht geladen werden.";
  });

  select.addEventListener("change", applyBounds);

  document.getElementById("trs-update").addEventListener("click", function () {
    var from = start.value, to = end.value;
    if (!from || !to) { hint.textContent = "Bitte Start- und Enddatum wählen."; return; }
    if (from > to) { hint.textContent = "Das Startdatum muss vor dem Enddatum liegen."; return; }
    var b = bounds[select.value];
    if (b && (from < b.min || to > b.max)) {
      hint.textContent = "Zeitraum muss zwischen " + b.min + " und " + b.max + " liegen.";
      return;
    }
    window.location.href = dashboardBase + "/" + encodeURIComponent(select.value) +
      "/flexible?start=" + encodeURIComponent(from) + "&end=" + encodeURIComponent(to);
  });
})();
</script>
`))

// RenderSelector renders the selector block on its own.
func RenderSelector(opts SelectorOptions) (string, error) {
	var buf bytes.Buffer
	err := selectorTemplate.Execute(&buf, struct {
		StationID        string
		Start            string
		End              string
		StationsEndpoint string
		DashboardBase    string
	}{opts.StationID, opts.Range.Start(), opts.Range.End(), opts.StationsEndpoint, opts.DashboardBase})
	if err != nil {
		return "", fmt.Errorf("render time range selector: %w", err)
	}
	return buf.String(), nil
}

// InjectRangeSelector adds the selector CSS before </head> and the widget
// before the first status-alert element. Without those anchors the CSS goes
// with the widget and the widget goes right after <body>, or first.
func InjectRangeSelector(html string, opts SelectorOptions) (string, error) {
	selector, err := RenderSelector(opts)
	if err != nil {
		return "", err
	}

	if loc := headClose.FindStringIndex(html); loc != nil {
		html = html[:loc[0]] + selectorCSS + html[loc[0]:]
	} else {
		selector = selectorCSS + selector
	}

	if loc := alertTag.FindStringIndex(html); loc != nil {
		return html[:loc[0]] + selector + html[loc[0]:], nil
	}
	if loc := bodyOpen.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + selector + html[loc[1]:], nil
	}
	return selector + html, nil
}
