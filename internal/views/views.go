package views

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"caixa/backend/internal/domain"
)

//go:embed templates/*.html
var files embed.FS

const layoutFile = "templates/layout.html"

// Renderer holds one parsed template set per page, each sharing the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func New(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}

	funcs := template.FuncMap{
		"brl":     formatBRL,
		"percent": formatPercent,
		"qty":     formatQuantity,
		"clock": func(t time.Time) string {
			return t.In(loc).Format("15:04")
		},
		"day": func(t time.Time) string {
			return t.In(loc).Format("02/01/2006")
		},
		"utcDay": func(t time.Time) string {
			return t.UTC().Format("02/01/2006")
		},
		"isoDay": func(t time.Time) string {
			return t.In(loc).Format("2006-01-02")
		},
		"json": func(v any) (template.JS, error) {
			payload, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(payload), nil
		},
	}

	pageFiles, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(files, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// formatBRL renders a value as Brazilian currency, e.g. "R$ 1.234,56".
func formatBRL(v any) string {
	d := toDecimal(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}
	return sign + "R$ " + grouped.String() + "," + frac
}

func formatPercent(v float64) string {
	return strings.Replace(toDecimal(v).StringFixed(1), ".", ",", 1) + "%"
}

// formatQuantity drops the decimals of whole quantities and keeps up to three otherwise.
func formatQuantity(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	d := decimal.NewFromFloat(v).Round(3)
	return strings.Replace(d.String(), ".", ",", 1)
}

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case domain.Money:
		return val.Decimal()
	case float64:
		return domain.Money(val).Decimal()
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	default:
		return decimal.Zero
	}
}
