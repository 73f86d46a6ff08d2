package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"simulation-server/internal/models"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "layout.html"

// Имена шаблонов писем
const (
	TemplateOTP                   = "otp.html"
	TemplateWelcome               = "welcome.html"
	TemplateSimulationReport      = "simulation_report.html"
	TemplateSubscriptionActivated = "subscription_activated.html"
)

// View - данные, доступные шаблону. Data зависит от конкретного письма.
type View struct {
	Subject     string
	Brand       string
	PlatformURL string
	Year        int
	Data        any
}

// OTPData - данные письма с одноразовым кодом.
type OTPData struct {
	Name          string
	Code          string
	Purpose       string
	ExpiryMinutes int
}

// WelcomeData - данные приветственного письма.
type WelcomeData struct {
	Name            string
	PlatformURL     string
	VerificationURL string
}

// Renderer собирает HTML писем: каждый шаблон подставляется в общий layout.
type Renderer struct {
	templates   map[string]*template.Template
	brand       string
	platformURL string
	logger      *zap.Logger
}

var templateFuncs = template.FuncMap{
	"score": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("January 2, 2006") },
}

// NewRenderer разбирает встроенные шаблоны. Ошибка разбора означает поврежденную сборку.
func NewRenderer(brand, platformURL string, logger *zap.Logger) (*Renderer, error) {
	layout, err := template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(templateFS, "templates/"+layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list email templates: %w", err)
	}

	r := &Renderer{
		templates:   make(map[string]*template.Template, len(files)),
		brand:       brand,
		platformURL: strings.TrimSuffix(platformURL, "/"),
		logger:      logger.Named("EmailRenderer"),
	}
	for _, file := range files {
		name := path.Base(file)
		if name == layoutTemplate {
			continue
		}
		// Каждое письмо определяет свой "content", поэтому layout клонируется на шаблон
		tmpl, err := template.Must(layout.Clone()).ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	r.logger.Debug("Email templates loaded", zap.Int("count", len(r.templates)))
	return r, nil
}

// Render возвращает HTML письма.
func (r *Renderer) Render(name, subject string, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	view := View{
		Subject:     subject,
		Brand:       r.brand,
		PlatformURL: r.platformURL,
		Year:        time.Now().Year(),
		Data:        data,
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		r.logger.Error("Failed to render email template", zap.String("template", name), zap.Error(err))
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// ReportData - данные письма с итогами симуляции.
type ReportData struct {
	Name          string
	ScenarioID    string
	ScenarioTitle string
	Decisions     int
	Score         models.Score
	CoachSummary  string
}

// SubscriptionData - данные письма об активации подписки.
type SubscriptionData struct {
	Name      string
	PlanCode  string
	Reference string
	EndsAt    time.Time
}
