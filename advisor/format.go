package advisor

import (
	"fmt"
	"strings"

	"privacy-advisor/assessment"

	"github.com/charmbracelet/lipgloss"
)

// Classes de veredito usadas na apresentação.
const (
	ClassRecommended = "recommended"
	ClassCaution     = "caution"
	ClassAvoid       = "avoid"
)

// NormalizeVerdict classifica o veredito de forma tolerante. Qualquer coisa
// que não seja claramente "recommend" ou "avoid" vira caution.
func NormalizeVerdict(v assessment.Verdict) string {
	var b strings.Builder
	for _, c := range strings.ToLower(string(v)) {
		if c >= 'a' && c <= 'z' {
			b.WriteRune(c)
		}
	}
	lower := b.String()
	switch {
	case strings.Contains(lower, "recommend"):
		return ClassRecommended
	case strings.Contains(lower, "avoid"):
		return ClassAvoid
	default:
		return ClassCaution
	}
}

// RatingClass classifica o valor de um fator em good, moderate ou bad.
func RatingClass(value string) string {
	lower := strings.ToLower(value)
	cls := "moderate"
	for _, w := range []string{"low", "clear", "strong", "clean", "minimal", "none"} {
		if strings.Contains(lower, w) {
			cls = "good"
			break
		}
	}
	for _, w := range []string{"extensive", "poor", "weak", "high"} {
		if strings.Contains(lower, w) {
			cls = "bad"
			break
		}
	}
	return cls
}

// FormatText monta o resumo em texto puro (o "copiar" da extensão).
func FormatText(domain string, rec assessment.Record) string {
	lines := []string{
		"Privacy Risk Advisor — " + domain,
		"Verdict: " + string(rec.Verdict),
		"Reason: " + rec.Reason,
		"Risk Level: " + string(rec.RiskLevel),
		"",
		"What You're Agreeing To:",
	}
	lines = appendBullets(lines, rec.AgreeingTo)
	lines = append(lines, "", "Your Rights:")
	lines = appendBullets(lines, rec.YourRights)
	if len(rec.IfYouStay) > 0 {
		lines = append(lines, "", "If You Stay:")
		lines = appendBullets(lines, rec.IfYouStay)
	}
	lines = append(lines, "", "⚠️ This summary is not legal advice.")
	return strings.Join(lines, "\n")
}

func appendBullets(lines, items []string) []string {
	for _, b := range items {
		lines = append(lines, "  • "+b)
	}
	return lines
}

var (
	verdictColors = map[string]lipgloss.Color{
		ClassRecommended: lipgloss.Color("#22C55E"),
		ClassCaution:     lipgloss.Color("#EAB308"),
		ClassAvoid:       lipgloss.Color("#EF4444"),
	}
	verdictLabels = map[string]string{
		ClassRecommended: "✅ Recommended",
		ClassCaution:     "⚠️ Use with Caution",
		ClassAvoid:       "🚫 Avoid",
	}
	ratingColors = map[string]lipgloss.Color{
		"good":     lipgloss.Color("#22C55E"),
		"moderate": lipgloss.Color("#EAB308"),
		"bad":      lipgloss.Color("#EF4444"),
	}

	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// Badge renderiza o veredito com a cor da classe.
func Badge(v assessment.Verdict) string {
	cls := NormalizeVerdict(v)
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(verdictColors[cls]).
		Padding(0, 1).
		Render(verdictLabels[cls])
}

var factorLabels = []struct {
	label string
	value func(assessment.Factors) string
}{
	{"Data collection", func(f assessment.Factors) string { return string(f.DataCollection) }},
	{"Consent clarity", func(f assessment.Factors) string { return string(f.ConsentClarity) }},
	{"Opt-out effectiveness", func(f assessment.Factors) string { return string(f.OptOutEffectiveness) }},
	{"Track record", func(f assessment.Factors) string { return string(f.TrackRecord) }},
	{"Third-party / AI sharing", func(f assessment.Factors) string { return string(f.ThirdPartySharing) }},
}

// Render monta o relatório colorido para o terminal.
func Render(res Result) string {
	rec := res.Record
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", Badge(rec.Verdict), res.Domain)
	if rec.Reason != "" {
		b.WriteString(rec.Reason + "\n")
	}
	if rec.RiskLevel != "" {
		fmt.Fprintf(&b, "Risk: %s\n", rec.RiskLevel)
	}

	b.WriteString("\n" + headingStyle.Render("Factors") + "\n")
	for _, f := range factorLabels {
		v := f.value(rec.Factors)
		if v == "" {
			v = "—"
		}
		style := lipgloss.NewStyle().Foreground(ratingColors[RatingClass(v)])
		fmt.Fprintf(&b, "  %-26s %s\n", f.label, style.Render(v))
	}
	keyRisk := rec.Factors.KeyRisk
	if keyRisk == "" {
		keyRisk = "—"
	}
	fmt.Fprintf(&b, "  %-26s %s\n", "Key risk", lipgloss.NewStyle().Bold(true).Render(keyRisk))

	section(&b, "What you're agreeing to", rec.AgreeingTo)
	section(&b, "Your rights", rec.YourRights)
	section(&b, "Key limits", rec.KeyLimits)
	if rec.RealCost != nil {
		b.WriteString("\n" + headingStyle.Render("The real cost") + "\n  " + *rec.RealCost + "\n")
	}
	section(&b, "If you stay", rec.IfYouStay)
	if len(rec.IfYouLeave) > 0 {
		b.WriteString("\n" + headingStyle.Render("If you leave") + "\n")
		for _, o := range rec.IfYouLeave {
			fmt.Fprintf(&b, "  %-12s %s\n", o.Option, o.Description)
		}
	}

	if res.FromCache {
		b.WriteString("\n" + mutedStyle.Render("Cached result from "+res.FetchedAt.Local().Format("2006-01-02")) + "\n")
	}
	return b.String()
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + headingStyle.Render(title) + "\n")
	for _, it := range items {
		b.WriteString("  • " + it + "\n")
	}
}
