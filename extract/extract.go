// Package extract transforma a resposta textual do motor de raciocínio em um
// assessment.Record validado.
//
// O motor é instruído a responder só com JSON, mas às vezes embrulha o objeto
// em prosa ou em bloco markdown. As estratégias abaixo são tentadas em
// ordem e a primeira que produz um objeto JSON vence:
//
//  1. o texto inteiro
//  2. o conteúdo do primeiro bloco ``` (com ou sem a tag json)
//  3. o trecho entre o primeiro '{' e o último '}'
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"privacy-advisor/assessment"
)

var (
	ErrNoStructuredContent = errors.New("no structured content in reply")
	ErrIncompleteRecord    = errors.New("record is missing verdict or factors")
)

type strategy struct {
	name string
	find func(raw string) (string, bool)
}

var strategies = []strategy{
	{name: "direct", find: direct},
	{name: "fenced", find: fenced},
	{name: "braces", find: braces},
}

var fenceRe = regexp.MustCompile("(?s)```(?i:json)?\\s*(.*?)```")

func direct(raw string) (string, bool) { return raw, true }

func fenced(raw string) (string, bool) {
	m := fenceRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func braces(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// Extract aplica as estratégias em ordem. Se nenhuma produz JSON válido,
// retorna ErrNoStructuredContent. Se o JSON não traz verdict e factors,
// retorna ErrIncompleteRecord.
func Extract(raw string) (assessment.Record, error) {
	rec, _, err := ExtractWith(raw)
	return rec, err
}

// ExtractWith é como Extract mas também informa qual estratégia venceu
// ("direct", "fenced" ou "braces"); útil para logs.
func ExtractWith(raw string) (assessment.Record, string, error) {
	for _, s := range strategies {
		candidate, ok := s.find(raw)
		if !ok {
			continue
		}
		rec, fields, ok := parseObject(candidate)
		if !ok {
			continue
		}
		if !hasVerdict(fields["verdict"]) || !hasFactors(fields["factors"]) {
			return assessment.Record{}, s.name, ErrIncompleteRecord
		}
		return rec.Normalize(), s.name, nil
	}
	return assessment.Record{}, "", ErrNoStructuredContent
}

// parseObject aceita qualquer objeto JSON. Só verdict e factors são
// obrigatórios; campos opcionais com tipo errado são descartados um a um.
func parseObject(candidate string) (assessment.Record, map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil || fields == nil {
		return assessment.Record{}, nil, false
	}

	var rec assessment.Record
	var verdict string
	if decode(fields["verdict"], &verdict) {
		rec.Verdict = assessment.Verdict(verdict)
	}
	var reason, risk string
	if decode(fields["reason"], &reason) {
		rec.Reason = reason
	}
	if decode(fields["riskLevel"], &risk) {
		rec.RiskLevel = assessment.RiskLevel(risk)
	}
	rec.Factors = parseFactors(fields["factors"])
	rec.AgreeingTo = stringList(fields["agreeingTo"])
	rec.YourRights = stringList(fields["yourRights"])
	rec.KeyLimits = stringList(fields["keyLimits"])
	rec.IfYouStay = stringList(fields["ifYouStay"])
	rec.IfYouLeave = exitOptions(fields["ifYouLeave"])

	var cost string
	if decode(fields["realCost"], &cost) {
		rec.RealCost = &cost
	}
	return rec, fields, true
}

// decode devolve false para campo ausente, null ou de outro tipo.
func decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func parseFactors(raw json.RawMessage) assessment.Factors {
	var m map[string]json.RawMessage
	if !decode(raw, &m) {
		return assessment.Factors{}
	}
	str := func(k string) string {
		var v string
		decode(m[k], &v)
		return v
	}
	return assessment.Factors{
		DataCollection:      assessment.Rating(str("dataCollection")),
		ConsentClarity:      assessment.Rating(str("consentClarity")),
		OptOutEffectiveness: assessment.Rating(str("optOutEffectiveness")),
		TrackRecord:         assessment.Rating(str("trackRecord")),
		ThirdPartySharing:   assessment.Rating(str("thirdPartySharing")),
		KeyRisk:             str("keyRisk"),
	}
}

// stringList descarta a lista inteira se não for array, e itens que não
// sejam string.
func stringList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if !decode(raw, &items) {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if decode(it, &s) {
			out = append(out, s)
		}
	}
	return out
}

func exitOptions(raw json.RawMessage) []assessment.ExitOption {
	var items []json.RawMessage
	if !decode(raw, &items) {
		return nil
	}
	out := make([]assessment.ExitOption, 0, len(items))
	for _, it := range items {
		var m map[string]json.RawMessage
		if !decode(it, &m) {
			continue
		}
		var opt assessment.ExitOption
		decode(m["option"], &opt.Option)
		decode(m["description"], &opt.Description)
		if opt.Option == "" && opt.Description == "" {
			continue
		}
		out = append(out, opt)
	}
	return out
}

func hasVerdict(raw json.RawMessage) bool {
	var v string
	if !decode(raw, &v) {
		return false
	}
	return strings.TrimSpace(v) != ""
}

func hasFactors(raw json.RawMessage) bool {
	var f map[string]json.RawMessage
	if !decode(raw, &f) {
		return false
	}
	return len(f) > 0
}
