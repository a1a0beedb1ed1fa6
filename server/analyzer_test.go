package server

import (
	"context"

	"privacy-advisor/assessment"
	"privacy-advisor/relay"
)

// analyzerFunc executa fn e devolve um registro fixo.
type analyzerFunc func()

func (f analyzerFunc) Analyze(_ context.Context, in relay.Input, _ string) (assessment.Record, error) {
	f()
	return assessment.Record{Verdict: assessment.VerdictCaution}.Normalize(), nil
}
