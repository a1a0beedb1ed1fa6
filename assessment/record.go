package assessment

// Verdict é a recomendação final.
type Verdict string

const (
	VerdictRecommended Verdict = "Recommended"
	VerdictCaution     Verdict = "Use with caution"
	VerdictAvoid       Verdict = "Avoid"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Rating é o valor de um fator. Cada fator usa sua própria escala:
//
//	dataCollection:      Low | Moderate | Extensive
//	consentClarity:      Clear | Mixed | Poor
//	optOutEffectiveness: Strong | Limited | Weak
//	trackRecord:         Clean | Mixed | Poor
//	thirdPartySharing:   Minimal | Moderate | Extensive
type Rating string

const (
	RatingLow       Rating = "Low"
	RatingModerate  Rating = "Moderate"
	RatingExtensive Rating = "Extensive"
	RatingClear     Rating = "Clear"
	RatingMixed     Rating = "Mixed"
	RatingPoor      Rating = "Poor"
	RatingStrong    Rating = "Strong"
	RatingLimited   Rating = "Limited"
	RatingWeak      Rating = "Weak"
	RatingClean     Rating = "Clean"
	RatingMinimal   Rating = "Minimal"
)

// NoKeyRisk é o valor literal usado quando não há risco incomum.
const NoKeyRisk = "None"

type Factors struct {
	DataCollection      Rating `json:"dataCollection"`
	ConsentClarity      Rating `json:"consentClarity"`
	OptOutEffectiveness Rating `json:"optOutEffectiveness"`
	TrackRecord         Rating `json:"trackRecord"`
	ThirdPartySharing   Rating `json:"thirdPartySharing"`
	KeyRisk             string `json:"keyRisk"`
}

const (
	ExitFull    = "Full exit"
	ExitPartial = "Partial"
	ExitPassive = "Passive"
)

type ExitOption struct {
	Option      string `json:"option"`
	Description string `json:"description"`
}

// Record é a avaliação validada.
//
// Verdict e Factors estão sempre presentes. Listas ausentes são
// representadas como lista vazia (serializam como []), e RealCost ausente
// é nil (serializa como null). Um Record não deve ser alterado depois de
// produzido; quem precisa guardar uma cópia usa Clone.
type Record struct {
	Verdict    Verdict      `json:"verdict"`
	Reason     string       `json:"reason"`
	RiskLevel  RiskLevel    `json:"riskLevel"`
	Factors    Factors      `json:"factors"`
	AgreeingTo []string     `json:"agreeingTo"`
	YourRights []string     `json:"yourRights"`
	KeyLimits  []string     `json:"keyLimits"`
	RealCost   *string      `json:"realCost"`
	IfYouStay  []string     `json:"ifYouStay"`
	IfYouLeave []ExitOption `json:"ifYouLeave"`
}

// Normalize aplica as regras de ausência descritas em Record.
func (r Record) Normalize() Record {
	r.AgreeingTo = nonNil(r.AgreeingTo)
	r.YourRights = nonNil(r.YourRights)
	r.KeyLimits = nonNil(r.KeyLimits)
	r.IfYouStay = nonNil(r.IfYouStay)
	if r.IfYouLeave == nil {
		r.IfYouLeave = []ExitOption{}
	}
	if r.RealCost != nil && *r.RealCost == "" {
		r.RealCost = nil
	}
	return r
}

// Clone devolve uma cópia profunda.
func (r Record) Clone() Record {
	out := r
	out.AgreeingTo = append([]string(nil), r.AgreeingTo...)
	out.YourRights = append([]string(nil), r.YourRights...)
	out.KeyLimits = append([]string(nil), r.KeyLimits...)
	out.IfYouStay = append([]string(nil), r.IfYouStay...)
	out.IfYouLeave = append([]ExitOption(nil), r.IfYouLeave...)
	if r.RealCost != nil {
		v := *r.RealCost
		out.RealCost = &v
	}
	return out.Normalize()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
