package model

// Strength is the discretized recommendation bucket.
type Strength string

const (
	StrongBuy  Strength = "StrongBuy"
	Buy        Strength = "Buy"
	Hold       Strength = "Hold"
	Sell       Strength = "Sell"
	StrongSell Strength = "StrongSell"
)

// Sentiment carries externally supplied sub-scores in [0,1]. Nil fields are neutral.
type Sentiment struct {
	Social  *float64 `json:"social,omitempty"`
	News    *float64 `json:"news,omitempty"`
	Analyst *float64 `json:"analyst,omitempty"`
}

// Recommendation is the human-facing verdict for one symbol.
type Recommendation struct {
	Strength   Strength `json:"strength"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// ScoreBreakdown is created fresh on each ranking run.
type ScoreBreakdown struct {
	Symbol           string         `json:"symbol"`
	TechnicalScore   float64        `json:"technicalScore"`
	FundamentalScore float64        `json:"fundamentalScore"`
	SentimentScore   float64        `json:"sentimentScore"`
	FinalScore       float64        `json:"finalScore"`
	Rank             int            `json:"rank"`
	Recommendation   Recommendation `json:"recommendation"`
	Error            string         `json:"error,omitempty"`
}
