package model

import "time"

// IngestMetadata describes one ingestion batch.
type IngestMetadata struct {
	FileName         string    `json:"fileName"`
	ProcessedAt      time.Time `json:"processedAt"`
	TotalRecords     int       `json:"totalRecords"`
	ValidRecords     int       `json:"validRecords"`
	FilteredRecords  int       `json:"filteredRecords"` // valid rows outside the series allow-list
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

// MarketStats are accumulated in a single pass over all valid records.
type MarketStats struct {
	TotalTradedValue  float64 `json:"totalTradedValue"`
	TotalTradedVolume int64   `json:"totalTradedVolume"`
	Advancers         int     `json:"advancers"`
	Decliners         int     `json:"decliners"`
	Unchanged         int     `json:"unchanged"`
}

// Summary is the batch-level report built from ingestion output.
type Summary struct {
	TopGainers  []PriceBar  `json:"topGainers"`
	TopLosers   []PriceBar  `json:"topLosers"`
	MostTraded  []PriceBar  `json:"mostTraded"`
	MarketStats MarketStats `json:"marketStats"`
}

// IngestResult is the output of one ingestion run.
type IngestResult struct {
	Data     []PriceBar     `json:"data"`
	Metadata IngestMetadata `json:"metadata"`
	Summary  Summary        `json:"summary"`
}
