package shelfrank

import (
	"github.com/kailas-cloud/shelfrank/internal/domain"
	healthuc "github.com/kailas-cloud/shelfrank/internal/usecase/health"
)

type (
	// Item is a catalog product row.
	Item = domain.CatalogItem
	// RankedItem is a catalog row with its upstream score.
	RankedItem = domain.RankedCatalogItem
	// SearchResult is one interpreted query with its matches.
	SearchResult = domain.SearchResult
	// SearchMatch is a matched product with score and match reasons.
	SearchMatch      = domain.SearchMatch
	Interpretation   = domain.Interpretation
	PriceFilter      = domain.PriceFilter
	Correction       = domain.Correction
	CorrectionChange = domain.CorrectionChange
	// Service names an upstream dependency.
	Service = domain.Service
	// Availability is the last-known state of a Service.
	Availability = domain.Availability
	// HealthReport is the readiness summary returned by Client.Health.
	HealthReport = healthuc.Report
)

// Upstream services tracked by the health monitor.
const (
	ServiceRecommender = domain.ServiceRecommender
	ServiceNLP         = domain.ServiceNLP
)

// Health statuses.
const (
	HealthOK       = healthuc.Healthy
	HealthDegraded = healthuc.Degraded
)
