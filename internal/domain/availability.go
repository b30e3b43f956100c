package domain

import "time"

// Service names an external dependency tracked by the availability monitor.
type Service string

const (
	// ServiceRecommender is the personalization microservice.
	ServiceRecommender Service = "recommender"
	// ServiceNLP is the query interpretation microservice.
	ServiceNLP Service = "nlp"
)

// Availability is the last-known reachability of a service. Published as an
// immutable snapshot; never mutate a value obtained from the monitor.
type Availability struct {
	Healthy       bool      `json:"healthy"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// Checked reports whether at least one check has completed.
func (a Availability) Checked() bool { return !a.LastCheckedAt.IsZero() }
