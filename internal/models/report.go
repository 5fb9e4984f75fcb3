package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RankedTotal is one row of a per-staff or per-location ranking.
type RankedTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ReportSnapshot is the aggregate over one report window. It is derived on
// demand and never persisted; an editable preview buffer may diverge from
// it until explicitly committed.
type ReportSnapshot struct {
	Title         string               `json:"title"`
	RangeStart    time.Time            `json:"range_start"`
	RangeEnd      time.Time            `json:"range_end"`
	TotalSpend    decimal.Decimal      `json:"total_spend"`
	TotalRequests int                  `json:"total_requests"`
	PendingCount  int                  `json:"pending_count"`
	TopStaff      []RankedTotal        `json:"top_staff"`
	TopLocation   []RankedTotal        `json:"top_location"`
	HighestSingle *ReimbursementRecord `json:"highest_single,omitempty"`
	UnknownCount  int                  `json:"unknown_count"`
}

// ScheduleEntry is one block of the synthesized end-of-day activity
// schedule. Derived per render from a day's records, never persisted.
type ScheduleEntry struct {
	TimeIn     time.Time       `json:"time_in"`
	TimeOut    time.Time       `json:"time_out"`
	Activity   string          `json:"activity"`
	ClientName string          `json:"client_name"`
	StaffName  string          `json:"staff_name"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	IsIdle     bool            `json:"is_idle"`
}
