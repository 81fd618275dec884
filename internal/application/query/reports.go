package query

import (
	"context"
	"sort"

	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// STAFF REPORTS
// Popularity, postings grouped by company, and postings by free capacity.
// All reports cover every posting regardless of status or visibility. With a
// ReportCache configured a report may be up to ReportTTL old; the staff check
// always runs first.
// ══════════════════════════════════════════════════════════════════════════════

// ReportKind selects a report.
type ReportKind string

const (
	ReportPopularity ReportKind = "popularity"
	ReportCompanies  ReportKind = "companies"
	ReportSlots      ReportKind = "slots"
)

// ReportQuery selects the report and identifies the staff member.
type ReportQuery struct {
	StaffID string     `validate:"required"`
	Kind    ReportKind `validate:"required,oneof=popularity companies slots"`
}

// Validate validates the query.
func (q ReportQuery) Validate() error {
	return validateStruct("Report", q)
}

// PopularityEntry counts applications for one posting.
type PopularityEntry struct {
	Internship   InternshipDTO `json:"internship"`
	Applications int           `json:"applications"`
	Active       int           `json:"active"`
}

// CompanyGroup lists one company's postings.
type CompanyGroup struct {
	CompanyName string          `json:"company_name"`
	Internships []InternshipDTO `json:"internships"`
}

// ReportResult carries exactly one populated section, matching Kind.
type ReportResult struct {
	Kind       ReportKind        `json:"kind"`
	Popularity []PopularityEntry `json:"popularity,omitempty"`
	Companies  []CompanyGroup    `json:"companies,omitempty"`
	Slots      []InternshipDTO   `json:"slots,omitempty"`
}

// ReportHandler handles the ReportQuery.
type ReportHandler struct {
	deps Deps
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(deps Deps) *ReportHandler {
	return &ReportHandler{deps: deps.withDefaults()}
}

// Handle builds the report.
func (h *ReportHandler) Handle(ctx context.Context, q ReportQuery) (*ReportResult, error) {
	const op = "report"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	if _, err := d.requireRole(ctx, q.StaffID, user.RoleStaff); err != nil {
		return nil, d.fail(op, err)
	}

	key := reportCacheKey(q.Kind)
	if d.Reports != nil {
		var cached ReportResult
		if err := d.Reports.Get(ctx, key, &cached); err == nil && cached.Kind == q.Kind {
			return &cached, nil
		}
	}

	result, err := d.buildReport(ctx, q.Kind)
	if err != nil {
		return nil, d.fail(op, err)
	}

	if d.Reports != nil {
		if err := d.Reports.Set(ctx, key, result, d.ReportTTL); err != nil {
			d.Logger.Warn("failed to cache report", "kind", q.Kind, "error", err)
		}
	}
	return result, nil
}

func reportCacheKey(kind ReportKind) string {
	return "report:" + string(kind)
}

func (d Deps) buildReport(ctx context.Context, kind ReportKind) (*ReportResult, error) {
	items, err := d.Internships.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReportResult{Kind: kind}
	switch kind {
	case ReportPopularity:
		result.Popularity, err = d.popularity(ctx, items)
	case ReportCompanies:
		result.Companies, err = d.groupByCompany(ctx, items)
	case ReportSlots:
		internship.SortByRemainingSlotsDesc(items)
		result.Slots = internshipDTOs(items)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// popularity orders postings by application count, most first, then title.
func (d Deps) popularity(ctx context.Context, items []*internship.Internship) ([]PopularityEntry, error) {
	apps, err := d.Applications.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	total := make(map[string]int, len(items))
	active := make(map[string]int, len(items))
	for _, a := range apps {
		total[a.InternshipID]++
		if a.IsActive() {
			active[a.InternshipID]++
		}
	}

	out := make([]PopularityEntry, 0, len(items))
	for _, i := range items {
		out = append(out, PopularityEntry{
			Internship:   NewInternshipDTO(i),
			Applications: total[i.ID],
			Active:       active[i.ID],
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Applications != out[b].Applications {
			return out[a].Applications > out[b].Applications
		}
		return out[a].Internship.Title < out[b].Internship.Title
	})
	return out, nil
}

// groupByCompany buckets postings under their company. Every registered
// company appears, including those with no postings; groups are ordered by
// company name and postings by title.
func (d Deps) groupByCompany(ctx context.Context, items []*internship.Internship) ([]CompanyGroup, error) {
	companies, err := d.Companies.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*CompanyGroup, len(companies))
	for _, c := range companies {
		groups[c.Key()] = &CompanyGroup{CompanyName: c.Name, Internships: []InternshipDTO{}}
	}

	internship.SortByTitle(items)
	for _, i := range items {
		key := company.NormalizeName(i.CompanyName)
		g, ok := groups[key]
		if !ok {
			g = &CompanyGroup{CompanyName: i.CompanyName, Internships: []InternshipDTO{}}
			groups[key] = g
		}
		g.Internships = append(g.Internships, NewInternshipDTO(i))
	}

	out := make([]CompanyGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(a, b int) bool {
		return company.NormalizeName(out[a].CompanyName) < company.NormalizeName(out[b].CompanyName)
	})
	return out, nil
}
